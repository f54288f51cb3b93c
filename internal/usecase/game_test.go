package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

func firstCell(int) int { return 0 }

type gameFixture struct {
	useCase     GameUseCase
	names       *mockAccounts
	broadcaster *recordingBroadcaster
	persister   *recordingPersister
	rooms       *RoomDirectory
	sender      *fakeViewer
}

func newGameFixture(t *testing.T, rooms ...*entity.Room) gameFixture {
	t.Helper()

	directory, _, persister := newDirectory(t, rooms...)
	names := &mockAccounts{}
	broadcaster := &recordingBroadcaster{}

	t.Cleanup(func() { names.AssertExpectations(t) })

	return gameFixture{
		useCase:     NewGameUseCase(discardLogger(), directory, names, broadcaster, firstCell),
		names:       names,
		broadcaster: broadcaster,
		persister:   persister,
		rooms:       directory,
		sender:      &fakeViewer{id: "sender"},
	}
}

func TestGameUseCase_StepGame(t *testing.T) {
	ctx := context.Background()

	t.Run("First move claims the empty seat", func(t *testing.T) {
		// Given: a fresh room and Alice with user id 7
		fx := newGameFixture(t, entity.NewRoom(1, "room", 0))
		fx.names.On("DisplayName", mock.Anything, 7).Return("Alice", nil).Once()

		// When: Alice plays cell 4
		status, err := fx.useCase.StepGame(ctx, fx.sender, 1, 7, 4)

		// Then: she holds seat 0 and it is the other seat's turn
		require.NoError(t, err)
		assert.Equal(t, [2]int{7, entity.EmptySlot}, status.PlayersID)
		assert.Equal(t, [2]string{"Alice", entity.UndecidedName}, status.PlayersName)
		assert.Equal(t, entity.PlayerA, status.Board[4])
		assert.Equal(t, 1, status.Turn)
		assert.Equal(t, 1, status.TurnCount)
		assert.Equal(t, entity.ProgressPlaying, status.Progress)

		// And: the room sees the new status and it is queued for storage
		sent := fx.broadcaster.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, sentMessage{RoomID: 1, Channel: entity.ChannelGameState, Payload: status}, sent[0])
		require.Len(t, fx.persister.saved, 1)
		assert.Equal(t, status, fx.persister.saved[0].Status)
	})

	t.Run("Seat held by another user drops the move", func(t *testing.T) {
		// Given: seat 0 is on turn and belongs to user 8
		room := entity.NewRoom(1, "room", 0)
		require.NoError(t, room.ClaimSlot(entity.PlayerA, 8, "Bob"))
		fx := newGameFixture(t, room)

		// When: user 7 tries to play
		_, err := fx.useCase.StepGame(ctx, fx.sender, 1, 7, 0)

		// Then: nothing changes, is sent or is stored
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Empty(t, fx.broadcaster.sent())
		assert.Empty(t, fx.persister.saved)

		snapshot, err := fx.rooms.Snapshot(1)
		require.NoError(t, err)
		assert.Equal(t, entity.EmptyCell, snapshot.Status.Board[0])
	})

	t.Run("Occupied cell is rejected before the seat is claimed", func(t *testing.T) {
		room := entity.NewRoom(1, "room", 0)
		room.Status.Board[4] = entity.PlayerB
		fx := newGameFixture(t, room)

		_, err := fx.useCase.StepGame(ctx, fx.sender, 1, 7, 4)

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		snapshot, err := fx.rooms.Snapshot(1)
		require.NoError(t, err)
		assert.Equal(t, entity.EmptySlot, snapshot.Status.PlayersID[entity.PlayerA])
	})

	t.Run("Finished game rejects moves", func(t *testing.T) {
		room := entity.NewRoom(1, "room", 0)
		room.Status.Progress = entity.ProgressWin
		fx := newGameFixture(t, room)

		_, err := fx.useCase.StepGame(ctx, fx.sender, 1, 7, 0)

		require.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Empty(t, fx.broadcaster.sent())
	})

	t.Run("Missing room is rejected", func(t *testing.T) {
		fx := newGameFixture(t)

		_, err := fx.useCase.StepGame(ctx, fx.sender, 404, 7, 0)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Empty(t, fx.broadcaster.sent())
	})

	t.Run("Robot replies within the same event", func(t *testing.T) {
		// Given: a robot already holds seat 1
		room := entity.NewRoom(1, "room", 0)
		require.NoError(t, room.ClaimSlot(entity.PlayerB, -2, entity.RobotName))
		fx := newGameFixture(t, room)
		fx.names.On("DisplayName", mock.Anything, 7).Return("Alice", nil).Once()

		// When: Alice plays cell 0
		status, err := fx.useCase.StepGame(ctx, fx.sender, 1, 7, 0)

		// Then: the robot answered on the first empty cell and it is Alice's turn again
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerA, status.Board[0])
		assert.Equal(t, entity.PlayerB, status.Board[1])
		assert.Equal(t, 2, status.TurnCount)
		assert.Equal(t, entity.PlayerA, status.Turn)
		assert.Len(t, fx.broadcaster.sent(), 1)
	})
}

func TestGameUseCase_RobotJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("Robot on turn moves at once", func(t *testing.T) {
		// Given: Alice played cell 4 and seat 1 is free and on turn
		room := entity.NewRoom(1, "room", 0)
		require.NoError(t, room.ClaimSlot(entity.PlayerA, 7, "Alice"))
		room.Status.Board[4] = entity.PlayerA
		room.Status.Turn = 1
		room.Status.TurnCount = 1
		fx := newGameFixture(t, room)

		// When: robot -2 joins seat 1
		status, err := fx.useCase.RobotJoin(ctx, fx.sender, 1, 1, -2)

		// Then: the robot holds the seat and already made its move
		require.NoError(t, err)
		assert.Equal(t, -2, status.PlayersID[1])
		assert.Equal(t, entity.RobotName, status.PlayersName[1])
		assert.Equal(t, entity.PlayerB, status.Board[0])
		assert.Equal(t, 2, status.TurnCount)
		assert.Equal(t, 0, status.Turn)

		sent := fx.broadcaster.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, entity.ChannelGameState, sent[0].Channel)
	})

	t.Run("Robot off turn waits", func(t *testing.T) {
		fx := newGameFixture(t, entity.NewRoom(1, "room", 0))

		status, err := fx.useCase.RobotJoin(ctx, fx.sender, 1, 1, -3)

		require.NoError(t, err)
		assert.Equal(t, -3, status.PlayersID[1])
		assert.Equal(t, 0, status.TurnCount)
		assert.Len(t, status.EmptyCells(), entity.BoardSize)
	})

	t.Run("Taken seat is rejected", func(t *testing.T) {
		room := entity.NewRoom(1, "room", 0)
		require.NoError(t, room.ClaimSlot(entity.PlayerB, 8, "Bob"))
		fx := newGameFixture(t, room)

		_, err := fx.useCase.RobotJoin(ctx, fx.sender, 1, 1, -2)

		require.ErrorIs(t, err, apperror.ErrSlotTaken)
		assert.Empty(t, fx.broadcaster.sent())
		assert.Empty(t, fx.persister.saved)
	})

	t.Run("Non-robot id is rejected", func(t *testing.T) {
		fx := newGameFixture(t, entity.NewRoom(1, "room", 0))

		_, err := fx.useCase.RobotJoin(ctx, fx.sender, 1, 1, -1)

		require.ErrorIs(t, err, apperror.ErrInvalidSlot)
	})
}

func TestGameUseCase_Rematch(t *testing.T) {
	ctx := context.Background()

	// Given: a room whose game was won
	room := entity.NewRoom(1, "room", 0)
	require.NoError(t, room.ClaimSlot(entity.PlayerA, 7, "Alice"))
	room.Status.Board = [entity.BoardSize]int{0, 0, 0, 1, 1, -1, -1, -1, -1}
	room.Status.TurnCount = 4
	room.Status.Progress = entity.ProgressWin
	fx := newGameFixture(t, room)

	// When: a rematch is requested
	status, err := fx.useCase.Rematch(ctx, fx.sender, 1, 7)

	// Then: the initial status is restored and announced on the rematch channel
	require.NoError(t, err)
	assert.Equal(t, entity.NewGameStatus(), status)

	sent := fx.broadcaster.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, sentMessage{RoomID: 1, Channel: entity.ChannelRematchState, Payload: status}, sent[0])
}

func TestGameUseCase_SenderDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("Sender outside the room gets the status directly", func(t *testing.T) {
		fx := newGameFixture(t, entity.NewRoom(1, "room", 0))
		fx.names.On("DisplayName", mock.Anything, 7).Return("Alice", nil).Once()

		status, err := fx.useCase.StepGame(ctx, fx.sender, 1, 7, 4)

		require.NoError(t, err)
		require.Len(t, fx.sender.sent, 1)
		assert.Equal(t, sentMessage{Channel: "game-state:1", Payload: status}, fx.sender.sent[0])
		assert.Len(t, fx.broadcaster.sent(), 1)
	})

	t.Run("Sender viewing the room is reached by the broadcast only", func(t *testing.T) {
		fx := newGameFixture(t, entity.NewRoom(1, "room", 0))
		fx.sender.Join(1)

		_, err := fx.useCase.Rematch(ctx, fx.sender, 1, 7)

		require.NoError(t, err)
		assert.Empty(t, fx.sender.sent)
		assert.Len(t, fx.broadcaster.sent(), 1)
	})

	t.Run("Rejected event sends nothing", func(t *testing.T) {
		fx := newGameFixture(t)

		_, err := fx.useCase.RobotJoin(ctx, fx.sender, 404, 1, -2)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Empty(t, fx.sender.sent)
	})
}

func TestGameUseCase_LoadGame(t *testing.T) {
	fx := newGameFixture(t, entity.NewRoom(3, "room", 0))
	viewer := &fakeViewer{id: "c1"}

	require.NoError(t, fx.useCase.LoadGame(context.Background(), viewer, 3))

	assert.Equal(t, []int{3}, viewer.joined)
	require.Len(t, viewer.sent, 1)
	assert.Equal(t, "game-state:3", viewer.sent[0].Channel)
	assert.Equal(t, entity.NewGameStatus(), viewer.sent[0].Payload)
	assert.Empty(t, fx.broadcaster.sent())
}

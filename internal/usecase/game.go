package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
	"github.com/rocketscienceinc/oxroom-backend/internal/tictactoe"
)

type GameUseCase interface {
	LoadGame(ctx context.Context, viewer Viewer, roomID int) error
	StepGame(ctx context.Context, sender Viewer, roomID, userID, cell int) (entity.GameStatus, error)
	RobotJoin(ctx context.Context, sender Viewer, roomID, turnIndex, robotID int) (entity.GameStatus, error)
	Rematch(ctx context.Context, sender Viewer, roomID, userID int) (entity.GameStatus, error)
}

type displayNames interface {
	DisplayName(ctx context.Context, userID int) (string, error)
}

type gameUseCase struct {
	logger      *slog.Logger
	rooms       *RoomDirectory
	names       displayNames
	broadcaster Broadcaster
	pick        tictactoe.Picker
}

func NewGameUseCase(
	logger *slog.Logger,
	rooms *RoomDirectory,
	names displayNames,
	broadcaster Broadcaster,
	pick tictactoe.Picker,
) GameUseCase {
	return &gameUseCase{
		logger:      logger.With("component", "game"),
		rooms:       rooms,
		names:       names,
		broadcaster: broadcaster,
		pick:        pick,
	}
}

// LoadGame makes the viewer watch the room and sends it the current status.
func (that *gameUseCase) LoadGame(_ context.Context, viewer Viewer, roomID int) error {
	return that.rooms.View(roomID, func(room *entity.Room) {
		viewer.Join(roomID)
		viewer.Send(entity.RoomChannel(entity.ChannelGameState, roomID), room.Status)
	})
}

// StepGame plays cell for userID. An unclaimed seat on turn is bound to the user first; a seat
// held by someone else rejects the move.
func (that *gameUseCase) StepGame(ctx context.Context, sender Viewer, roomID, userID, cell int) (entity.GameStatus, error) {
	log := that.logger.With("method", "StepGame", "roomID", roomID, "userID", userID)

	room, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		if err := tictactoe.ValidateMove(room.Status, cell); err != nil {
			return err
		}

		seat := room.Status.Turn

		switch occupant := room.Status.PlayersID[seat]; occupant {
		case entity.EmptySlot:
			name, err := that.names.DisplayName(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to resolve player name: %w", err)
			}

			if err = room.ClaimSlot(seat, userID, name); err != nil {
				return err
			}
		case userID:
		default:
			return fmt.Errorf("%w: seat %d belongs to %d", apperror.ErrNotYourTurn, seat, occupant)
		}

		status, err := tictactoe.ApplyMove(room.Status, cell)
		if err != nil {
			return err
		}

		if status, err = that.advanceRobot(log, status); err != nil {
			return err
		}

		room.Status = status
		deliver(that.broadcaster, sender, roomID, entity.ChannelGameState, status)

		return nil
	})
	if err != nil {
		return entity.GameStatus{}, err
	}

	return room.Status, nil
}

// RobotJoin seats a robot and lets it move at once if it is on turn.
func (that *gameUseCase) RobotJoin(ctx context.Context, sender Viewer, roomID, turnIndex, robotID int) (entity.GameStatus, error) {
	log := that.logger.With("method", "RobotJoin", "roomID", roomID, "robotID", robotID)

	if !entity.IsRobot(robotID) {
		return entity.GameStatus{}, fmt.Errorf("%w: %d is not a robot id", apperror.ErrInvalidSlot, robotID)
	}

	room, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		if err := room.ClaimSlot(turnIndex, robotID, entity.RobotName); err != nil {
			return err
		}

		status, err := that.advanceRobot(log, room.Status)
		if err != nil {
			return err
		}

		room.Status = status
		deliver(that.broadcaster, sender, roomID, entity.ChannelGameState, status)

		return nil
	})
	if err != nil {
		return entity.GameStatus{}, err
	}

	return room.Status, nil
}

func (that *gameUseCase) Rematch(ctx context.Context, sender Viewer, roomID, userID int) (entity.GameStatus, error) {
	room, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		room.ResetGame()
		deliver(that.broadcaster, sender, roomID, entity.ChannelRematchState, room.Status)

		return nil
	})
	if err != nil {
		return entity.GameStatus{}, err
	}

	that.logger.Debug("rematch started", "roomID", roomID, "userID", userID)

	return room.Status, nil
}

func (that *gameUseCase) advanceRobot(log *slog.Logger, status entity.GameStatus) (entity.GameStatus, error) {
	next, err := tictactoe.AdvanceRobot(status, that.pick)
	if errors.Is(err, apperror.ErrNoLegalMove) {
		log.Error("robot has no legal move", "board", status.Board, "error", err)
	}

	return next, err
}

package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
	"github.com/rocketscienceinc/oxroom-backend/internal/service"
	"github.com/rocketscienceinc/oxroom-backend/internal/usecase"
)

type memoryRooms []*entity.Room

func (that memoryRooms) NextID(context.Context) (int, error) {
	return len(that) + 1, nil
}

func (that memoryRooms) List(context.Context) ([]*entity.Room, error) {
	return that, nil
}

type discardPersister struct{}

func (discardPersister) Save(*entity.Room) {}

func (discardPersister) Delete(int) {}

type names map[int]string

func (that names) DisplayName(_ context.Context, userID int) (string, error) {
	name, ok := that[userID]
	if !ok {
		return "", apperror.ErrNotFound
	}

	return name, nil
}

type testServer struct {
	hub *Hub
	url string
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	directory := usecase.NewRoomDirectory(logger, memoryRooms{entity.NewRoom(1, "room", 0)}, discardPersister{})
	require.NoError(t, directory.Load(context.Background()))

	accounts := names{7: "Alice", 8: "Bob"}
	hub := NewHub(logger)
	presence := service.NewPresenceTracker(logger, accounts)

	games := usecase.NewGameUseCase(logger, directory, accounts, hub, func(int) int { return 0 })
	chats := usecase.NewChatUseCase(logger, directory, presence, hub, time.UTC)

	server := New(logger, hub, games, chats, directory, Options{
		WriteWait:  time.Second,
		PongWait:   time.Minute,
		SendBuffer: 16,
		ReadLimit:  4096,
	})

	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	return testServer{hub: hub, url: "ws" + strings.TrimPrefix(httpServer.URL, "http")}
}

func (that testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(that.url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func ptr(v int) *int {
	return &v
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: raw}))
}

func receive(t *testing.T, conn *websocket.Conn, target any) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var message Message
	require.NoError(t, conn.ReadJSON(&message))

	if target != nil {
		require.NoError(t, json.Unmarshal(message.Payload, target))
	}

	return message.Action
}

func TestServer_StepGame(t *testing.T) {
	srv := newTestServer(t)

	// Given: two clients viewing room 1
	alice := srv.dial(t)
	bob := srv.dial(t)

	var status entity.GameStatus
	for _, conn := range []*websocket.Conn{alice, bob} {
		send(t, conn, entity.EventLoadGame, loadGamePayload{RoomID: 1})
		assert.Equal(t, "game-state:1", receive(t, conn, &status))
		assert.Equal(t, entity.NewGameStatus(), status)
	}

	// When: Alice plays cell 4
	send(t, alice, entity.EventStepGame, stepGamePayload{RoomID: 1, UserID: 7, CellIndex: ptr(4)})

	// Then: both viewers get the same new status
	for _, conn := range []*websocket.Conn{alice, bob} {
		var update entity.GameStatus
		assert.Equal(t, "game-state:1", receive(t, conn, &update))
		assert.Equal(t, [2]int{7, entity.EmptySlot}, update.PlayersID)
		assert.Equal(t, [2]string{"Alice", entity.UndecidedName}, update.PlayersName)
		assert.Equal(t, entity.PlayerA, update.Board[4])
		assert.Equal(t, 1, update.Turn)
		assert.Equal(t, 1, update.TurnCount)
	}
}

func TestServer_SenderGetsResultWithoutViewing(t *testing.T) {
	srv := newTestServer(t)

	t.Run("step-game", func(t *testing.T) {
		// Given: a fresh connection that never loaded the game
		conn := srv.dial(t)

		// When: it plays cell 4
		send(t, conn, entity.EventStepGame, stepGamePayload{RoomID: 1, UserID: 7, CellIndex: ptr(4)})

		// Then: it still receives the new status
		var status entity.GameStatus
		assert.Equal(t, "game-state:1", receive(t, conn, &status))
		assert.Equal(t, entity.PlayerA, status.Board[4])
		assert.Equal(t, 1, status.TurnCount)
	})

	t.Run("send-chat", func(t *testing.T) {
		conn := srv.dial(t)

		send(t, conn, entity.EventSendChat, sendChatPayload{RoomID: 1, Name: "Bob", Msg: "hi"})

		var message entity.ChatMessage
		assert.Equal(t, "chat-message:1", receive(t, conn, &message))
		assert.Equal(t, "hi", message.Msg)
	})

	t.Run("rematch", func(t *testing.T) {
		conn := srv.dial(t)

		send(t, conn, entity.EventRematch, rematchPayload{RoomID: 1, UserID: 7})

		var status entity.GameStatus
		assert.Equal(t, "rematch-state:1", receive(t, conn, &status))
		assert.Equal(t, entity.NewGameStatus(), status)
	})
}

func TestServer_ViewerGetsResultOnce(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	// Given: the connection views room 1
	send(t, conn, entity.EventLoadGame, loadGamePayload{RoomID: 1})
	receive(t, conn, nil)

	// When: it plays and then reloads
	send(t, conn, entity.EventStepGame, stepGamePayload{RoomID: 1, UserID: 7, CellIndex: ptr(4)})
	send(t, conn, entity.EventLoadGame, loadGamePayload{RoomID: 1})

	// Then: the move arrives once, followed by the reload
	var status entity.GameStatus
	assert.Equal(t, "game-state:1", receive(t, conn, &status))
	assert.Equal(t, 1, status.TurnCount)
	assert.Equal(t, "game-state:1", receive(t, conn, &status))
	assert.Equal(t, 1, status.TurnCount)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestServer_DropsInvalidEvents(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	// Given: events failing validation and a malformed frame
	send(t, conn, entity.EventStepGame, stepGamePayload{RoomID: 1, UserID: 7, CellIndex: ptr(12)})
	send(t, conn, entity.EventStepGame, stepGamePayload{RoomID: 404, UserID: 7, CellIndex: ptr(0)})
	send(t, conn, entity.EventRobotJoin, robotJoinPayload{RoomID: 1, TurnIndex: ptr(1), RobotID: -1})
	send(t, conn, entity.EventStepGame, map[string]int{"roomId": 1, "userId": 7})
	send(t, conn, entity.EventRobotJoin, map[string]int{"roomId": 1, "robotId": -2})
	send(t, conn, "unknown", loadGamePayload{RoomID: 1})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// When: a valid load-game follows
	send(t, conn, entity.EventLoadGame, loadGamePayload{RoomID: 1})

	// Then: the first frame received answers load-game and the board is untouched
	var status entity.GameStatus
	assert.Equal(t, "game-state:1", receive(t, conn, &status))
	assert.Equal(t, entity.NewGameStatus(), status)
}

func TestServer_RobotJoin(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	send(t, conn, entity.EventLoadGame, loadGamePayload{RoomID: 1})
	receive(t, conn, nil)

	// When: a robot takes seat 0, which is on turn
	send(t, conn, entity.EventRobotJoin, robotJoinPayload{RoomID: 1, TurnIndex: ptr(0), RobotID: -2})

	// Then: it has already played the first empty cell
	var status entity.GameStatus
	assert.Equal(t, "game-state:1", receive(t, conn, &status))
	assert.Equal(t, -2, status.PlayersID[0])
	assert.Equal(t, entity.RobotName, status.PlayersName[0])
	assert.Equal(t, entity.PlayerA, status.Board[0])
	assert.Equal(t, 1, status.TurnCount)
}

func TestServer_ChatAndPresence(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.dial(t)
	bob := srv.dial(t)

	// Given: Alice subscribes to the chat of room 1
	send(t, alice, entity.EventSubscribeChat, subscribeChatPayload{RoomID: 1, UserID: 7})

	var presence entity.PresenceUpdate
	assert.Equal(t, "presence-update:1", receive(t, alice, &presence))
	assert.Equal(t, []string{"Alice"}, presence.UsersName)

	var history []entity.ChatMessage
	assert.Equal(t, entity.ChannelChatHistory, receive(t, alice, &history))
	assert.Empty(t, history)

	// When: Bob subscribes too
	send(t, bob, entity.EventSubscribeChat, subscribeChatPayload{RoomID: 1, UserID: 8})

	// Then: Alice sees both names
	assert.Equal(t, "presence-update:1", receive(t, alice, &presence))
	assert.Equal(t, []string{"Alice", "Bob"}, presence.UsersName)
	assert.Equal(t, "presence-update:1", receive(t, bob, nil))
	assert.Equal(t, entity.ChannelChatHistory, receive(t, bob, nil))

	// When: Bob says hi
	send(t, bob, entity.EventSendChat, sendChatPayload{RoomID: 1, Name: "Bob", Msg: "hi"})

	// Then: both get the message
	for _, conn := range []*websocket.Conn{alice, bob} {
		var message entity.ChatMessage
		assert.Equal(t, "chat-message:1", receive(t, conn, &message))
		assert.Equal(t, "Bob", message.Name)
		assert.Equal(t, "hi", message.Msg)
		assert.NotEmpty(t, message.Timestamp)
	}

	// When: Bob disconnects
	require.NoError(t, bob.Close())

	// Then: Alice is told she is alone
	assert.Equal(t, "presence-update:1", receive(t, alice, &presence))
	assert.Equal(t, []string{"Alice"}, presence.UsersName)
}

func TestHub_ToAll(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	// Given: the connection is registered
	send(t, conn, entity.EventLoadGame, loadGamePayload{RoomID: 1})
	receive(t, conn, nil)

	// When: a lobby update is published
	srv.hub.ToAll(entity.ChannelLobbyUpdate, entity.LobbyUpdate{Flag: entity.LobbyFlagDestroy, RoomID: 3})

	// Then: the connection gets it on the global channel
	var update entity.LobbyUpdate
	assert.Equal(t, entity.ChannelLobbyUpdate, receive(t, conn, &update))
	assert.Equal(t, entity.LobbyUpdate{Flag: entity.LobbyFlagDestroy, RoomID: 3}, update)
	assert.Equal(t, 1, srv.hub.Viewers(1))
}

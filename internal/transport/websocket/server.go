package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
	"github.com/rocketscienceinc/oxroom-backend/internal/usecase"
)

type Options struct {
	WriteWait  time.Duration
	PongWait   time.Duration
	SendBuffer int
	ReadLimit  int64
}

type gameUseCase interface {
	LoadGame(ctx context.Context, viewer usecase.Viewer, roomID int) error
	StepGame(ctx context.Context, sender usecase.Viewer, roomID, userID, cell int) (entity.GameStatus, error)
	RobotJoin(ctx context.Context, sender usecase.Viewer, roomID, turnIndex, robotID int) (entity.GameStatus, error)
	Rematch(ctx context.Context, sender usecase.Viewer, roomID, userID int) (entity.GameStatus, error)
}

type chatUseCase interface {
	SubscribeChat(ctx context.Context, viewer usecase.Viewer, roomID, userID int) error
	SendChat(ctx context.Context, sender usecase.Viewer, roomID int, name, msg string) (entity.ChatMessage, error)
	Disconnect(ctx context.Context, connID string)
}

type roomChecker interface {
	Exists(id int) bool
}

type handler func(ctx context.Context, client *Client, payload json.RawMessage) error

// Server routes realtime events from websocket clients to the use cases.
type Server struct {
	logger  *slog.Logger
	hub     *Hub
	games   gameUseCase
	chats   chatUseCase
	rooms   roomChecker
	options Options

	upgrader websocket.Upgrader
	handlers map[string]handler
}

func New(logger *slog.Logger, hub *Hub, games gameUseCase, chats chatUseCase, rooms roomChecker, options Options) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		hub:     hub,
		games:   games,
		chats:   chats,
		rooms:   rooms,
		options: options,

		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handler),
	}

	server.handlers[entity.EventSubscribeChat] = server.handleSubscribeChat
	server.handlers[entity.EventSendChat] = server.handleSendChat
	server.handlers[entity.EventLoadGame] = server.handleLoadGame
	server.handlers[entity.EventStepGame] = server.handleStepGame
	server.handlers[entity.EventRematch] = server.handleRematch
	server.handlers[entity.EventRobotJoin] = server.handleRobotJoin

	return server
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(that.logger, conn, that.hub, that.options)
	that.hub.Register(client)

	go client.writePump()

	client.logger.Info("websocket connection established")

	that.readPump(context.WithoutCancel(req.Context()), client)
}

func (that *Server) readPump(ctx context.Context, client *Client) {
	log := client.logger.With("method", "readPump")

	defer func() {
		that.hub.Unregister(client)
		that.chats.Disconnect(ctx, client.id)
		client.close()

		log.Info("websocket connection closed")
	}()

	client.conn.SetReadLimit(that.options.ReadLimit)
	_ = client.conn.SetReadDeadline(time.Now().Add(that.options.PongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(that.options.PongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("unexpected close", "error", err)
			}

			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("dropped malformed frame", "error", err)
			continue
		}

		that.dispatch(ctx, client, &message)
	}
}

func (that *Server) dispatch(ctx context.Context, client *Client, message *Message) {
	log := client.logger.With("method", "dispatch", "action", message.Action)

	handle, ok := that.handlers[message.Action]
	if !ok {
		log.Debug("unknown action")
		return
	}

	if err := handle(ctx, client, message.Payload); err != nil {
		log.Debug("event dropped", "error", err)
	}
}

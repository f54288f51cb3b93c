package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection. Frames queued with enqueue are written by writePump
// in queue order.
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	writeWait  time.Duration
	pingPeriod time.Duration
}

func newClient(logger *slog.Logger, conn *websocket.Conn, hub *Hub, options Options) *Client {
	id := uuid.NewString()

	return &Client{
		id:         id,
		conn:       conn,
		hub:        hub,
		logger:     logger.With("connID", id),
		send:       make(chan []byte, options.SendBuffer),
		done:       make(chan struct{}),
		writeWait:  options.WriteWait,
		pingPeriod: options.PongWait * 9 / 10,
	}
}

func (that *Client) ConnID() string {
	return that.id
}

// Join makes the client view roomID instead of its previous room.
func (that *Client) Join(roomID int) {
	that.hub.Join(that, roomID)
}

func (that *Client) Viewing(roomID int) bool {
	return that.hub.Viewing(that.id, roomID)
}

// Send delivers a message to this client only.
func (that *Client) Send(channel string, payload any) {
	frame, err := encode(channel, payload)
	if err != nil {
		that.logger.Error("failed to encode message", "channel", channel, "error", err)
		return
	}

	that.enqueue(frame)
}

// enqueue never blocks; a client that cannot keep up is disconnected.
func (that *Client) enqueue(frame []byte) {
	select {
	case <-that.done:
	case that.send <- frame:
	default:
		that.logger.Warn("send buffer full, dropping connection")
		that.close()
	}
}

// close asks writePump to say goodbye and drop the connection.
func (that *Client) close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

func (that *Client) writePump() {
	ticker := time.NewTicker(that.pingPeriod)
	defer func() {
		ticker.Stop()
		that.close()
		_ = that.conn.Close()
	}()

	for {
		select {
		case frame := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(that.writeWait))

			if err := that.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				that.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(that.writeWait))
			if err != nil {
				that.logger.Debug("ping failed", "error", err)
				return
			}
		case <-that.done:
			_ = that.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(that.writeWait))
			return
		}
	}
}

package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

// Hub tracks live clients and the room each one views.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	viewing map[string]int
	rooms   map[int]map[string]*Client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[string]*Client),
		viewing: make(map[string]int),
		rooms:   make(map[int]map[string]*Client),
	}
}

func (that *Hub) Register(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clients[client.id] = client
}

func (that *Hub) Unregister(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.leave(client.id)
	delete(that.clients, client.id)
}

func (that *Hub) Join(client *Client, roomID int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.clients[client.id]; !ok {
		return
	}

	that.leave(client.id)

	if _, ok := that.rooms[roomID]; !ok {
		that.rooms[roomID] = make(map[string]*Client)
	}

	that.rooms[roomID][client.id] = client
	that.viewing[client.id] = roomID
}

// ToRoom sends payload to every client viewing roomID on the room-scoped channel.
func (that *Hub) ToRoom(roomID int, channel string, payload any) {
	frame, err := encode(entity.RoomChannel(channel, roomID), payload)
	if err != nil {
		that.logger.Error("failed to encode message", "channel", channel, "roomID", roomID, "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, client := range that.rooms[roomID] {
		client.enqueue(frame)
	}
}

func (that *Hub) ToAll(channel string, payload any) {
	frame, err := encode(channel, payload)
	if err != nil {
		that.logger.Error("failed to encode message", "channel", channel, "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, client := range that.clients {
		client.enqueue(frame)
	}
}

// Viewing reports whether connID currently views roomID.
func (that *Hub) Viewing(connID string, roomID int) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	viewing, ok := that.viewing[connID]

	return ok && viewing == roomID
}

// Viewers returns how many clients view roomID.
func (that *Hub) Viewers(roomID int) int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms[roomID])
}

func (that *Hub) leave(connID string) {
	roomID, ok := that.viewing[connID]
	if !ok {
		return
	}

	delete(that.viewing, connID)
	delete(that.rooms[roomID], connID)

	if len(that.rooms[roomID]) == 0 {
		delete(that.rooms, roomID)
	}
}

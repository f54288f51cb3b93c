package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

type PresenceEntry struct {
	RoomID int
	UserID int
	ConnID string
}

type nameResolver interface {
	DisplayName(ctx context.Context, userID int) (string, error)
}

// PresenceTracker keeps one entry per live connection viewing a room.
type PresenceTracker struct {
	logger *slog.Logger
	names  nameResolver

	mu      sync.Mutex
	entries []PresenceEntry
}

func NewPresenceTracker(logger *slog.Logger, names nameResolver) *PresenceTracker {
	return &PresenceTracker{
		logger: logger.With("component", "presence"),
		names:  names,
	}
}

// Subscribe registers the connection as a viewer of roomID. Several connections of one
// user produce several entries.
func (that *PresenceTracker) Subscribe(roomID, userID int, connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.entries = append(that.entries, PresenceEntry{RoomID: roomID, UserID: userID, ConnID: connID})
}

// Unsubscribe removes the entries of connID and returns the room they belonged to.
func (that *PresenceTracker) Unsubscribe(connID string) (int, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	var (
		roomID int
		found  bool
	)

	that.entries = slices.DeleteFunc(that.entries, func(entry PresenceEntry) bool {
		if entry.ConnID != connID {
			return false
		}

		roomID, found = entry.RoomID, true

		return true
	})

	return roomID, found
}

// RoomOf returns the room connID is subscribed to.
func (that *PresenceTracker) RoomOf(connID string) (int, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, entry := range that.entries {
		if entry.ConnID == connID {
			return entry.RoomID, true
		}
	}

	return 0, false
}

func (that *PresenceTracker) UserIDsInRoom(roomID int) []int {
	that.mu.Lock()
	defer that.mu.Unlock()

	userIDs := make([]int, 0, len(that.entries))
	for _, entry := range that.entries {
		if entry.RoomID == roomID {
			userIDs = append(userIDs, entry.UserID)
		}
	}

	return userIDs
}

// NamesInRoom returns one display name per entry of roomID, in subscription order.
func (that *PresenceTracker) NamesInRoom(ctx context.Context, roomID int) []string {
	log := that.logger.With("method", "NamesInRoom", "roomID", roomID)

	userIDs := that.UserIDsInRoom(roomID)

	names := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		name, err := that.names.DisplayName(ctx, userID)
		if err != nil {
			log.Warn("failed to resolve display name", "userID", userID, "error", err)
			continue
		}

		names = append(names, name)
	}

	return names
}

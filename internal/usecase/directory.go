package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

type roomStore interface {
	NextID(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*entity.Room, error)
}

type roomPersister interface {
	Save(room *entity.Room)
	Delete(id int)
}

// Broadcaster delivers realtime messages. ToRoom reaches every connection viewing roomID
// on the channel suffixed with the room id; ToAll reaches every connection.
type Broadcaster interface {
	ToRoom(roomID int, channel string, payload any)
	ToAll(channel string, payload any)
}

// Viewer is the connection an event came from.
type Viewer interface {
	ConnID() string
	Join(roomID int)
	Viewing(roomID int) bool
	Send(channel string, payload any)
}

// deliver broadcasts to the room and makes sure the sender gets the frame even when it does
// not view the room.
func deliver(broadcaster Broadcaster, sender Viewer, roomID int, channel string, payload any) {
	broadcaster.ToRoom(roomID, channel, payload)

	if sender != nil && !sender.Viewing(roomID) {
		sender.Send(entity.RoomChannel(channel, roomID), payload)
	}
}

type roomSlot struct {
	mu      sync.Mutex
	room    *entity.Room
	removed bool
}

// RoomDirectory owns the live rooms. Every change to a room runs under that room's lock.
type RoomDirectory struct {
	logger *slog.Logger
	store  roomStore
	saver  roomPersister

	mu    sync.RWMutex
	rooms map[int]*roomSlot
}

func NewRoomDirectory(logger *slog.Logger, store roomStore, saver roomPersister) *RoomDirectory {
	return &RoomDirectory{
		logger: logger.With("component", "room directory"),
		store:  store,
		saver:  saver,
		rooms:  make(map[int]*roomSlot),
	}
}

// Load replaces the in-memory rooms with the persisted ones.
func (that *RoomDirectory) Load(ctx context.Context) error {
	rooms, err := that.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.rooms = make(map[int]*roomSlot, len(rooms))
	for _, room := range rooms {
		that.rooms[room.ID] = &roomSlot{room: room}
	}

	that.logger.Info("rooms loaded", "count", len(rooms))

	return nil
}

func (that *RoomDirectory) Exists(id int) bool {
	_, ok := that.slot(id)
	return ok
}

func (that *RoomDirectory) Snapshot(id int) (*entity.Room, error) {
	var snapshot *entity.Room

	err := that.View(id, func(room *entity.Room) {
		snapshot = room.Clone()
	})

	return snapshot, err
}

// List returns snapshots of every room ordered by id.
func (that *RoomDirectory) List() []*entity.Room {
	that.mu.RLock()
	ids := make([]int, 0, len(that.rooms))
	for id := range that.rooms {
		ids = append(ids, id)
	}
	that.mu.RUnlock()

	slices.Sort(ids)

	rooms := make([]*entity.Room, 0, len(ids))
	for _, id := range ids {
		room, err := that.Snapshot(id)
		if err != nil {
			continue
		}
		rooms = append(rooms, room)
	}

	return rooms
}

// Create assigns the draft a fresh id and registers it. onCreate runs under the new room's
// lock before any other operation can see the room.
func (that *RoomDirectory) Create(ctx context.Context, draft *entity.Room, onCreate func(room *entity.Room)) (*entity.Room, error) {
	id, err := that.store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	room := draft.Clone()
	room.ID = id

	slot := &roomSlot{room: room}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	that.mu.Lock()
	that.rooms[id] = slot
	that.mu.Unlock()

	if onCreate != nil {
		onCreate(room)
	}

	that.saver.Save(room.Clone())

	return room.Clone(), nil
}

// View runs fn under the room lock without persisting anything.
func (that *RoomDirectory) View(id int, fn func(room *entity.Room)) error {
	slot, err := that.lock(id)
	if err != nil {
		return err
	}
	defer slot.mu.Unlock()

	fn(slot.room.Clone())

	return nil
}

// Update runs fn on a copy of the room under its lock. When fn succeeds the copy replaces
// the room and is queued for persistence; on error nothing changes.
func (that *RoomDirectory) Update(_ context.Context, id int, fn func(room *entity.Room) error) (*entity.Room, error) {
	slot, err := that.lock(id)
	if err != nil {
		return nil, err
	}
	defer slot.mu.Unlock()

	draft := slot.room.Clone()
	if err = fn(draft); err != nil {
		return nil, err
	}

	slot.room = draft
	that.saver.Save(draft.Clone())

	return draft.Clone(), nil
}

// Remove runs fn under the room lock and deletes the room when fn succeeds.
func (that *RoomDirectory) Remove(_ context.Context, id int, fn func(room *entity.Room) error) error {
	slot, err := that.lock(id)
	if err != nil {
		return err
	}
	defer slot.mu.Unlock()

	if err = fn(slot.room.Clone()); err != nil {
		return err
	}

	slot.removed = true

	that.mu.Lock()
	delete(that.rooms, id)
	that.mu.Unlock()

	that.saver.Delete(id)

	return nil
}

func (that *RoomDirectory) slot(id int) (*roomSlot, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	slot, ok := that.rooms[id]

	return slot, ok
}

// lock returns the locked slot of a live room.
func (that *RoomDirectory) lock(id int) (*roomSlot, error) {
	slot, ok := that.slot(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", apperror.ErrRoomNotFound, id)
	}

	slot.mu.Lock()

	if slot.removed {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", apperror.ErrRoomNotFound, id)
	}

	return slot, nil
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

type roomWriter interface {
	Save(ctx context.Context, room *entity.Room) error
	Delete(ctx context.Context, id int) error
}

// pendingWrite is the latest state queued for one room; a nil room means delete.
type pendingWrite struct {
	room *entity.Room
}

// RoomSaver writes room snapshots to storage in the background. Repeated saves of one room
// collapse into the latest snapshot.
type RoomSaver struct {
	logger *slog.Logger
	repo   roomWriter

	maxRetries      uint64
	initialInterval time.Duration

	mu      sync.Mutex
	pending map[int]pendingWrite

	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewRoomSaver(logger *slog.Logger, repo roomWriter, maxRetries uint64, initialInterval time.Duration) *RoomSaver {
	return &RoomSaver{
		logger:          logger.With("component", "room saver"),
		repo:            repo,
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
		pending:         make(map[int]pendingWrite),
		wake:            make(chan struct{}, 1),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start launches the worker. It must be called once.
func (that *RoomSaver) Start() {
	that.mu.Lock()
	that.started = true
	that.mu.Unlock()

	go that.run()
}

// Save queues a snapshot of room. The caller must not modify room afterwards.
func (that *RoomSaver) Save(room *entity.Room) {
	that.enqueue(room.ID, pendingWrite{room: room})
}

func (that *RoomSaver) Delete(id int) {
	that.enqueue(id, pendingWrite{})
}

// Close stops the worker after every queued write has been attempted.
func (that *RoomSaver) Close() {
	that.mu.Lock()
	started := that.started
	that.mu.Unlock()

	if !started {
		that.flush()
		return
	}

	close(that.stop)
	<-that.done
}

func (that *RoomSaver) enqueue(id int, write pendingWrite) {
	that.mu.Lock()
	that.pending[id] = write
	that.mu.Unlock()

	select {
	case that.wake <- struct{}{}:
	default:
	}
}

func (that *RoomSaver) run() {
	defer close(that.done)

	for {
		select {
		case <-that.wake:
			that.flush()
		case <-that.stop:
			that.flush()
			return
		}
	}
}

func (that *RoomSaver) flush() {
	for {
		that.mu.Lock()
		batch := that.pending
		that.pending = make(map[int]pendingWrite)
		that.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		ids := make([]int, 0, len(batch))
		for id := range batch {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, id := range ids {
			that.write(id, batch[id])
		}
	}
}

func (that *RoomSaver) write(id int, write pendingWrite) {
	log := that.logger.With("method", "write", "roomID", id)

	ctx := context.Background()

	operation := func() error {
		if write.room == nil {
			err := that.repo.Delete(ctx, id)
			if errors.Is(err, apperror.ErrRoomNotFound) {
				return nil
			}
			return err
		}

		return that.repo.Save(ctx, write.room)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = that.initialInterval

	notify := func(err error, next time.Duration) {
		log.Warn("room write failed, retrying", "error", err, "retryIn", next)
	}

	if err := backoff.RetryNotify(operation, backoff.WithMaxRetries(policy, that.maxRetries), notify); err != nil {
		log.Error("failed to persist room", "delete", write.room == nil, "error", err)
	}
}

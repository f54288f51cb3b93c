package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

const (
	roomIndexKey    = "rooms"
	roomSequenceKey = "rooms:seq"
)

type RoomRepository interface {
	NextID(ctx context.Context) (int, error)
	Save(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id int) (*entity.Room, error)
	Exists(ctx context.Context, id int) (bool, error)
	List(ctx context.Context) ([]*entity.Room, error)
	Delete(ctx context.Context, id int) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(id int) string {
	return "room:" + strconv.Itoa(id)
}

// NextID hands out room ids starting at 1, id 0 being the lobby.
func (that *dbRoom) NextID(ctx context.Context) (int, error) {
	id, err := that.client.Incr(ctx, roomSequenceKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate room id: %w", err)
	}

	return int(id), nil
}

func (that *dbRoom) Save(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.ID), roomJSON, 0)
		pipe.SAdd(ctx, roomIndexKey, room.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id int) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

func (that *dbRoom) Exists(ctx context.Context, id int) (bool, error) {
	count, err := that.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room: %w", err)
	}

	return count > 0, nil
}

func (that *dbRoom) List(ctx context.Context) ([]*entity.Room, error) {
	members, err := that.client.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room ids: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, member := range members {
		id, err := strconv.Atoi(member)
		if err != nil {
			return nil, fmt.Errorf("invalid room id %q in index: %w", member, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rooms := make([]*entity.Room, 0, len(ids))
	for _, id := range ids {
		room, err := that.GetByID(ctx, id)
		if errors.Is(err, apperror.ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

func (that *dbRoom) Delete(ctx context.Context, id int) error {
	var deleted *redis.IntCmd

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, roomKey(id))
		pipe.SRem(ctx, roomIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room by ID: %w", err)
	}

	if deleted.Val() == 0 {
		return apperror.ErrRoomNotFound
	}

	return nil
}

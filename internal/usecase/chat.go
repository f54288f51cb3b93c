package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

type ChatUseCase interface {
	SubscribeChat(ctx context.Context, viewer Viewer, roomID, userID int) error
	SendChat(ctx context.Context, sender Viewer, roomID int, name, msg string) (entity.ChatMessage, error)
	Disconnect(ctx context.Context, connID string)
}

type presenceTracker interface {
	Subscribe(roomID, userID int, connID string)
	Unsubscribe(connID string) (int, bool)
	RoomOf(connID string) (int, bool)
	NamesInRoom(ctx context.Context, roomID int) []string
}

type chatUseCase struct {
	logger      *slog.Logger
	rooms       *RoomDirectory
	presence    presenceTracker
	broadcaster Broadcaster

	location *time.Location
	now      func() time.Time
}

func NewChatUseCase(
	logger *slog.Logger,
	rooms *RoomDirectory,
	presence presenceTracker,
	broadcaster Broadcaster,
	location *time.Location,
) ChatUseCase {
	return &chatUseCase{
		logger:      logger.With("component", "chat"),
		rooms:       rooms,
		presence:    presence,
		broadcaster: broadcaster,
		location:    location,
		now:         time.Now,
	}
}

// SubscribeChat moves the viewer into the room, announces the new viewer list to the room
// and sends the chat history to the viewer alone. Subscribing again to the same room keeps
// the viewer's place in the list.
func (that *chatUseCase) SubscribeChat(ctx context.Context, viewer Viewer, roomID, userID int) error {
	if !that.rooms.Exists(roomID) {
		return fmt.Errorf("%w: %d", apperror.ErrRoomNotFound, roomID)
	}

	previous, subscribed := that.presence.RoomOf(viewer.ConnID())
	if subscribed && previous != roomID {
		that.presence.Unsubscribe(viewer.ConnID())
		that.publishPresence(ctx, previous)
	}

	return that.rooms.View(roomID, func(room *entity.Room) {
		viewer.Join(roomID)
		if !subscribed || previous != roomID {
			that.presence.Subscribe(roomID, userID, viewer.ConnID())
		}

		that.broadcaster.ToRoom(roomID, entity.ChannelPresenceUpdate, entity.PresenceUpdate{
			UsersName: that.presence.NamesInRoom(ctx, roomID),
		})

		viewer.Send(entity.ChannelChatHistory, room.ChatHistory())
	})
}

func (that *chatUseCase) SendChat(ctx context.Context, sender Viewer, roomID int, name, msg string) (entity.ChatMessage, error) {
	message := entity.NewChatMessage(name, msg, that.now().In(that.location))

	_, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		room.AppendChat(message)
		deliver(that.broadcaster, sender, roomID, entity.ChannelChatMessage, message)

		return nil
	})
	if err != nil {
		return entity.ChatMessage{}, err
	}

	return message, nil
}

// Disconnect forgets the connection and refreshes the viewer list of the room it watched.
func (that *chatUseCase) Disconnect(ctx context.Context, connID string) {
	roomID, ok := that.presence.Unsubscribe(connID)
	if !ok {
		return
	}

	that.publishPresence(ctx, roomID)
}

func (that *chatUseCase) publishPresence(ctx context.Context, roomID int) {
	err := that.rooms.View(roomID, func(*entity.Room) {
		that.broadcaster.ToRoom(roomID, entity.ChannelPresenceUpdate, entity.PresenceUpdate{
			UsersName: that.presence.NamesInRoom(ctx, roomID),
		})
	})
	if err != nil {
		that.logger.Debug("skipped presence update", "roomID", roomID, "error", err)
	}
}

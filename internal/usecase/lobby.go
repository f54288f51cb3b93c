package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

const (
	createdAnnouncement = "が、ルームを作成しました。"
	enterAnnouncement   = "さんが入室しました。"
	exitAnnouncement    = "さんが退出しました。"
)

var errNotLastMember = errors.New("room has other members")

type LobbyUseCase interface {
	ListRooms() []*entity.Room
	GetRoom(roomID int) (*entity.Room, error)
	CreateRoom(ctx context.Context, userID int, name string, maxMembers int) (*entity.Room, error)
	EnterRoom(ctx context.Context, userID, roomID int) (*entity.Room, error)
	ExitRoom(ctx context.Context, userID, roomID int) error
}

type memberAccounts interface {
	GetByID(ctx context.Context, id int) (*entity.Account, error)
	UpdateRoom(ctx context.Context, id, roomID int) error
}

type lobbyUseCase struct {
	logger      *slog.Logger
	rooms       *RoomDirectory
	accounts    memberAccounts
	broadcaster Broadcaster

	location *time.Location
	now      func() time.Time
}

func NewLobbyUseCase(
	logger *slog.Logger,
	rooms *RoomDirectory,
	accounts memberAccounts,
	broadcaster Broadcaster,
	location *time.Location,
) LobbyUseCase {
	return &lobbyUseCase{
		logger:      logger.With("component", "lobby"),
		rooms:       rooms,
		accounts:    accounts,
		broadcaster: broadcaster,
		location:    location,
		now:         time.Now,
	}
}

func (that *lobbyUseCase) ListRooms() []*entity.Room {
	return that.rooms.List()
}

func (that *lobbyUseCase) GetRoom(roomID int) (*entity.Room, error) {
	return that.rooms.Snapshot(roomID)
}

// CreateRoom opens a room with the user as its first member.
func (that *lobbyUseCase) CreateRoom(ctx context.Context, userID int, name string, maxMembers int) (*entity.Room, error) {
	log := that.logger.With("method", "CreateRoom", "userID", userID)

	account, err := that.lobbyAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	draft := entity.NewRoom(0, name, maxMembers)
	draft.AddMember(account.ID)
	draft.AppendChat(that.announcement(account.Name, createdAnnouncement))

	room, err := that.rooms.Create(ctx, draft, func(room *entity.Room) {
		that.broadcaster.ToAll(entity.ChannelLobbyUpdate, entity.LobbyUpdate{
			Flag:   entity.LobbyFlagCreate,
			RoomID: room.ID,
			Room:   room.Clone(),
		})
	})
	if err != nil {
		return nil, err
	}

	if err = that.accounts.UpdateRoom(ctx, account.ID, room.ID); err != nil {
		return nil, fmt.Errorf("failed to move account into room: %w", err)
	}

	log.Info("room created", "roomID", room.ID)

	return room, nil
}

// EnterRoom adds the user to the room. Entering the room the user is already in is a no-op.
func (that *lobbyUseCase) EnterRoom(ctx context.Context, userID, roomID int) (*entity.Room, error) {
	account, err := that.account(ctx, userID)
	if err != nil {
		return nil, err
	}

	if account.RoomID == roomID {
		return that.rooms.Snapshot(roomID)
	}

	if !account.InLobby() {
		return nil, fmt.Errorf("%w: room %d", apperror.ErrAlreadyInRoom, account.RoomID)
	}

	room, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		if room.IsFull() {
			return fmt.Errorf("%w: %d", apperror.ErrRoomFull, roomID)
		}

		room.AddMember(userID)

		message := that.announcement(account.Name, enterAnnouncement)
		room.AppendChat(message)

		that.broadcaster.ToRoom(roomID, entity.ChannelChatMessage, message)
		that.broadcaster.ToAll(entity.ChannelLobbyUpdate, entity.LobbyUpdate{
			Flag:   entity.LobbyFlagUser,
			RoomID: roomID,
			Room:   room.Clone(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = that.accounts.UpdateRoom(ctx, userID, roomID); err != nil {
		return nil, fmt.Errorf("failed to move account into room: %w", err)
	}

	return room, nil
}

// ExitRoom takes the user out of the room. The last member leaving deletes the room.
func (that *lobbyUseCase) ExitRoom(ctx context.Context, userID, roomID int) error {
	log := that.logger.With("method", "ExitRoom", "userID", userID, "roomID", roomID)

	account, err := that.account(ctx, userID)
	if err != nil {
		return err
	}

	if account.InLobby() || account.RoomID != roomID {
		return fmt.Errorf("%w: %d", apperror.ErrNotInRoom, roomID)
	}

	for {
		err = that.rooms.Remove(ctx, roomID, func(room *entity.Room) error {
			// an empty room is deleted as well
			lastMember := len(room.MemberIDs) == 1 && room.HasMember(userID)
			if len(room.MemberIDs) > 0 && !lastMember {
				return errNotLastMember
			}

			that.broadcaster.ToAll(entity.ChannelLobbyUpdate, entity.LobbyUpdate{
				Flag:   entity.LobbyFlagDestroy,
				RoomID: roomID,
			})

			return nil
		})
		if err == nil {
			log.Info("room destroyed")
			break
		}

		if !errors.Is(err, errNotLastMember) {
			return err
		}

		_, err = that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
			if !room.HasMember(userID) {
				return fmt.Errorf("%w: %d", apperror.ErrNotInRoom, roomID)
			}

			if room.RemoveMember(userID) {
				return errNotLastMember
			}

			message := that.announcement(account.Name, exitAnnouncement)
			room.AppendChat(message)

			that.broadcaster.ToRoom(roomID, entity.ChannelChatMessage, message)
			that.broadcaster.ToAll(entity.ChannelLobbyUpdate, entity.LobbyUpdate{
				Flag:   entity.LobbyFlagUser,
				RoomID: roomID,
				Room:   room.Clone(),
			})

			return nil
		})
		if err == nil {
			break
		}

		if errors.Is(err, apperror.ErrNotInRoom) {
			log.Warn("account pointed at a room without it, moving it to the lobby")
			break
		}

		if !errors.Is(err, errNotLastMember) {
			return err
		}
	}

	if err = that.accounts.UpdateRoom(ctx, userID, entity.LobbyRoomID); err != nil {
		return fmt.Errorf("failed to move account to lobby: %w", err)
	}

	return nil
}

// account loads the account and sends it back to the lobby when its room no longer exists.
func (that *lobbyUseCase) account(ctx context.Context, userID int) (*entity.Account, error) {
	account, err := that.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if account.InLobby() || that.rooms.Exists(account.RoomID) {
		return account, nil
	}

	that.logger.Info("account room is gone, back to lobby", "userID", userID, "roomID", account.RoomID)

	if err = that.accounts.UpdateRoom(ctx, userID, entity.LobbyRoomID); err != nil {
		return nil, fmt.Errorf("failed to reset account room: %w", err)
	}

	account.RoomID = entity.LobbyRoomID

	return account, nil
}

func (that *lobbyUseCase) lobbyAccount(ctx context.Context, userID int) (*entity.Account, error) {
	account, err := that.account(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !account.InLobby() {
		return nil, fmt.Errorf("%w: room %d", apperror.ErrAlreadyInRoom, account.RoomID)
	}

	return account, nil
}

func (that *lobbyUseCase) announcement(name, msg string) entity.ChatMessage {
	return entity.NewChatMessage(name, msg, that.now().In(that.location))
}

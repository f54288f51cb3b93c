package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

var errBadPayload = errors.New("bad payload")

// validate decodes the payload into target and applies check. Every handler goes through it
// before touching the use cases.
func (that *Server) validate(raw json.RawMessage, target any, roomID func() int, check func() error) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}

	if id := roomID(); !that.rooms.Exists(id) {
		return fmt.Errorf("%w: %d", apperror.ErrRoomNotFound, id)
	}

	if check != nil {
		return check()
	}

	return nil
}

func (that *Server) handleSubscribeChat(ctx context.Context, client *Client, raw json.RawMessage) error {
	var payload subscribeChatPayload

	err := that.validate(raw, &payload, func() int { return payload.RoomID }, func() error {
		return requireUser(payload.UserID)
	})
	if err != nil {
		return err
	}

	return that.chats.SubscribeChat(ctx, client, payload.RoomID, payload.UserID)
}

func (that *Server) handleSendChat(ctx context.Context, client *Client, raw json.RawMessage) error {
	var payload sendChatPayload

	err := that.validate(raw, &payload, func() int { return payload.RoomID }, func() error {
		if strings.TrimSpace(payload.Msg) == "" {
			return fmt.Errorf("%w: empty message", errBadPayload)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = that.chats.SendChat(ctx, client, payload.RoomID, payload.Name, payload.Msg)

	return err
}

func (that *Server) handleLoadGame(ctx context.Context, client *Client, raw json.RawMessage) error {
	var payload loadGamePayload

	if err := that.validate(raw, &payload, func() int { return payload.RoomID }, nil); err != nil {
		return err
	}

	return that.games.LoadGame(ctx, client, payload.RoomID)
}

func (that *Server) handleStepGame(ctx context.Context, client *Client, raw json.RawMessage) error {
	var payload stepGamePayload

	err := that.validate(raw, &payload, func() int { return payload.RoomID }, func() error {
		if payload.CellIndex == nil {
			return fmt.Errorf("%w: missing cellIndex", errBadPayload)
		}
		if cell := *payload.CellIndex; cell < 0 || cell >= entity.BoardSize {
			return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
		}
		return requireUser(payload.UserID)
	})
	if err != nil {
		return err
	}

	_, err = that.games.StepGame(ctx, client, payload.RoomID, payload.UserID, *payload.CellIndex)

	return err
}

func (that *Server) handleRematch(ctx context.Context, client *Client, raw json.RawMessage) error {
	var payload rematchPayload

	if err := that.validate(raw, &payload, func() int { return payload.RoomID }, nil); err != nil {
		return err
	}

	_, err := that.games.Rematch(ctx, client, payload.RoomID, payload.UserID)

	return err
}

func (that *Server) handleRobotJoin(ctx context.Context, client *Client, raw json.RawMessage) error {
	var payload robotJoinPayload

	err := that.validate(raw, &payload, func() int { return payload.RoomID }, func() error {
		if payload.TurnIndex == nil {
			return fmt.Errorf("%w: missing turnIndex", errBadPayload)
		}
		if turn := *payload.TurnIndex; turn != entity.PlayerA && turn != entity.PlayerB {
			return fmt.Errorf("%w: %d", apperror.ErrInvalidSlot, turn)
		}
		if !entity.IsRobot(payload.RobotID) {
			return fmt.Errorf("%w: robot id %d", errBadPayload, payload.RobotID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = that.games.RobotJoin(ctx, client, payload.RoomID, *payload.TurnIndex, payload.RobotID)

	return err
}

func requireUser(userID int) error {
	if userID < 1 {
		return fmt.Errorf("%w: user id %d", errBadPayload, userID)
	}

	return nil
}

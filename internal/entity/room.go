package entity

import (
	"fmt"
	"slices"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
)

const (
	ChatLogCapacity = 10
	LobbyRoomID     = 0
)

type Room struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	MemberIDs  []int         `json:"memberIds"`
	MaxMembers int           `json:"maxMembers"`
	Status     GameStatus    `json:"status"`
	ChatLog    []ChatMessage `json:"chatLog"`
}

func NewRoom(id int, name string, maxMembers int) *Room {
	return &Room{
		ID:         id,
		Name:       name,
		MemberIDs:  []int{},
		MaxMembers: maxMembers,
		Status:     NewGameStatus(),
		ChatLog:    []ChatMessage{},
	}
}

func (that *Room) HasMember(userID int) bool {
	return slices.Contains(that.MemberIDs, userID)
}

// IsFull reports whether no more members fit. A non-positive limit means unlimited.
func (that *Room) IsFull() bool {
	return that.MaxMembers > 0 && len(that.MemberIDs) >= that.MaxMembers
}

// AddMember appends the user once; it returns false when the user was already a member.
func (that *Room) AddMember(userID int) bool {
	if that.HasMember(userID) {
		return false
	}

	that.MemberIDs = append(that.MemberIDs, userID)

	return true
}

// RemoveMember drops the user and reports whether the room is now empty.
func (that *Room) RemoveMember(userID int) bool {
	that.MemberIDs = slices.DeleteFunc(that.MemberIDs, func(id int) bool {
		return id == userID
	})

	return len(that.MemberIDs) == 0
}

func (that *Room) AppendChat(msg ChatMessage) {
	that.ChatLog = append(that.ChatLog, msg)

	if overflow := len(that.ChatLog) - ChatLogCapacity; overflow > 0 {
		that.ChatLog = slices.Delete(that.ChatLog, 0, overflow)
	}
}

func (that *Room) ResetGame() {
	that.Status = NewGameStatus()
}

func (that *Room) ClaimSlot(turnIndex, participantID int, name string) error {
	if turnIndex != PlayerA && turnIndex != PlayerB {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidSlot, turnIndex)
	}

	if !that.Status.IsSlotEmpty(turnIndex) {
		return fmt.Errorf("%w: slot %d", apperror.ErrSlotTaken, turnIndex)
	}

	that.Status.PlayersID[turnIndex] = participantID
	that.Status.PlayersName[turnIndex] = name

	return nil
}

func (that *Room) ChatHistory() []ChatMessage {
	return slices.Clone(that.ChatLog)
}

// Clone returns a deep copy that shares no slices with the receiver.
func (that *Room) Clone() *Room {
	clone := *that
	clone.MemberIDs = slices.Clone(that.MemberIDs)
	clone.ChatLog = slices.Clone(that.ChatLog)

	if clone.MemberIDs == nil {
		clone.MemberIDs = []int{}
	}

	if clone.ChatLog == nil {
		clone.ChatLog = []ChatMessage{}
	}

	return &clone
}

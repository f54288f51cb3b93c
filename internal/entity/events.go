package entity

import "fmt"

// Incoming realtime events.
const (
	EventSubscribeChat = "subscribe-chat"
	EventSendChat      = "send-chat"
	EventLoadGame      = "load-game"
	EventStepGame      = "step-game"
	EventRematch       = "rematch"
	EventRobotJoin     = "robot-join"
)

// Outgoing channels. Room-scoped ones are suffixed with ":{roomId}".
const (
	ChannelGameState      = "game-state"
	ChannelChatMessage    = "chat-message"
	ChannelRematchState   = "rematch-state"
	ChannelPresenceUpdate = "presence-update"
	ChannelChatHistory    = "chat-history"
	ChannelLobbyUpdate    = "lobby-update"
)

const (
	LobbyFlagCreate  = "create"
	LobbyFlagUser    = "user"
	LobbyFlagDestroy = "destroy"
)

func RoomChannel(channel string, roomID int) string {
	return fmt.Sprintf("%s:%d", channel, roomID)
}

type LobbyUpdate struct {
	Flag   string `json:"flag"`
	RoomID int    `json:"roomId"`
	Room   *Room  `json:"room,omitempty"`
}

type PresenceUpdate struct {
	UsersName []string `json:"usersName"`
}

package websocket

import (
	"encoding/json"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outgoing struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

type subscribeChatPayload struct {
	RoomID int `json:"roomId"`
	UserID int `json:"userId"`
}

type sendChatPayload struct {
	RoomID int    `json:"roomId"`
	Name   string `json:"name"`
	Msg    string `json:"msg"`
}

type loadGamePayload struct {
	RoomID int `json:"roomId"`
}

type stepGamePayload struct {
	RoomID    int  `json:"roomId"`
	UserID    int  `json:"userId"`
	CellIndex *int `json:"cellIndex"`
}

type rematchPayload struct {
	RoomID int `json:"roomId"`
	UserID int `json:"userId"`
}

type robotJoinPayload struct {
	RoomID    int  `json:"roomId"`
	TurnIndex *int `json:"turnIndex"`
	RobotID   int  `json:"robotId"`
}

func encode(action string, payload any) ([]byte, error) {
	return json.Marshal(outgoing{Action: action, Payload: payload})
}

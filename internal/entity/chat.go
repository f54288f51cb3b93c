package entity

import (
	"fmt"
	"time"
)

const weekdays = "日月火水木金土"

type ChatMessage struct {
	Name      string `json:"name"`
	Msg       string `json:"msg"`
	Timestamp string `json:"timestamp"`
}

func NewChatMessage(name, msg string, now time.Time) ChatMessage {
	return ChatMessage{
		Name:      name,
		Msg:       msg,
		Timestamp: FormatTimestamp(now),
	}
}

// FormatTimestamp renders "M/D (曜) HH:MM".
func FormatTimestamp(t time.Time) string {
	day := []rune(weekdays)[t.Weekday()]

	return fmt.Sprintf("%d/%d (%c) %02d:%02d", t.Month(), t.Day(), day, t.Hour(), t.Minute())
}

package bus

import (
	"time"

	"carebot/pkg/care"
)

type EventType string

const (
	EventMessageReceived EventType = "message_received"
	EventMessageRouted   EventType = "message_routed"
	EventMessageFailed   EventType = "message_failed"
)

// Event is one observability record published while routing a message.
type Event struct {
	Type       EventType     `json:"type"`
	At         time.Time     `json:"at"`
	Channel    string        `json:"channel,omitempty"`
	ChatID     string        `json:"chat_id,omitempty"`
	SessionKey string        `json:"session_key,omitempty"`
	Lang       care.Lang     `json:"lang,omitempty"`
	Category   care.Category `json:"category,omitempty"`
	Error      string        `json:"error,omitempty"`
}

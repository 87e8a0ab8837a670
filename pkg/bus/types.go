package bus

import "carebot/pkg/care"

// InboundMessage is one user message normalized from a channel transport.
type InboundMessage struct {
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id"`
	ChatID     string            `json:"chat_id"`
	SessionKey string            `json:"session_key"`
	Text       string            `json:"text"`
	Lang       care.Lang         `json:"lang"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is one bot reply addressed back to a channel transport.
type OutboundMessage struct {
	Channel     string            `json:"channel"`
	ChatID      string            `json:"chat_id"`
	SessionKey  string            `json:"session_key,omitempty"`
	Content     string            `json:"content"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Category    care.Category     `json:"category,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

package whatsapp

import (
	"fmt"
	"strings"

	"carebot/pkg/bus"
	"carebot/pkg/care"
)

// Cloud API button titles are capped at 20 characters.
const buttonTitleLimit = 20

// webhookPayload is the subset of the Cloud API webhook envelope we consume.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID   string `json:"id"`
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Interactive struct {
						Type        string `json:"type"`
						ButtonReply struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// inboundText is one normalized text-bearing message from the webhook.
type inboundText struct {
	ID   string
	From string
	Text string
}

// textMessages flattens the webhook envelope into text messages. Button
// replies carry their title as the message text; other message types
// (media, reactions, status updates) are skipped.
func (p webhookPayload) textMessages() []inboundText {
	var messages []inboundText
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				text := ""
				switch message.Type {
				case "text":
					text = message.Text.Body
				case "interactive":
					text = message.Interactive.ButtonReply.Title
				}

				text = strings.TrimSpace(text)
				if text == "" || strings.TrimSpace(message.From) == "" {
					continue
				}

				messages = append(messages, inboundText{
					ID:   message.ID,
					From: message.From,
					Text: text,
				})
			}
		}
	}

	return messages
}

// replyPayload builds the outbound Graph API message body. Suggestions map
// to interactive reply buttons, capped at the platform limit of three.
func replyPayload(to string, outbound bus.OutboundMessage) map[string]any {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
	}

	suggestions := outbound.Suggestions
	if len(suggestions) > care.MaxSuggestions {
		suggestions = suggestions[:care.MaxSuggestions]
	}

	if len(suggestions) == 0 {
		payload["type"] = "text"
		payload["text"] = map[string]any{"body": outbound.Content}
		return payload
	}

	buttons := make([]map[string]any, 0, len(suggestions))
	for i, suggestion := range suggestions {
		buttons = append(buttons, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    fmt.Sprintf("suggestion_%d", i+1),
				"title": buttonTitle(suggestion),
			},
		})
	}

	payload["type"] = "interactive"
	payload["interactive"] = map[string]any{
		"type": "button",
		"body": map[string]any{"text": outbound.Content},
		"action": map[string]any{
			"buttons": buttons,
		},
	}

	return payload
}

func buttonTitle(title string) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= buttonTitleLimit {
		return string(runes)
	}

	return string(runes[:buttonTitleLimit-1]) + "…"
}

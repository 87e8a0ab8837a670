package channel

import (
	"context"

	"carebot/pkg/bus"
)

// Handler routes one inbound channel message and returns the outbound reply.
type Handler func(context.Context, bus.InboundMessage) (bus.OutboundMessage, error)

// Adapter bridges one external transport (WhatsApp, web chat, Telegram)
// into the care gateway. Adapters own transport concerns: webhook
// verification, language selection, and converting reply suggestions into
// platform quick replies.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}

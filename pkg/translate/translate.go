// Package translate implements the translation capability consumed by the
// care orchestrator.
package translate

import (
	"context"
	"log/slog"

	"carebot/pkg/care"
	"carebot/pkg/config"
)

// New builds the configured translator. A disabled translate section yields
// the identity translator so callers never need a nil check.
func New(cfg *config.Config, log *slog.Logger) care.Translator {
	if cfg == nil || !cfg.Translate.Enabled {
		return Noop{}
	}

	return newGoogleTranslator(cfg.Translate, log)
}

// Noop is the synchronous identity translator. It still honors the Safe
// scrub option so degraded configurations keep the delivery guarantees.
type Noop struct{}

// Translate returns the input unchanged, scrubbed when opts.Safe is set.
func (Noop) Translate(_ context.Context, text string, opts care.TranslateOptions) string {
	if opts.Safe {
		return Scrub(text)
	}

	return text
}

// Package knowledge implements the semantic search capability consumed by
// the care orchestrator.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"carebot/pkg/config"
)

// New builds the knowledge searcher from config: load the corpus, construct
// the OpenAI embedder, embed the corpus and return the ready index.
//
// A disabled knowledge section yields (nil, nil); the orchestrator
// substitutes a degraded searcher for nil.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Index, error) {
	if cfg == nil || !cfg.Knowledge.Enabled {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}

	docs, err := LoadCorpus(cfg.Knowledge.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("load knowledge corpus: %w", err)
	}

	embedder, err := newOpenAIEmbedder(cfg.Knowledge)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	index, err := NewIndex(ctx, docs, embedder, cfg.Knowledge.MinScore, log)
	if err != nil {
		return nil, fmt.Errorf("build knowledge index: %w", err)
	}

	return index, nil
}

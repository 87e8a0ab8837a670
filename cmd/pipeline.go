package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"carebot/pkg/care"
	"carebot/pkg/care/content"
	"carebot/pkg/config"
	"carebot/pkg/knowledge"
	"carebot/pkg/translate"
)

// pipeline bundles the routing orchestrator with the content and
// capabilities it was built from.
type pipeline struct {
	orchestrator *care.Orchestrator
	topics       care.Topics
	knowledge    bool
	translate    bool
}

func newPipeline(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pipeline, error) {
	topics, err := loadTopics(cfg)
	if err != nil {
		return nil, err
	}

	lexicon, err := loadLexicon(cfg)
	if err != nil {
		return nil, err
	}

	index, err := knowledge.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize knowledge index: %w", err)
	}

	var searcher care.Searcher
	if index != nil {
		searcher = index
	}

	translator := translate.New(cfg, log)

	return &pipeline{
		orchestrator: care.NewOrchestrator(topics, lexicon, searcher, translator, log),
		topics:       topics,
		knowledge:    index != nil,
		translate:    cfg.Translate.Enabled,
	}, nil
}

func loadTopics(cfg *config.Config) (care.Topics, error) {
	if path := cfg.Care.TopicsPath; path != "" {
		return content.TopicsFromFile(path)
	}

	return content.Topics()
}

func loadLexicon(cfg *config.Config) (care.Lexicon, error) {
	if path := cfg.Care.LexiconPath; path != "" {
		return content.LexiconFromFile(path)
	}

	return content.Lexicon()
}

package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"carebot/pkg/config"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// Embedder turns text into dense vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// openAIEmbedder embeds text through the OpenAI embeddings API.
type openAIEmbedder struct {
	client         osdk.Client
	model          string
	requestTimeout time.Duration
}

func newOpenAIEmbedder(cfg config.KnowledgeConfig) (*openAIEmbedder, error) {
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		return nil, errors.New("knowledge.api_key_env is required or OPENAI_API_KEY must be set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	opts = append(opts, option.WithRequestTimeout(requestTimeout))

	model := strings.TrimSpace(cfg.EmbeddingModel)
	if model == "" {
		model = defaultEmbeddingModel
	}

	return &openAIEmbedder{
		client:         osdk.NewClient(opts...),
		model:          model,
		requestTimeout: requestTimeout,
	}, nil
}

func (e *openAIEmbedder) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	log := embedderLogger().With("operation", "embed")
	startedAt := time.Now()
	log.Debug("embedding request started", "model", e.model, "inputs", len(inputs))

	response, err := e.client.Embeddings.New(ctx, osdk.EmbeddingNewParams{
		Input: osdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: osdk.EmbeddingModel(e.model),
	})
	if err != nil {
		log.Debug("embedding request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return nil, fmt.Errorf("embed %d inputs: %w", len(inputs), err)
	}
	if len(response.Data) != len(inputs) {
		log.Debug("embedding request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "result count mismatch")
		return nil, fmt.Errorf("embed returned %d vectors for %d inputs", len(response.Data), len(inputs))
	}

	vectors := make([][]float64, len(response.Data))
	for i, item := range response.Data {
		vectors[i] = item.Embedding
	}
	log.Debug("embedding request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return vectors, nil
}

func embedderLogger() *slog.Logger {
	return slog.Default().With("component", "knowledge.embedder")
}

func resolveAPIKey(cfg config.KnowledgeConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

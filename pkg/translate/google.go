package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"carebot/pkg/care"
	"carebot/pkg/config"
)

const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// googleTranslator calls the Google Cloud Translation v2 REST API.
//
// Translation is best-effort: every failure path returns the input text
// unchanged, so a translation outage can never block a care response.
type googleTranslator struct {
	endpoint       string
	apiKey         string
	client         *http.Client
	requestTimeout time.Duration
	log            *slog.Logger
}

func newGoogleTranslator(cfg config.TranslateConfig, log *slog.Logger) *googleTranslator {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}

	if log == nil {
		log = slog.Default()
	}

	return &googleTranslator{
		endpoint:       endpoint,
		apiKey:         resolveAPIKey(cfg),
		client:         &http.Client{Timeout: requestTimeout},
		requestTimeout: requestTimeout,
		log:            log.With("component", "translate.google"),
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate implements care.Translator.
func (g *googleTranslator) Translate(ctx context.Context, text string, opts care.TranslateOptions) string {
	if strings.TrimSpace(text) == "" || opts.Target == "" {
		return text
	}

	translated, err := g.request(ctx, text, opts)
	if err != nil {
		g.log.Warn("Translation failed, passing text through", "target", opts.Target, "error", err)
		translated = text
	}

	if opts.Safe {
		return Scrub(translated)
	}

	return translated
}

func (g *googleTranslator) request(ctx context.Context, text string, opts care.TranslateOptions) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("translate api key is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: string(opts.Source),
		Target: string(opts.Target),
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("encode translate request: %w", err)
	}

	endpoint := g.endpoint + "?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startedAt := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate request returned status %d", resp.StatusCode)
	}

	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if len(decoded.Data.Translations) == 0 {
		return "", fmt.Errorf("translate response contains no translations")
	}

	g.log.Debug("translate request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "target", opts.Target)

	return decoded.Data.Translations[0].TranslatedText, nil
}

func resolveAPIKey(cfg config.TranslateConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("GOOGLE_TRANSLATE_API_KEY"))
}

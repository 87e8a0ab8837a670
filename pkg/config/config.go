package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envTelegramBotToken    = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom   = "TELEGRAM_ALLOW_FROM"
	envWhatsAppAccessToken = "WHATSAPP_ACCESS_TOKEN"
	envWhatsAppVerifyToken = "WHATSAPP_VERIFY_TOKEN"
	envWhatsAppAppSecret   = "WHATSAPP_APP_SECRET"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Care      CareConfig      `json:"care"`
	Channels  ChannelsConfig  `json:"channels"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Translate TranslateConfig `json:"translate"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// CareConfig contains orchestrator content settings.
type CareConfig struct {
	// TopicsPath and LexiconPath override the built-in content packs.
	TopicsPath  string `json:"topics_path,omitempty"`
	LexiconPath string `json:"lexicon_path,omitempty"`
	DefaultLang string `json:"default_lang,omitempty"`
}

// KnowledgeConfig configures the semantic knowledge searcher.
type KnowledgeConfig struct {
	Enabled               bool    `json:"enabled"`
	CorpusPath            string  `json:"corpus_path"`
	EmbeddingModel        string  `json:"embedding_model"`
	APIKeyEnv             string  `json:"api_key_env,omitempty"`
	BaseURL               string  `json:"base_url,omitempty"`
	MinScore              float64 `json:"min_score,omitempty"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds,omitempty"`
}

// TranslateConfig configures the translation capability.
type TranslateConfig struct {
	Enabled               bool   `json:"enabled"`
	Endpoint              string `json:"endpoint,omitempty"`
	APIKeyEnv             string `json:"api_key_env,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	WebChat  WebChatConfig  `json:"webchat"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// WhatsAppConfig configures the Meta WhatsApp Cloud API webhook channel.
type WhatsAppConfig struct {
	Enabled       bool   `json:"enabled"`
	ListenAddr    string `json:"listen_addr"`
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	VerifyToken   string `json:"verify_token"`
	AppSecret     string `json:"app_secret"`
	GraphBaseURL  string `json:"graph_base_url,omitempty"`
	DefaultLang   string `json:"default_lang,omitempty"`
}

// WebChatConfig configures the web chat HTTP channel.
type WebChatConfig struct {
	Enabled     bool   `json:"enabled"`
	ListenAddr  string `json:"listen_addr"`
	DefaultLang string `json:"default_lang,omitempty"`
}

// GatewayConfig configures gateway status endpoint bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects secret-bearing settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if token := strings.TrimSpace(os.Getenv(envWhatsAppAccessToken)); token != "" {
		cfg.Channels.WhatsApp.AccessToken = token
	}
	if token := strings.TrimSpace(os.Getenv(envWhatsAppVerifyToken)); token != "" {
		cfg.Channels.WhatsApp.VerifyToken = token
	}
	if secret := strings.TrimSpace(os.Getenv(envWhatsAppAppSecret)); secret != "" {
		cfg.Channels.WhatsApp.AppSecret = secret
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is CAREBOT_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("CAREBOT_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("CAREBOT_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}

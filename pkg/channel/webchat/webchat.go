// Package webchat exposes the care orchestrator as a JSON chat endpoint for
// the web client.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"carebot/pkg/bus"
	"carebot/pkg/care"
	"carebot/pkg/channel"
	"carebot/pkg/config"

	"github.com/google/uuid"
)

const channelName = "webchat"
const maxRequestBody = 64 << 10

// Adapter serves POST /chat for the web client.
type Adapter struct {
	cfg  config.WebChatConfig
	lang care.Lang
	log  *slog.Logger
}

type chatRequest struct {
	Text      string `json:"text"`
	Lang      string `json:"lang,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	care.Response
	SessionID string `json:"session_id"`
}

// NewAdapter validates web chat configuration and constructs an adapter.
func NewAdapter(cfg config.WebChatConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("channels.webchat.listen_addr is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:  cfg,
		lang: care.ParseLang(cfg.DefaultLang),
		log:  log.With("component", "channel.webchat"),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run serves the chat endpoint until the context is canceled.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		a.handleChat(w, r, handler)
	})

	server := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.log.Info("Web chat channel started", "address", a.cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve web chat: %w", err)
	}

	return nil
}

func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request, handler channel.Handler) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sessionID := strings.TrimSpace(request.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	lang := a.lang
	if value := strings.TrimSpace(request.Lang); value != "" {
		lang = care.ParseLang(value)
	}

	inbound := bus.InboundMessage{
		Channel:    channelName,
		SenderID:   sessionID,
		ChatID:     sessionID,
		SessionKey: sessionKey(sessionID),
		Text:       request.Text,
		Lang:       lang,
	}
	a.log.Info("Received message", "session_key", inbound.SessionKey, "lang", lang)

	outbound, err := handler(r.Context(), inbound)
	if err != nil {
		a.log.Error("Failed to route inbound message", "error", err)
		http.Error(w, "routing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{
		Response: care.Response{
			Type:        "bot",
			Content:     outbound.Content,
			Suggestions: outbound.Suggestions,
			Category:    outbound.Category,
		},
		SessionID: sessionID,
	})
}

// sessionKey maps one web session to one care session namespace.
func sessionKey(sessionID string) string {
	return "webchat:" + strings.TrimSpace(sessionID)
}

// Package whatsapp bridges the Meta WhatsApp Cloud API webhook into the
// care gateway.
package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"carebot/pkg/bus"
	"carebot/pkg/care"
	"carebot/pkg/channel"
	"carebot/pkg/config"
)

const channelName = "whatsapp"
const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"
const maxWebhookBody = 1 << 20
const routeConcurrency = 32
const seenMessageLimit = 512

// Adapter serves the Cloud API webhook and delivers replies through the
// Graph API. Incoming messages are acked immediately and routed in the
// background, keeping webhook response times inside Meta's window.
type Adapter struct {
	cfg    config.WhatsAppConfig
	lang   care.Lang
	client *http.Client
	log    *slog.Logger
	seen   *seenCache
	routes chan struct{}
}

// seenCache remembers recent message IDs so webhook retries from Meta do
// not route the same message twice. Oldest IDs fall out once the limit is
// reached.
type seenCache struct {
	mu    sync.Mutex
	limit int
	order []string
	ids   map[string]struct{}
}

func newSeenCache(limit int) *seenCache {
	return &seenCache{limit: limit, ids: make(map[string]struct{}, limit)}
}

// MarkSeen records a message ID and reports whether it was already present.
// IDs without content never count as seen.
func (c *seenCache) MarkSeen(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ids[id]; ok {
		return true
	}

	c.ids[id] = struct{}{}
	c.order = append(c.order, id)
	if len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.ids, oldest)
	}

	return false
}

// NewAdapter validates WhatsApp configuration and constructs an adapter.
func NewAdapter(cfg config.WhatsAppConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("channels.whatsapp.listen_addr is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("channels.whatsapp.phone_number_id is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("channels.whatsapp.access_token is required")
	}
	if strings.TrimSpace(cfg.VerifyToken) == "" {
		return nil, errors.New("channels.whatsapp.verify_token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:    cfg,
		lang:   care.ParseLang(cfg.DefaultLang),
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With("component", "channel.whatsapp"),
		seen:   newSeenCache(seenMessageLimit),
		routes: make(chan struct{}, routeConcurrency),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run serves the webhook until the context is canceled.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			a.handleVerify(w, r)
		case http.MethodPost:
			a.handleWebhook(ctx, w, r, handler)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
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

	a.log.Info("WhatsApp webhook started", "address", a.cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve whatsapp webhook: %w", err)
	}

	return nil
}

// handleVerify answers the Cloud API subscription handshake.
func (a *Adapter) handleVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || token != a.cfg.VerifyToken {
		a.log.Warn("Webhook verification rejected", "mode", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	a.log.Info("Webhook verified")
	_, _ = io.WriteString(w, challenge)
}

func (a *Adapter) handleWebhook(ctx context.Context, w http.ResponseWriter, r *http.Request, handler channel.Handler) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if !a.signatureValid(r.Header.Get("X-Hub-Signature-256"), body) {
		a.log.Warn("Webhook signature rejected")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "parse payload", http.StatusBadRequest)
		return
	}

	// Ack before routing: Meta retries webhooks that respond slowly.
	w.WriteHeader(http.StatusOK)

	for _, message := range payload.textMessages() {
		// Take a routing slot before marking the ID seen, so a message
		// dropped under load still routes on the webhook retry.
		select {
		case a.routes <- struct{}{}:
		default:
			a.log.Warn("Routing queue full, leaving message to webhook retry", "message_id", message.ID)
			continue
		}

		if a.seen.MarkSeen(message.ID) {
			<-a.routes
			a.log.Debug("Skipping duplicate webhook message", "message_id", message.ID)
			continue
		}

		go func() {
			defer func() { <-a.routes }()
			a.routeMessage(ctx, handler, message)
		}()
	}
}

// signatureValid checks the X-Hub-Signature-256 HMAC. When no app secret is
// configured, signature checking is disabled.
func (a *Adapter) signatureValid(header string, body []byte) bool {
	secret := strings.TrimSpace(a.cfg.AppSecret)
	if secret == "" {
		return true
	}

	signature, ok := strings.CutPrefix(strings.TrimSpace(header), "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (a *Adapter) routeMessage(ctx context.Context, handler channel.Handler, message inboundText) {
	inbound := bus.InboundMessage{
		Channel:    channelName,
		SenderID:   message.From,
		ChatID:     message.From,
		SessionKey: sessionKey(message.From),
		Text:       message.Text,
		Lang:       a.lang,
		Metadata:   map[string]string{"message_id": message.ID},
	}
	a.log.Info("Received message", "chat_id", inbound.ChatID, "session_key", inbound.SessionKey)

	outbound, err := handler(ctx, inbound)
	if err != nil {
		a.log.Error("Failed to route inbound message", "error", err)
		return
	}
	if strings.TrimSpace(outbound.Content) == "" {
		return
	}

	if err := a.send(ctx, message.From, outbound); err != nil {
		a.log.Error("Failed to send whatsapp message", "chat_id", inbound.ChatID, "error", err)
	}
}

// send delivers one reply through the Graph API, using an interactive
// button payload when suggestions are present.
func (a *Adapter) send(ctx context.Context, to string, outbound bus.OutboundMessage) error {
	payload, err := json.Marshal(replyPayload(to, outbound))
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	endpoint := a.graphBaseURL() + "/" + a.cfg.PhoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}

	return nil
}

func (a *Adapter) graphBaseURL() string {
	if base := strings.TrimSpace(a.cfg.GraphBaseURL); base != "" {
		return strings.TrimSuffix(base, "/")
	}

	return defaultGraphBaseURL
}

// sessionKey maps one WhatsApp sender to one care session namespace.
func sessionKey(waID string) string {
	return "whatsapp:" + strings.TrimSpace(waID)
}

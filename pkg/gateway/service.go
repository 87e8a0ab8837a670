package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"carebot/pkg/bus"
	"carebot/pkg/care"
	"carebot/pkg/channel"
	"carebot/pkg/config"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 18790
)

// Service runs the channel adapters and routes every inbound message
// through the care orchestrator.
type Service struct {
	cfg          *config.Config
	log          *slog.Logger
	orchestrator *care.Orchestrator
	sessions     *sessionStore
	events       *bus.EventBus
	channels     []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	channelStates map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Sessions      int                     `json:"sessions"`
	Channels      map[string]channelState `json:"channels"`
}

type sessionsResponse struct {
	Sessions map[string]int `json:"sessions"`
}

func NewService(cfg *config.Config, orchestrator *care.Orchestrator, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		orchestrator:  orchestrator,
		sessions:      newSessionStore(0),
		events:        bus.NewEventBus(),
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// Events exposes the routing event stream for subscribers such as the
// event log.
func (s *Service) Events() *bus.EventBus {
	return s.events
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	go s.runStatusServer(ctx, serverErrors)
	go s.logEvents(ctx)

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		adapter := adapter
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.handleInbound)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.events.Publish(ctx, bus.Event{
					Type:    bus.EventMessageFailed,
					At:      time.Now().UTC(),
					Channel: adapter.Name(),
					Error:   err.Error(),
				})
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		s.events.Close()
		return nil
	case err := <-serverErrors:
		s.events.Close()
		return err
	case err := <-errCh:
		s.events.Close()
		return err
	}
}

func (s *Service) handleInbound(ctx context.Context, inbound bus.InboundMessage) (outbound bus.OutboundMessage, err error) {
	// A panicking capability surfaces as a handler error and a
	// message_failed event instead of taking the adapter down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route %s message: %v", inbound.Channel, r)
			s.log.Error("Message routing panicked", "channel", inbound.Channel, "session", inbound.SessionKey, "error", err)
			s.events.Publish(ctx, bus.Event{
				Type:       bus.EventMessageFailed,
				At:         time.Now().UTC(),
				Channel:    inbound.Channel,
				ChatID:     inbound.ChatID,
				SessionKey: inbound.SessionKey,
				Lang:       inbound.Lang,
				Error:      err.Error(),
			})
			outbound = bus.OutboundMessage{
				Channel:    inbound.Channel,
				ChatID:     inbound.ChatID,
				SessionKey: inbound.SessionKey,
				Error:      err.Error(),
			}
		}
	}()

	now := time.Now().UTC()
	s.events.Publish(ctx, bus.Event{
		Type:       bus.EventMessageReceived,
		At:         now,
		Channel:    inbound.Channel,
		ChatID:     inbound.ChatID,
		SessionKey: inbound.SessionKey,
		Lang:       inbound.Lang,
	})

	response := s.orchestrator.Route(ctx, care.Message{Text: inbound.Text, Lang: inbound.Lang})

	s.sessions.Append(inbound.SessionKey, Turn{Role: "user", Content: inbound.Text, At: now})
	s.sessions.Append(inbound.SessionKey, Turn{
		Role:     "bot",
		Content:  response.Content,
		Category: response.Category,
		At:       time.Now().UTC(),
	})

	s.events.Publish(ctx, bus.Event{
		Type:       bus.EventMessageRouted,
		At:         time.Now().UTC(),
		Channel:    inbound.Channel,
		ChatID:     inbound.ChatID,
		SessionKey: inbound.SessionKey,
		Lang:       inbound.Lang,
		Category:   response.Category,
	})

	return bus.OutboundMessage{
		Channel:     inbound.Channel,
		ChatID:      inbound.ChatID,
		SessionKey:  inbound.SessionKey,
		Content:     response.Content,
		Suggestions: response.Suggestions,
		Category:    response.Category,
	}, nil
}

func (s *Service) logEvents(ctx context.Context) {
	events, unsubscribe := s.events.Subscribe(ctx, 64)
	defer unsubscribe()

	for event := range events {
		switch event.Type {
		case bus.EventMessageFailed:
			s.log.Warn("Message failed", "channel", event.Channel, "session", event.SessionKey, "error", event.Error)
		case bus.EventMessageRouted:
			s.log.Debug("Message routed", "channel", event.Channel, "session", event.SessionKey, "category", event.Category)
		default:
			s.log.Debug("Message received", "channel", event.Channel, "session", event.SessionKey, "lang", event.Lang)
		}
	}
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/sessions", s.handleSessions)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) handleSessions(w http.ResponseWriter, _ *http.Request) {
	payload := sessionsResponse{Sessions: s.sessions.Summary()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write sessions response", "error", err)
	}
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Sessions:      len(s.sessions.Summary()),
		Channels:      channels,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.channelStates) == 0 {
		return false
	}

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

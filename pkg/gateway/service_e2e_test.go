package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"carebot/pkg/bus"
	"carebot/pkg/care"
	"carebot/pkg/care/content"
	"carebot/pkg/channel"
	"carebot/pkg/config"

	"github.com/stretchr/testify/require"
)

type recordingGatewaySearcher struct {
	mu      sync.Mutex
	queries []care.Query
}

func (s *recordingGatewaySearcher) Search(_ context.Context, query care.Query) []care.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return []care.Snippet{{ID: "doc-1", Score: 0.9, Text: "Sleep and exercise both lower stress over time."}}
}

func (s *recordingGatewaySearcher) snapshot() []care.Query {
	s.mu.Lock()
	defer s.mu.Unlock()

	queries := make([]care.Query, len(s.queries))
	copy(queries, s.queries)
	return queries
}

type scriptedAdapter struct {
	name    string
	inbound []bus.InboundMessage

	mu       sync.Mutex
	outbound []bus.OutboundMessage
	done     chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		outbound, err := handler(ctx, inbound)
		if err != nil {
			return err
		}

		a.mu.Lock()
		a.outbound = append(a.outbound, outbound)
		a.mu.Unlock()
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

func (a *scriptedAdapter) outbounds() []bus.OutboundMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	outbound := make([]bus.OutboundMessage, len(a.outbound))
	copy(outbound, a.outbound)
	return outbound
}

func newTestService(t *testing.T, adapter *scriptedAdapter, searcher care.Searcher, port int) *Service {
	t.Helper()

	topics, err := content.Topics()
	require.NoError(t, err)

	lexicon, err := content.Lexicon()
	require.NoError(t, err)

	cfg := &config.Config{
		Gateway: config.GatewayConfig{
			Host: "127.0.0.1",
			Port: port,
		},
	}

	orchestrator := care.NewOrchestrator(topics, lexicon, searcher, nil, slog.Default())
	svc, err := NewService(cfg, orchestrator, []channel.Adapter{adapter}, slog.Default())
	require.NoError(t, err)

	return svc
}

func TestGatewayServiceRunE2ERoutesThroughPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	searcher := &recordingGatewaySearcher{}
	adapter := &scriptedAdapter{
		name: "telegram",
		inbound: []bus.InboundMessage{
			{Channel: "telegram", ChatID: "100", SessionKey: "telegram:100", Text: "I want to kill myself", Lang: care.LangEnglish},
			{Channel: "telegram", ChatID: "100", SessionKey: "telegram:100", Text: "I feel anxious all the time", Lang: care.LangEnglish},
			{Channel: "telegram", ChatID: "200", SessionKey: "telegram:200", Text: "how do I sleep better", Lang: care.LangEnglish},
		},
		done: make(chan struct{}),
	}

	svc := newTestService(t, adapter, searcher, freeTCPPort(t))

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	outbounds := adapter.outbounds()
	require.Len(t, outbounds, 3)

	require.Equal(t, care.CategorySafety, outbounds[0].Category)
	require.NotEmpty(t, outbounds[0].Content)
	require.Equal(t, "telegram:100", outbounds[0].SessionKey)

	require.Equal(t, care.CategoryGeneral, outbounds[1].Category)
	require.Contains(t, outbounds[1].Content, "Anxiety")
	require.NotEmpty(t, outbounds[1].Suggestions)
	require.LessOrEqual(t, len(outbounds[1].Suggestions), care.MaxSuggestions)

	require.Equal(t, care.CategoryEducation, outbounds[2].Category)
	require.Contains(t, outbounds[2].Content, "Sleep and exercise")
	require.Equal(t, "telegram:200", outbounds[2].SessionKey)

	// The crisis message never reaches retrieval; the topic match never
	// reaches retrieval either. Only the third message does.
	queries := searcher.snapshot()
	require.Len(t, queries, 1)
	require.Equal(t, "how do I sleep better", queries[0].Text)
}

func TestGatewayServiceRunE2ERecordsTranscripts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := &scriptedAdapter{
		name: "webchat",
		inbound: []bus.InboundMessage{
			{Channel: "webchat", ChatID: "abc", SessionKey: "webchat:abc", Text: "I feel anxious", Lang: care.LangEnglish},
			{Channel: "webchat", ChatID: "abc", SessionKey: "webchat:abc", Text: "worry keeps me up", Lang: care.LangEnglish},
		},
		done: make(chan struct{}),
	}

	svc := newTestService(t, adapter, &recordingGatewaySearcher{}, freeTCPPort(t))

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}

	turns := svc.sessions.Transcript("webchat:abc")
	require.Len(t, turns, 4)
	require.Equal(t, "user", turns[0].Role)
	require.Equal(t, "I feel anxious", turns[0].Content)
	require.Equal(t, "bot", turns[1].Role)
	require.Equal(t, care.CategoryGeneral, turns[1].Category)
}

type panickingSearcher struct{}

func (panickingSearcher) Search(context.Context, care.Query) []care.Snippet {
	panic("index corrupted")
}

func TestHandleInboundPanicPublishesFailedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := &scriptedAdapter{name: "webchat", done: make(chan struct{})}
	svc := newTestService(t, adapter, panickingSearcher{}, freeTCPPort(t))

	events, unsubscribe := svc.Events().Subscribe(ctx, 4)
	defer unsubscribe()

	inbound := bus.InboundMessage{
		Channel:    "webchat",
		ChatID:     "abc",
		SessionKey: "webchat:abc",
		Text:       "how do I sleep better",
		Lang:       care.LangEnglish,
	}

	outbound, err := svc.handleInbound(ctx, inbound)
	require.Error(t, err)
	require.Contains(t, outbound.Error, "index corrupted")
	require.Equal(t, "webchat:abc", outbound.SessionKey)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type != bus.EventMessageFailed {
				continue
			}
			require.Equal(t, "webchat", event.Channel)
			require.Contains(t, event.Error, "index corrupted")
			return
		case <-deadline:
			t.Fatal("timed out waiting for failed event")
		}
	}
}

type failingAdapter struct{ name string }

func (a failingAdapter) Name() string { return a.name }

func (a failingAdapter) Run(context.Context, channel.Handler) error {
	return fmt.Errorf("poll loop failed")
}

func TestGatewayServiceAdapterFailurePublishesFailedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topics, err := content.Topics()
	require.NoError(t, err)
	lexicon, err := content.Lexicon()
	require.NoError(t, err)

	cfg := &config.Config{
		Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)},
	}

	orchestrator := care.NewOrchestrator(topics, lexicon, nil, nil, slog.Default())
	svc, err := NewService(cfg, orchestrator, []channel.Adapter{failingAdapter{name: "telegram"}}, slog.Default())
	require.NoError(t, err)

	events, unsubscribe := svc.Events().Subscribe(ctx, 4)
	defer unsubscribe()

	runErr := svc.Run(ctx)
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "poll loop failed")

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, open := <-events:
			if !open {
				t.Fatal("event stream closed before failed event")
			}
			if event.Type != bus.EventMessageFailed {
				continue
			}
			require.Equal(t, "telegram", event.Channel)
			require.Contains(t, event.Error, "poll loop failed")
			return
		case <-deadline:
			t.Fatal("timed out waiting for failed event")
		}
	}
}

func TestGatewayServiceStatusEndpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := freeTCPPort(t)
	adapter := &scriptedAdapter{
		name: "webchat",
		inbound: []bus.InboundMessage{
			{Channel: "webchat", ChatID: "abc", SessionKey: "webchat:abc", Text: "hello there", Lang: care.LangEnglish},
		},
		done: make(chan struct{}),
	}

	svc := newTestService(t, adapter, &recordingGatewaySearcher{}, port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", port)
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, healthURL, 2*time.Second))

	sessionsURL := fmt.Sprintf("http://127.0.0.1:%d/sessions", port)
	response, err := http.Get(sessionsURL)
	require.NoError(t, err)
	defer response.Body.Close()

	var payload sessionsResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
	require.Equal(t, 2, payload.Sessions["webchat:abc"])

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func waitHTTPStatus(t *testing.T, url string, timeout time.Duration) int {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		response, err := http.Get(url)
		if err == nil {
			statusCode := response.StatusCode
			require.NoError(t, response.Body.Close())
			return statusCode
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: %v", url, err)
		}

		time.Sleep(25 * time.Millisecond)
	}
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}

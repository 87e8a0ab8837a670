package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carebot/pkg/bus"
	"carebot/pkg/care"
	"carebot/pkg/config"
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(config.WebChatConfig{Enabled: true, ListenAddr: ":0", DefaultLang: "en"}, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return adapter
}

func echoHandler(t *testing.T, wantLang care.Lang) func(context.Context, bus.InboundMessage) (bus.OutboundMessage, error) {
	t.Helper()
	return func(_ context.Context, inbound bus.InboundMessage) (bus.OutboundMessage, error) {
		if inbound.Lang != wantLang {
			t.Errorf("lang = %q, want %q", inbound.Lang, wantLang)
		}
		return bus.OutboundMessage{
			Channel:     inbound.Channel,
			ChatID:      inbound.ChatID,
			SessionKey:  inbound.SessionKey,
			Content:     "reply to: " + inbound.Text,
			Suggestions: []string{"Coping tools"},
			Category:    care.CategoryGeneral,
		}, nil
	}
}

func TestHandleChat(t *testing.T) {
	adapter := testAdapter(t)

	body := strings.NewReader(`{"text": "hello", "lang": "sw", "session_id": "abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	rec := httptest.NewRecorder()

	adapter.handleChat(rec, req, echoHandler(t, care.LangSwahili))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var response chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if response.Content != "reply to: hello" {
		t.Fatalf("content = %q", response.Content)
	}
	if response.SessionID != "abc" {
		t.Fatalf("session_id = %q, want %q", response.SessionID, "abc")
	}
	if response.Type != "bot" {
		t.Fatalf("type = %q, want bot", response.Type)
	}
}

func TestHandleChatGeneratesSessionID(t *testing.T) {
	adapter := testAdapter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text": "hi"}`))
	rec := httptest.NewRecorder()

	adapter.handleChat(rec, req, echoHandler(t, care.LangEnglish))

	var response chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if strings.TrimSpace(response.SessionID) == "" {
		t.Fatal("expected a generated session id")
	}
}

func TestHandleChatRejectsNonPost(t *testing.T) {
	adapter := testAdapter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()

	adapter.handleChat(rec, req, echoHandler(t, care.LangEnglish))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleChatRejectsBadBody(t *testing.T) {
	adapter := testAdapter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	adapter.handleChat(rec, req, echoHandler(t, care.LangEnglish))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestNewAdapterValidation(t *testing.T) {
	if _, err := NewAdapter(config.WebChatConfig{Enabled: true}, nil); err == nil {
		t.Fatal("expected error for missing listen address")
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey(" abc "); got != "webchat:abc" {
		t.Fatalf("sessionKey = %q", got)
	}
}

package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carebot/pkg/bus"
	"carebot/pkg/config"
)

func testConfig() config.WhatsAppConfig {
	return config.WhatsAppConfig{
		Enabled:       true,
		ListenAddr:    ":0",
		PhoneNumberID: "12345",
		AccessToken:   "token",
		VerifyToken:   "verify-me",
		AppSecret:     "secret",
	}
}

func TestNewAdapterValidation(t *testing.T) {
	cfg := testConfig()
	cfg.AccessToken = ""
	if _, err := NewAdapter(cfg, nil); err == nil {
		t.Fatal("expected error for missing access token")
	}

	cfg = testConfig()
	cfg.VerifyToken = " "
	if _, err := NewAdapter(cfg, nil); err == nil {
		t.Fatal("expected error for missing verify token")
	}

	if _, err := NewAdapter(testConfig(), nil); err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
}

func TestSignatureValid(t *testing.T) {
	adapter, err := NewAdapter(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	body := []byte(`{"entry":[]}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !adapter.signatureValid(signature, body) {
		t.Fatal("expected valid signature to pass")
	}
	if adapter.signatureValid("sha256=deadbeef", body) {
		t.Fatal("expected wrong signature to fail")
	}
	if adapter.signatureValid("", body) {
		t.Fatal("expected missing signature to fail")
	}
}

func TestSignatureCheckDisabledWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.AppSecret = ""
	adapter, err := NewAdapter(cfg, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	if !adapter.signatureValid("", []byte("anything")) {
		t.Fatal("expected signature check to be disabled without app secret")
	}
}

func TestTextMessagesFlattening(t *testing.T) {
	raw := `{
	  "entry": [{
	    "changes": [{
	      "value": {
	        "messages": [
	          {"id": "m1", "from": "255700000001", "type": "text", "text": {"body": " hello "}},
	          {"id": "m2", "from": "255700000001", "type": "image"},
	          {"id": "m3", "from": "255700000002", "type": "interactive",
	           "interactive": {"type": "button_reply", "button_reply": {"id": "suggestion_1", "title": "Coping tools"}}},
	          {"id": "m4", "from": "", "type": "text", "text": {"body": "orphan"}}
	        ]
	      }
	    }]
	  }]
	}`

	var payload webhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	messages := payload.textMessages()
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Text != "hello" {
		t.Fatalf("first text = %q, want %q", messages[0].Text, "hello")
	}
	if messages[1].Text != "Coping tools" {
		t.Fatalf("button reply text = %q, want %q", messages[1].Text, "Coping tools")
	}
}

func TestReplyPayloadPlainText(t *testing.T) {
	payload := replyPayload("255700000001", bus.OutboundMessage{Content: "hello"})

	if payload["type"] != "text" {
		t.Fatalf("type = %v, want text", payload["type"])
	}
	text, ok := payload["text"].(map[string]any)
	if !ok || text["body"] != "hello" {
		t.Fatalf("unexpected text payload %v", payload["text"])
	}
}

func TestReplyPayloadInteractiveButtons(t *testing.T) {
	payload := replyPayload("255700000001", bus.OutboundMessage{
		Content:     "pick one",
		Suggestions: []string{"Coping tools", "Talk to a counselor", "Grounding exercise", "extra beyond the cap"},
	})

	if payload["type"] != "interactive" {
		t.Fatalf("type = %v, want interactive", payload["type"])
	}

	interactive := payload["interactive"].(map[string]any)
	action := interactive["action"].(map[string]any)
	buttons := action["buttons"].([]map[string]any)
	if len(buttons) != 3 {
		t.Fatalf("buttons = %d, want 3 (platform cap)", len(buttons))
	}

	reply := buttons[1]["reply"].(map[string]any)
	title := reply["title"].(string)
	if len([]rune(title)) > buttonTitleLimit {
		t.Fatalf("button title %q exceeds %d characters", title, buttonTitleLimit)
	}
}

func TestButtonTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", buttonTitleLimit+5)
	title := buttonTitle(long)
	if got := len([]rune(title)); got != buttonTitleLimit {
		t.Fatalf("title length = %d, want %d", got, buttonTitleLimit)
	}
	if !strings.HasSuffix(title, "…") {
		t.Fatalf("title %q missing ellipsis", title)
	}
}

func signBody(t *testing.T, secret string, body []byte) string {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookDeduplicatesRetriedMessages(t *testing.T) {
	adapter, err := NewAdapter(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	calls := make(chan bus.InboundMessage, 4)
	handler := func(_ context.Context, inbound bus.InboundMessage) (bus.OutboundMessage, error) {
		calls <- inbound
		return bus.OutboundMessage{}, nil
	}

	body := []byte(`{"entry":[{"changes":[{"value":{"messages":[
		{"id":"wamid.retry-1","from":"255700000001","type":"text","text":{"body":"habari"}}
	]}}]}]}`)
	signature := signBody(t, "secret", body)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", signature)
		recorder := httptest.NewRecorder()
		adapter.handleWebhook(context.Background(), recorder, req, handler)
		if recorder.Code != http.StatusOK {
			t.Fatalf("delivery %d status = %d, want 200", i, recorder.Code)
		}
	}

	select {
	case inbound := <-calls:
		if inbound.Metadata["message_id"] != "wamid.retry-1" {
			t.Fatalf("message_id = %q, want wamid.retry-1", inbound.Metadata["message_id"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	select {
	case <-calls:
		t.Fatal("retried delivery routed the message twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSeenCacheEviction(t *testing.T) {
	cache := newSeenCache(2)

	if cache.MarkSeen("a") {
		t.Fatal("first sighting reported as seen")
	}
	if !cache.MarkSeen("a") {
		t.Fatal("second sighting not reported as seen")
	}

	cache.MarkSeen("b")
	cache.MarkSeen("c")
	if cache.MarkSeen("a") {
		t.Fatal("expected oldest id to be evicted at the limit")
	}

	if cache.MarkSeen("") {
		t.Fatal("empty id must never count as seen")
	}
	if cache.MarkSeen("   ") {
		t.Fatal("blank id must never count as seen")
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey(" 255700000001 "); got != "whatsapp:255700000001" {
		t.Fatalf("sessionKey = %q", got)
	}
}

package linechannel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmmarc2025/sparkling-service/internal/observability/metrics"
)

type recordingProcessor struct {
	events []Event
}

func (p *recordingProcessor) ProcessEvents(ctx context.Context, events []Event) {
	p.events = append(p.events, events...)
}

func newTestHandler(t *testing.T, secret string) (*WebhookHandler, *recordingProcessor) {
	t.Helper()
	proc := &recordingProcessor{}
	m := metrics.NewWebhookMetrics(prometheus.NewRegistry())
	h := NewWebhookHandler(secret, proc, time.Second, m, nil)
	h.spawn = func(fn func()) { fn() }
	return h, proc
}

func postWebhook(h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/line", strings.NewReader(string(body)))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	h.HandleInbound(w, req)
	return w
}

func TestHandleInboundMissingSignature(t *testing.T) {
	h, proc := newTestHandler(t, "secret")
	body := []byte(`{"events":[{"type":"message","replyToken":"tok1","source":{"type":"user","userId":"U1"},"message":{"type":"text","text":"hi"}}]}`)

	w := postWebhook(h, body, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if len(proc.events) != 0 {
		t.Fatalf("events processed despite rejected signature: %d", len(proc.events))
	}
}

func TestHandleInboundBadSignature(t *testing.T) {
	h, proc := newTestHandler(t, "secret")
	body := []byte(`{"events":[]}`)

	w := postWebhook(h, body, Sign("wrong-secret", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if len(proc.events) != 0 {
		t.Fatal("no events should be processed")
	}
}

func TestHandleInboundMalformedBody(t *testing.T) {
	h, proc := newTestHandler(t, "secret")
	body := []byte(`{"events":`)

	w := postWebhook(h, body, Sign("secret", body))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if len(proc.events) != 0 {
		t.Fatal("no events should be processed")
	}
}

func TestHandleInboundDispatchesEvents(t *testing.T) {
	h, proc := newTestHandler(t, "secret")

	batch := WebhookBody{Events: []Event{
		{Type: "message", ReplyToken: "tok1", Source: &Source{Type: "user", UserID: "U1"}, Message: &Message{Type: "text", Text: "hello"}},
		{Type: "message", ReplyToken: placeholderReplyToken, Message: &Message{Type: "text", Text: "probe"}},
		{Type: "follow", ReplyToken: "tok2"},
		{Type: "message", ReplyToken: "tok3", Source: &Source{Type: "user", UserID: "U2"}, Message: &Message{Type: "location", Latitude: 25.0, Longitude: 121.5}},
	}}
	body, err := json.Marshal(batch)
	if err != nil {
		t.Fatal(err)
	}

	w := postWebhook(h, body, Sign("secret", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Fatalf("body = %q, want OK", w.Body.String())
	}
	if len(proc.events) != 2 {
		t.Fatalf("processed %d events, want 2 (probe and follow skipped)", len(proc.events))
	}
	if !proc.events[0].IsTextMessage() || !proc.events[1].IsLocationMessage() {
		t.Fatalf("unexpected event kinds: %+v", proc.events)
	}
}

func TestHandleInboundSurvivesProcessorPanic(t *testing.T) {
	m := metrics.NewWebhookMetrics(prometheus.NewRegistry())
	h := NewWebhookHandler("secret", panickingProcessor{}, time.Second, m, nil)
	h.spawn = func(fn func()) { fn() }

	body := []byte(`{"events":[{"type":"message","replyToken":"tok1","source":{"type":"user","userId":"U1"},"message":{"type":"text","text":"hi"}}]}`)
	w := postWebhook(h, body, Sign("secret", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

type panickingProcessor struct{}

func (panickingProcessor) ProcessEvents(ctx context.Context, events []Event) {
	panic("boom")
}

package linechannel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/mmmarc2025/sparkling-service/internal/observability/metrics"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

var webhookTracer = otel.Tracer("sparkling.internal.linechannel")

// EventProcessor consumes a parsed webhook batch. It must recover from
// its own failures; by the time it runs the HTTP response is long gone.
type EventProcessor interface {
	ProcessEvents(ctx context.Context, events []Event)
}

// WebhookHandler validates and dispatches inbound webhook calls.
type WebhookHandler struct {
	channelSecret  string
	processor      EventProcessor
	processTimeout time.Duration
	metrics        *metrics.WebhookMetrics
	logger         *logging.Logger

	// spawn lets tests run event processing synchronously.
	spawn func(func())
}

// NewWebhookHandler creates the webhook entry point. processTimeout bounds
// the background work spawned per request.
func NewWebhookHandler(channelSecret string, processor EventProcessor, processTimeout time.Duration, m *metrics.WebhookMetrics, logger *logging.Logger) *WebhookHandler {
	if processor == nil {
		panic("linechannel: event processor required")
	}
	if processTimeout <= 0 {
		processTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		channelSecret:  channelSecret,
		processor:      processor,
		processTimeout: processTimeout,
		metrics:        m,
		logger:         logger,
		spawn:          func(fn func()) { go fn() },
	}
}

// HandleHealth answers the platform's GET probe.
func (h *WebhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("LINE bot is active"))
}

// HandleInbound handles POST webhook batches. The response is written as
// soon as the batch is authenticated and parsed; event processing happens
// in the background because reply tokens outlive the platform's response
// deadline but not an LLM round-trip.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	_, span := webhookTracer.Start(r.Context(), "linechannel.webhook")
	defer span.End()
	started := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.metrics.ObserveInbound("request", "read_error")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if !VerifySignature(h.channelSecret, body, signature) {
		h.logger.Warn("invalid webhook signature", "signature_present", signature != "")
		h.metrics.ObserveInbound("request", "unauthorized")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var batch WebhookBody
	if err := json.Unmarshal(body, &batch); err != nil {
		h.logger.Error("failed to parse webhook body", "error", err)
		h.metrics.ObserveInbound("request", "parse_error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	events := filterProcessable(batch.Events)

	// Acknowledge before processing; the reply token window is short and
	// redelivery on timeout would duplicate work.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))

	h.metrics.ObserveInbound("request", "accepted")
	h.metrics.ObserveWebhookLatency("request", time.Since(started).Seconds())

	if len(events) == 0 {
		return
	}

	h.spawn(func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("webhook event processing panicked", "panic", rec)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), h.processTimeout)
		defer cancel()
		h.processor.ProcessEvents(ctx, events)
	})
}

// filterProcessable drops verification probes and event kinds the bot
// does not act on.
func filterProcessable(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.ReplyToken == "" || ev.ReplyToken == placeholderReplyToken {
			continue
		}
		if !ev.IsTextMessage() && !ev.IsLocationMessage() {
			continue
		}
		out = append(out, ev)
	}
	return out
}

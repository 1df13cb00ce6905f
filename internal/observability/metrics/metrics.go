package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for the chat-bot flow.
type WebhookMetrics struct {
	inboundTotal     *prometheus.CounterVec
	completionsTotal *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkling",
			Subsystem: "linebot",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound LINE webhook requests and events",
		}, []string{"event_type", "status"}),
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkling",
			Subsystem: "linebot",
			Name:      "completions_total",
			Help:      "Total LLM completion calls",
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkling",
			Subsystem: "linebot",
			Name:      "bookings_total",
			Help:      "Total booking drafts by outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sparkling",
			Subsystem: "linebot",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook acceptance and event processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.completionsTotal, m.bookingsTotal, m.webhookLatency)
	return m
}

func (m *WebhookMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveCompletion(status string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(status).Inc()
}

// ObserveBooking records a draft outcome: created, store_unresolved,
// parse_error or persist_error.
func (m *WebhookMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *WebhookMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	Replies        *prometheus.CounterVec
	Intents        *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	LeadEvents     *prometheus.CounterVec
	ReplyLatency   *prometheus.HistogramVec
	LeadReadiness  prometheus.Histogram

	latency *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		Replies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Chat replies by generating source.",
		}, []string{"source"}),
		Intents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Classified visitor intents.",
		}, []string{"intent"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		LeadEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_events_total",
			Help:      "Lead events by type and publish outcome.",
		}, []string{"type", "outcome"}),
		ReplyLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_latency_ms",
			Help:      "Latency to produce a chat reply in milliseconds.",
			Buckets:   []float64{5, 25, 100, 250, 500, 1000, 2000, 4000, 8000},
		}, []string{"source"}),
		LeadReadiness: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_readiness",
			Help:      "Purchase-readiness score observed after each engine turn.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		latency: newLatencyWindow(256),
	}
}

// ObserveReply records one reply and its latency under the producing source.
func (m *Metrics) ObserveReply(source string, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000
	m.Replies.WithLabelValues(source).Inc()
	m.ReplyLatency.WithLabelValues(source).Observe(ms)
	m.latency.Observe(source, ms)
}

// ObserveFallback counts a primary failure that was answered by the scripted engine.
func (m *Metrics) ObserveFallback(code string) {
	m.ProviderErrors.WithLabelValues("llm", code).Inc()
	m.latency.ObserveIndicator("fallback_" + code)
}

// SnapshotLatency returns rolling reply latency stats per source.
func (m *Metrics) SnapshotLatency() LatencySnapshot {
	return m.latency.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

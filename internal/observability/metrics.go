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
	ActiveCalls       prometheus.Gauge
	CallEvents        *prometheus.CounterVec
	StreamEvents      *prometheus.CounterVec
	UpstreamErrors    *prometheus.CounterVec
	Escalations       *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	FirstReplyLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of active voice calls.",
		}),
		CallEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call state machine events by type.",
		}, []string{"event"}),
		StreamEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_stream_events_total",
			Help:      "Chat stream protocol events by type.",
		}, []string{"event"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream completion errors by code.",
		}, []string{"code"}),
		Escalations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Crisis escalations by trigger source.",
		}, []string{"source"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		FirstReplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_reply_latency_ms",
			Help:      "Latency from accepted user turn to first assistant delta in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 4000},
		}),
	}
}

func (m *Metrics) ObserveFirstReplyLatency(d time.Duration) {
	m.FirstReplyLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

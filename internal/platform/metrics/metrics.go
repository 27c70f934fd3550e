package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the portal client.
type Metrics struct {
	APIRequests          *prometheus.CounterVec
	APIRequestDuration   *prometheus.HistogramVec
	ChatMessagesSent     prometheus.Counter
	ChatMessagesReceived prometheus.Counter
	RealtimeConnections  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskportal_api_requests_total",
			Help: "Total REST calls issued by the portal client, by operation and outcome",
		}, []string{"operation", "outcome"}),
		APIRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskportal_api_request_duration_seconds",
			Help:    "Latency of REST calls issued by the portal client",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ChatMessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "taskportal_chat_messages_sent_total",
			Help: "Chat messages emitted to project rooms",
		}),
		ChatMessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "taskportal_chat_messages_received_total",
			Help: "Chat messages received from project rooms",
		}),
		RealtimeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskportal_realtime_connections",
			Help: "Open realtime connections held by the client",
		}),
	}
}

// ObserveAPI records one finished REST call.
func (m *Metrics) ObserveAPI(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(operation, outcome).Inc()
	m.APIRequestDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncrementChatSent() {
	if m == nil {
		return
	}
	m.ChatMessagesSent.Inc()
}

func (m *Metrics) IncrementChatReceived() {
	if m == nil {
		return
	}
	m.ChatMessagesReceived.Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.RealtimeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.RealtimeConnections.Dec()
}

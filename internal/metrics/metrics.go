package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects engine and transport metrics
type Recorder interface {
	SessionCreated()
	SessionDestroyed()
	CommandHandled(command, outcome string)
	SnapshotBroadcast(recipients int)
	GraceExpired()
	EncodeFailed(eventType string)
	ConnectionOpened()
	ConnectionClosed()
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	Handler() http.Handler
}

// PrometheusRecorder records metrics into a prometheus registry
type PrometheusRecorder struct {
	gatherer prometheus.Gatherer

	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	activeSessions    prometheus.Gauge
	commandsTotal     *prometheus.CounterVec
	broadcastsTotal   prometheus.Counter
	deliveriesTotal   prometheus.Counter
	graceExpiries     prometheus.Counter
	encodeFailures    *prometheus.CounterVec
	connections       prometheus.Gauge
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New returns a prometheus recorder registered on reg, or a no-op recorder when disabled
func New(enabled bool, reg *prometheus.Registry) Recorder {
	if !enabled {
		return &noopRecorder{}
	}

	factory := promauto.With(reg)

	return &PrometheusRecorder{
		gatherer: reg,

		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "poker_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		sessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "poker_sessions_destroyed_total",
			Help: "Total number of sessions destroyed after their roster emptied",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poker_sessions_active",
			Help: "Number of live sessions",
		}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poker_commands_total",
			Help: "Commands handled by type and outcome",
		}, []string{"command", "outcome"}),
		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "poker_snapshot_broadcasts_total",
			Help: "Total number of snapshot broadcasts",
		}),
		deliveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "poker_snapshot_deliveries_total",
			Help: "Total number of snapshots handed to connections",
		}),
		graceExpiries: factory.NewCounter(prometheus.CounterOpts{
			Name: "poker_grace_expiries_total",
			Help: "Participants removed after the reconnect grace period",
		}),
		encodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poker_event_encode_failures_total",
			Help: "Events that could not be encoded and reached no client",
		}, []string{"type"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poker_websocket_connections",
			Help: "Open websocket connections",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poker_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *PrometheusRecorder) SessionCreated() {
	m.sessionsCreated.Inc()
	m.activeSessions.Inc()
}

func (m *PrometheusRecorder) SessionDestroyed() {
	m.sessionsDestroyed.Inc()
	m.activeSessions.Dec()
}

func (m *PrometheusRecorder) CommandHandled(command, outcome string) {
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
}

func (m *PrometheusRecorder) SnapshotBroadcast(recipients int) {
	m.broadcastsTotal.Inc()
	m.deliveriesTotal.Add(float64(recipients))
}

func (m *PrometheusRecorder) GraceExpired() {
	m.graceExpiries.Inc()
}

func (m *PrometheusRecorder) EncodeFailed(eventType string) {
	m.encodeFailures.WithLabelValues(eventType).Inc()
}

func (m *PrometheusRecorder) ConnectionOpened() {
	m.connections.Inc()
}

func (m *PrometheusRecorder) ConnectionClosed() {
	m.connections.Dec()
}

func (m *PrometheusRecorder) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *PrometheusRecorder) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Handler exposes the registry in the prometheus text format
func (m *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// noopRecorder is used when metrics are disabled.
type noopRecorder struct{}

func (n *noopRecorder) SessionCreated()                                  {}
func (n *noopRecorder) SessionDestroyed()                                {}
func (n *noopRecorder) CommandHandled(_, _ string)                       {}
func (n *noopRecorder) SnapshotBroadcast(_ int)                          {}
func (n *noopRecorder) GraceExpired()                                    {}
func (n *noopRecorder) EncodeFailed(_ string)                            {}
func (n *noopRecorder) ConnectionOpened()                                {}
func (n *noopRecorder) ConnectionClosed()                                {}
func (n *noopRecorder) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopRecorder) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopRecorder) Handler() http.Handler                            { return http.NotFoundHandler() }

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quakealert"

// PrometheusMetrics records to a private registry exposed through Handler.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec   // labels: method, endpoint, status
	HTTPDuration  *prometheus.HistogramVec // labels: method, endpoint
	Cycles        *prometheus.CounterVec   // labels: source, outcome
	CycleDuration *prometheus.HistogramVec // labels: source
	EventsFound   *prometheus.CounterVec   // labels: source
	Deliveries    *prometheus.CounterVec   // labels: source, reason, outcome
	FetchErrors   *prometheus.CounterVec   // labels: source
	DBQueries     *prometheus.CounterVec   // labels: operation, status
	DBConnections prometheus.Gauge
}

// NewPrometheusMetrics creates all collectors on a fresh registry, so it is
// safe to call from several tests.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "endpoint", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Polling cycles by source and outcome.",
		}, []string{"source", "outcome"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-to-dispatch cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		EventsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_found_total",
			Help:      "Normalized events returned by each feed.",
		}, []string{"source"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-subscriber dispatch outcomes.",
		}, []string{"source", "reason", "outcome"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Feed requests that failed.",
		}, []string{"source"}),
		DBQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Database operations by kind and status.",
		}, []string{"operation", "status"}),
		DBConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_active",
			Help:      "Acquired connections in the pool.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Cycles,
		m.CycleDuration,
		m.EventsFound,
		m.Deliveries,
		m.FetchErrors,
		m.DBQueries,
		m.DBConnections,
	)

	return m
}

func (m *PrometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.HTTPDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordCycle(source, outcome string, duration time.Duration) {
	m.Cycles.WithLabelValues(source, outcome).Inc()
	m.CycleDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordEventsFound(source string, count int) {
	m.EventsFound.WithLabelValues(source).Add(float64(count))
}

func (m *PrometheusMetrics) RecordDelivery(source, reason, outcome string) {
	m.Deliveries.WithLabelValues(source, reason, outcome).Inc()
}

func (m *PrometheusMetrics) RecordFetchError(source string) {
	m.FetchErrors.WithLabelValues(source).Inc()
}

func (m *PrometheusMetrics) SetDBConnectionsActive(count float64) {
	m.DBConnections.Set(count)
}

func (m *PrometheusMetrics) RecordDBQuery(operation, status string) {
	m.DBQueries.WithLabelValues(operation, status).Inc()
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

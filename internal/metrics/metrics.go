package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordCycle(source, outcome string, duration time.Duration)
	RecordEventsFound(source string, count int)
	RecordDelivery(source, reason, outcome string)
	RecordFetchError(source string)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordCycle(source, outcome string, duration time.Duration) {}
func (m *NoOpMetrics) RecordEventsFound(source string, count int)                 {}
func (m *NoOpMetrics) RecordDelivery(source, reason, outcome string)              {}
func (m *NoOpMetrics) RecordFetchError(source string)                             {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                       {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                     {}
func (m *NoOpMetrics) Handler() http.Handler                                      { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init installs the Prometheus implementation when enabled. Disabled metrics
// keep the no-op recorder.
func Init(enabled bool) {
	if !enabled {
		globalMetrics = &NoOpMetrics{}
		return
	}
	globalMetrics = NewPrometheusMetrics()
}

// Set replaces the global recorder. Tests use it with NewPrometheusMetrics.
func Set(m Metrics) {
	if m == nil {
		m = &NoOpMetrics{}
	}
	globalMetrics = m
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordCycle records a finished polling cycle. outcome is success, failed or skipped.
func RecordCycle(source, outcome string, duration time.Duration) {
	globalMetrics.RecordCycle(source, outcome, duration)
}

func RecordEventsFound(source string, count int) {
	globalMetrics.RecordEventsFound(source, count)
}

// RecordDelivery records one per-subscriber outcome
func RecordDelivery(source, reason, outcome string) {
	globalMetrics.RecordDelivery(source, reason, outcome)
}

func RecordFetchError(source string) {
	globalMetrics.RecordFetchError(source)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}

package instrumentation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks outbound weather requests. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	requestsActive  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when reg is not nil
func NewMetrics(subsystem string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wxstack",
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of weather queries in seconds, retries included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wxstack",
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of weather queries.",
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wxstack",
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Total number of failed weather queries by error kind.",
			},
			[]string{"operation", "error_kind"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wxstack",
				Subsystem: subsystem,
				Name:      "retries_total",
				Help:      "Total number of retries after request timeouts.",
			},
			[]string{"operation"},
		),
		requestsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "wxstack",
				Subsystem: subsystem,
				Name:      "requests_active",
				Help:      "Current number of in-flight weather queries.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.requestDuration,
			m.requestsTotal,
			m.errorsTotal,
			m.retriesTotal,
			m.requestsActive,
		)
	}

	return m
}

// Begin marks a query as in flight and returns the function that records its outcome.
// errorKind is empty on success.
func (m *Metrics) Begin(operation string) func(errorKind string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.requestsActive.Inc()
	return func(errorKind string) {
		m.requestsActive.Dec()
		m.RecordRequest(operation, start, errorKind)
	}
}

// RecordRequest records metrics for a finished query
func (m *Metrics) RecordRequest(operation string, start time.Time, errorKind string) {
	if m == nil {
		return
	}
	duration := time.Since(start).Seconds()
	status := "success"
	if errorKind != "" {
		status = "error"
		m.errorsTotal.WithLabelValues(operation, errorKind).Inc()
	}
	m.requestDuration.WithLabelValues(operation, status).Observe(duration)
	m.requestsTotal.WithLabelValues(operation).Inc()
}

// RecordRetry counts one timeout retry
func (m *Metrics) RecordRetry(operation string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(operation).Inc()
}

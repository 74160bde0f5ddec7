package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects request-level counters for the chat endpoint.
type Metrics struct {
	registry *prometheus.Registry

	turnsTotal   *prometheus.CounterVec
	turnDuration prometheus.Histogram
}

// Turn outcome label values.
const (
	OutcomeOK              = "ok"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeSessionExpired  = "session_expired"
	OutcomeBadRequest      = "bad_request"
	OutcomeProviderError   = "provider_error"
	OutcomeProviderTimeout = "provider_timeout"
	OutcomeStorageError    = "storage_error"
)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "figaro",
			Name:      "turns_total",
			Help:      "Chat turns processed, by outcome.",
		}, []string{"outcome"}),
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "figaro",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end duration of successful chat turns.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveTurn(outcome string, seconds float64) {
	m.turnsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.turnDuration.Observe(seconds)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Package metrics exposes Prometheus instrumentation for provider dispatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the dispatch collectors.
type Metrics struct {
	ProviderAttempts   *prometheus.CounterVec
	RetrySleeps        *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	ProvidersExhausted prometheus.Counter
}

// New registers the collectors on reg. A nil reg gets a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tempmail",
				Name:      "provider_attempts_total",
				Help:      "Provider calls after retries, by outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		RetrySleeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tempmail",
				Name:      "retry_sleeps_total",
				Help:      "Backoff sleeps taken before a retry",
			},
			[]string{"operation"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tempmail",
				Name:      "dispatch_duration_seconds",
				Help:      "Time spent in one create or list dispatch",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation", "provider"},
		),
		ProvidersExhausted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tempmail",
				Name:      "providers_exhausted_total",
				Help:      "Create dispatches where every provider failed",
			},
		),
	}
}

// RecordAttempt counts one provider call.
func (m *Metrics) RecordAttempt(provider, operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.ProviderAttempts.WithLabelValues(provider, operation, outcome).Inc()
}

// RecordRetry counts one backoff sleep.
func (m *Metrics) RecordRetry(operation string) {
	m.RetrySleeps.WithLabelValues(operation).Inc()
}

// ObserveDispatch records the duration of a dispatch started at start.
func (m *Metrics) ObserveDispatch(operation, provider string, start time.Time) {
	m.DispatchDuration.WithLabelValues(operation, provider).Observe(time.Since(start).Seconds())
}

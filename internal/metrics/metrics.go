package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

var (
	// DispatchesTotal tracks finished dispatches by outcome
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgen_dispatches_total",
			Help: "Total number of dispatches by outcome",
		},
		[]string{"outcome"},
	)

	// AttemptsTotal tracks generation attempts per model
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgen_attempts_total",
			Help: "Total number of generation attempts",
		},
		[]string{"model", "result"},
	)

	// ErrorsTotal tracks classified failures
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgen_errors_total",
			Help: "Total number of classified generation errors",
		},
		[]string{"category"},
	)

	// FallbacksTotal tracks model swaps after a model_unavailable diagnosis
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgen_fallbacks_total",
			Help: "Total number of fallback model swaps",
		},
		[]string{"from", "to"},
	)

	// AttemptLatency tracks provider call latency
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxgen_attempt_latency_seconds",
			Help:    "Generation call latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"model"},
	)

	// BackoffSeconds tracks the delay waited before retries
	BackoffSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxgen_backoff_seconds",
			Help:    "Backoff delay before a retry in seconds",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"category"},
	)

	// ActiveSessions tracks live sessions held by the session manager
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxgen_active_sessions",
			Help: "Number of live sessions",
		},
	)
)

// ModelLabel maps a model ID to a bounded label value. Built-in models keep
// their ID; anything else is reported as "custom".
func ModelLabel(model string) string {
	if info, ok := domain.LookupModel(domain.ModelID(model)); ok {
		return string(info.ID)
	}
	return string(domain.ModelCustom)
}

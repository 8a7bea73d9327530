package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors shared by the server and worker.
type Metrics struct {
	GenerationAttempts *prometheus.CounterVec
	GenerationResults  *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	CheckInsSubmitted *prometheus.CounterVec
	SessionsRecorded  *prometheus.CounterVec

	StoreFailures *prometheus.CounterVec

	JobsProcessed *prometheus.CounterVec
}

// NewMetrics registers the collectors once per process and returns them.
//
// Metrics:
//   - manasmitra_generation_attempts_total{template,outcome}
//   - manasmitra_generation_results_total{template,result} (success, fallback, error)
//   - manasmitra_generation_duration_seconds{template}
//   - manasmitra_checkins_submitted_total{mood}
//   - manasmitra_sessions_recorded_total{session_type}
//   - manasmitra_store_failures_total{op}
//   - manasmitra_jobs_processed_total{type,result}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			GenerationAttempts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "manasmitra_generation_attempts_total",
					Help: "Backend calls made by the generation client",
				},
				[]string{"template", "outcome"},
			),
			GenerationResults: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "manasmitra_generation_results_total",
					Help: "Generation outcomes after retries",
				},
				[]string{"template", "result"},
			),
			GenerationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "manasmitra_generation_duration_seconds",
					Help:    "End-to-end generation latency including backoff",
					Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
				},
				[]string{"template"},
			),
			CheckInsSubmitted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "manasmitra_checkins_submitted_total",
					Help: "Check-ins persisted after a successful response",
				},
				[]string{"mood"},
			),
			SessionsRecorded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "manasmitra_sessions_recorded_total",
					Help: "Completed mindfulness sessions recorded",
				},
				[]string{"session_type"},
			),
			StoreFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "manasmitra_store_failures_total",
					Help: "Store reads treated as empty or writes dropped",
				},
				[]string{"op"},
			),
			JobsProcessed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "manasmitra_jobs_processed_total",
					Help: "Background jobs processed by the worker",
				},
				[]string{"type", "result"},
			),
		}
	})
	return globalMetrics
}

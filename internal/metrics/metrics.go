// Package metrics exposes Prometheus collectors for optimization runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/evop/internal/optimization"
)

// Run outcomes used as the status label.
const (
	StatusConverged = "converged"
	StatusExhausted = "exhausted"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const namespace = "evop"

// Metrics holds the collectors describing optimization runs.
type Metrics struct {
	runs        *prometheus.CounterVec
	iterations  prometheus.Histogram
	evaluations prometheus.Counter
	duration    prometheus.Histogram
	active      prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is handy in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Optimization runs by final status.",
		}, []string{"status"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "iterations",
			Help:      "Iterations performed per optimization run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objective_evaluations_total",
			Help:      "Objective function evaluations across all runs.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of optimization runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Optimization runs currently executing.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.runs, m.iterations, m.evaluations, m.duration, m.active} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// RunStarted marks a run as active and returns the function that records
// its outcome. The returned function must be called exactly once.
func (m *Metrics) RunStarted() func(result *optimization.OptimizationResult, status string) {
	start := time.Now()
	m.active.Inc()
	return func(result *optimization.OptimizationResult, status string) {
		m.active.Dec()
		m.duration.Observe(time.Since(start).Seconds())
		m.runs.WithLabelValues(status).Inc()
		if result != nil {
			m.iterations.Observe(float64(result.Iterations))
			m.evaluations.Add(float64(result.Evaluations))
		}
	}
}

// Status maps a finished run to its status label.
func Status(result *optimization.OptimizationResult, err error, cancelled bool) string {
	switch {
	case cancelled:
		return StatusCancelled
	case err != nil:
		return StatusFailed
	case result != nil && result.Converged:
		return StatusConverged
	default:
		return StatusExhausted
	}
}

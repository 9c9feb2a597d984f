// Package metrics exposes Prometheus instrumentation for guarded calls and
// worker lifecycle events. Long batch runs can serve these through the
// runner's metrics endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the guard-level Prometheus metrics.
type Collector struct {
	calls    *prometheus.CounterVec
	restarts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates a collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchguard_calls_total",
				Help: "Guarded calls by task and outcome",
			},
			[]string{"task", "outcome"},
		),
		restarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchguard_worker_restarts_total",
				Help: "Worker restarts by task and reason",
			},
			[]string{"task", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benchguard_call_duration_seconds",
				Help:    "Wall-clock duration of guarded calls",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"task"},
		),
	}

	reg.MustRegister(c.calls)
	reg.MustRegister(c.restarts)
	reg.MustRegister(c.duration)

	return c
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the process-wide collector, registered against the
// default Prometheus registry on first use.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// RecordCall counts one guarded call and observes its duration. Outcome is
// one of "ok", "callee_error", "timeout", "crash" or "error".
func (c *Collector) RecordCall(task, outcome string, elapsed time.Duration) {
	c.calls.WithLabelValues(task, outcome).Inc()
	c.duration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// RecordRestart counts one worker replacement.
func (c *Collector) RecordRestart(task, reason string) {
	c.restarts.WithLabelValues(task, reason).Inc()
}

// Package metrics exposes Prometheus counters and histograms for the
// backtest and optimizer HTTP service.
//
// These are registered at package init and served by promhttp.Handler at
// /metrics in the HTTP service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BacktestRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtestopt_backtest_requests_total",
			Help: "Backtest requests handled, by result",
		},
		[]string{"result"},
	)

	OptimizeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtestopt_optimize_requests_total",
			Help: "Optimize requests handled, by result",
		},
		[]string{"result"},
	)

	BacktestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtestopt_backtest_duration_seconds",
			Help:    "Time spent running a single-symbol backtest",
			Buckets: prometheus.DefBuckets,
		},
	)

	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtestopt_optimize_duration_seconds",
			Help:    "Time spent running a full optimizer evolution",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	ChromosomesEvaluatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtestopt_chromosomes_evaluated_total",
			Help: "Chromosomes evaluated across every optimizer run",
		},
	)

	ActiveOptimizeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtestopt_active_optimize_runs",
			Help: "Optimizer runs currently in progress",
		},
	)
)

func init() {
	prometheus.MustRegister(
		BacktestRequestsTotal,
		OptimizeRequestsTotal,
		BacktestDuration,
		OptimizeDuration,
		ChromosomesEvaluatedTotal,
		ActiveOptimizeRuns,
	)
}

// ObserveDuration records the seconds elapsed since start into h, a small helper so
// call sites read as `defer metrics.ObserveDuration(metrics.BacktestDuration, time.Now())`.
func ObserveDuration(h prometheus.Histogram, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

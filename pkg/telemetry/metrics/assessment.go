package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/riskctl/pkg/config"
)

// AssessmentMetrics tracks evaluations, diffs and portfolio runs.
//
// Metrics:
//   - riskctl_evaluations_total{status}
//   - riskctl_evaluation_duration_seconds
//   - riskctl_derived_controls
//   - riskctl_missing_answers
//   - riskctl_diffs_total{status}
//   - riskctl_diff_controls_changed_total{change}
//   - riskctl_portfolio_systems
//   - riskctl_portfolio_duration_seconds
type AssessmentMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	derivedControls    prometheus.Histogram
	missingAnswers     prometheus.Histogram

	diffsTotal     *prometheus.CounterVec
	diffDuration   prometheus.Histogram
	controlChanges *prometheus.CounterVec

	portfolioSystems  prometheus.Gauge
	portfolioDuration prometheus.Histogram
}

// NewAssessmentMetrics creates and registers assessment metrics.
func NewAssessmentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AssessmentMetrics {
	// Evaluations are in-memory and should complete well under a second.
	durations := prometheus.ExponentialBuckets(0.0001, 2, 14)
	counts := []float64{0, 1, 2, 5, 10, 20, 50, 100}

	am := &AssessmentMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluations_total",
				Help:      "Total number of facts evaluations",
			},
			[]string{"status"},
		),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of facts evaluations including model resolution",
			Buckets:   durations,
		}),
		derivedControls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "derived_controls",
			Help:      "Number of controls derived per evaluation",
			Buckets:   counts,
		}),
		missingAnswers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "missing_answers",
			Help:      "Number of unanswered required questions per evaluation",
			Buckets:   counts,
		}),
		diffsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "diffs_total",
				Help:      "Total number of model comparisons",
			},
			[]string{"status"},
		),
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "diff_duration_seconds",
			Help:      "Duration of model comparisons including both model loads",
			Buckets:   durations,
		}),
		controlChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "diff_controls_changed_total",
				Help:      "Controls added or removed by model comparisons",
			},
			[]string{"change"},
		),
		portfolioSystems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "portfolio_systems",
			Help:      "Number of systems in the last portfolio run",
		}),
		portfolioDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "portfolio_duration_seconds",
			Help:      "Duration of portfolio runs",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	registry.MustRegister(
		am.evaluationsTotal,
		am.evaluationDuration,
		am.derivedControls,
		am.missingAnswers,
		am.diffsTotal,
		am.diffDuration,
		am.controlChanges,
		am.portfolioSystems,
		am.portfolioDuration,
	)

	return am
}

// RecordEvaluation records one evaluation. Result sizes are observed only
// for successful evaluations.
func (am *AssessmentMetrics) RecordEvaluation(status string, duration time.Duration, controls, missing int) {
	am.evaluationsTotal.WithLabelValues(status).Inc()
	am.evaluationDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		am.derivedControls.Observe(float64(controls))
		am.missingAnswers.Observe(float64(missing))
	}
}

// RecordDiff records one comparison.
func (am *AssessmentMetrics) RecordDiff(status string, duration time.Duration, added, removed int) {
	am.diffsTotal.WithLabelValues(status).Inc()
	am.diffDuration.Observe(duration.Seconds())
	am.controlChanges.WithLabelValues("added").Add(float64(added))
	am.controlChanges.WithLabelValues("removed").Add(float64(removed))
}

// RecordPortfolio records a portfolio run.
func (am *AssessmentMetrics) RecordPortfolio(systems int, duration time.Duration) {
	am.portfolioSystems.Set(float64(systems))
	am.portfolioDuration.Observe(duration.Seconds())
}

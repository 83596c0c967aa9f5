package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/riskctl/pkg/config"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ModelMetrics tracks knowledge model loads and the model cache.
//
// Metrics:
//   - riskctl_model_loads_total{source,status}
//   - riskctl_model_load_duration_seconds{source}
//   - riskctl_model_cache_hits_total
//   - riskctl_model_cache_misses_total
//   - riskctl_model_reloads_total
type ModelMetrics struct {
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	reloads      prometheus.Counter
}

// NewModelMetrics creates and registers model metrics.
func NewModelMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ModelMetrics {
	mm := &ModelMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "model_loads_total",
				Help:      "Total number of knowledge model loads",
			},
			[]string{"source", "status"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "model_load_duration_seconds",
				Help:      "Duration of knowledge model loads",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"source"},
		),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "model_cache_hits_total",
			Help:      "Model lookups served from cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "model_cache_misses_total",
			Help:      "Model lookups that required a load",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "model_reloads_total",
			Help:      "Model cache invalidations caused by file changes",
		}),
	}

	registry.MustRegister(mm.loadsTotal, mm.loadDuration, mm.cacheHits, mm.cacheMisses, mm.reloads)
	return mm
}

// RecordLoad records a model load.
func (mm *ModelMetrics) RecordLoad(source, status string, duration time.Duration) {
	mm.loadsTotal.WithLabelValues(source, status).Inc()
	mm.loadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCache records a cache lookup.
func (mm *ModelMetrics) RecordCache(hit bool) {
	if hit {
		mm.cacheHits.Inc()
		return
	}
	mm.cacheMisses.Inc()
}

// RecordReload records a watcher-triggered invalidation.
func (mm *ModelMetrics) RecordReload() {
	mm.reloads.Inc()
}

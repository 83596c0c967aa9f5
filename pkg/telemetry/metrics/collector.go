package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/riskctl/pkg/config"
)

// Collector owns the Prometheus metrics of a riskctl process and offers one
// recording method per event. A disabled collector ignores every call, and a
// nil *Collector is valid and does nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	assessment *AssessmentMetrics
	model      *ModelMetrics
	http       *HTTPMetrics

	// routes bounds the route label of HTTP metrics
	routes *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh one is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "riskctl"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:     cfg,
		registry:   registry,
		assessment: NewAssessmentMetrics(cfg, registry),
		model:      NewModelMetrics(cfg, registry),
		http:       NewHTTPMetrics(cfg, registry),
		routes:     NewCardinalityLimiter(200),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEvaluation records one facts evaluation.
//
// Parameters:
//   - status: "success" or "error"
//   - duration: time spent loading the model and evaluating
//   - controls: number of derived controls
//   - missing: number of unanswered required questions
func (c *Collector) RecordEvaluation(status string, duration time.Duration, controls, missing int) {
	if !c.enabled() {
		return
	}
	c.assessment.RecordEvaluation(status, duration, controls, missing)
}

// RecordDiff records one model comparison.
func (c *Collector) RecordDiff(status string, duration time.Duration, added, removed int) {
	if !c.enabled() {
		return
	}
	c.assessment.RecordDiff(status, duration, added, removed)
}

// RecordPortfolio records a portfolio run over systems systems.
func (c *Collector) RecordPortfolio(systems int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.assessment.RecordPortfolio(systems, duration)
}

// RecordModelLoad records a model load from a source kind ("dir", "git",
// "memory").
func (c *Collector) RecordModelLoad(kind, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.model.RecordLoad(kind, status, duration)
}

// RecordModelCache records a model cache lookup.
func (c *Collector) RecordModelCache(hit bool) {
	if !c.enabled() {
		return
	}
	c.model.RecordCache(hit)
}

// RecordModelReload records a cache invalidation triggered by a file change.
func (c *Collector) RecordModelReload() {
	if !c.enabled() {
		return
	}
	c.model.RecordReload()
}

// RecordHTTPRequest records a served API request. Routes beyond the
// cardinality limit are folded into "other".
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if !c.routes.Allow(route) {
		route = "other"
	}
	c.http.RecordRequest(method, route, status, duration)
}

// RecordRateLimited records a request rejected by the rate limiter.
func (c *Collector) RecordRateLimited(route string) {
	if !c.enabled() {
		return
	}
	if !c.routes.Allow(route) {
		route = "other"
	}
	c.http.RecordRateLimited(route)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or still fits under the
// limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

// Package metrics provides Prometheus metrics for riskctl.
//
// # Metrics Categories
//
//   - Assessment metrics: evaluations, diffs and portfolio runs
//   - Model metrics: model loads per source, cache hits and misses, reloads
//   - HTTP metrics: API request counts and latencies per route
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordEvaluation(metrics.StatusSuccess, elapsed, 4, 1)
//	mux.Handle("/metrics", collector.Handler())
//
// Route labels are bounded by a CardinalityLimiter; routes beyond the limit
// are reported as "other".
package metrics

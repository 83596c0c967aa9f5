package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/riskctl/pkg/config"
)

// HTTPMetrics tracks API requests.
//
// Metrics:
//   - riskctl_http_requests_total{method,route,code}
//   - riskctl_http_request_duration_seconds{method,route}
//   - riskctl_http_rate_limited_total{route}
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_rate_limited_total",
				Help:      "Total number of API requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration, hm.rateLimited)
	return hm
}

// RecordRequest records a served request.
func (hm *HTTPMetrics) RecordRequest(method, route string, code int, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	hm.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected with 429.
func (hm *HTTPMetrics) RecordRateLimited(route string) {
	hm.rateLimited.WithLabelValues(route).Inc()
}

package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"mercator-hq/riskctl/pkg/ratelimit"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
)

// KeyFunc names the client a request belongs to.
type KeyFunc func(r *http.Request) string

// RemoteIP keys requests by the host part of RemoteAddr.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 with a Retry-After header when the client named by
// key has exceeded its limits. Allowed responses carry X-RateLimit-Limit
// and X-RateLimit-Remaining when a request bucket is configured.
func RateLimit(reg *ratelimit.Registry, key KeyFunc, logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	logger = logging.Component(logger, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := key(r)
			res := reg.Get(client).Allow()
			if !res.Allowed {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"client", client,
					"reason", res.Reason,
					"path", r.URL.Path,
				)
				collector.RecordRateLimited(r.Pattern)

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(ErrorBody{Error: res.Reason})
				return
			}
			defer res.Release()

			if res.Limit >= 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			}
			next.ServeHTTP(w, r)
		})
	}
}

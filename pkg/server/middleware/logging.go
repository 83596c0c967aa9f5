package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
)

// unmatchedRoute labels requests no mux pattern matched.
const unmatchedRoute = "unmatched"

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logging logs every request at a level chosen by status (info, warn for
// 4xx, error for 5xx) and records it in collector under the matched route
// pattern. A nil collector records nothing.
//
// Log format (JSON):
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "component": "http",
//	  "method": "POST",
//	  "route": "POST /api/evaluate",
//	  "status": 200,
//	  "latency_ms": 3,
//	  "request_id": "5f0c..."
//	}
func Logging(logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	logger = logging.Component(logger, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			logger.DebugContext(r.Context(), "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(rw, r)

			latency := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}
			collector.RecordHTTPRequest(r.Method, route, rw.statusCode, latency)

			level := slog.LevelInfo
			if rw.statusCode >= 500 {
				level = slog.LevelError
			} else if rw.statusCode >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", rw.statusCode,
				"latency_ms", latency.Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

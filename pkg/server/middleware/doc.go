// Package middleware provides the HTTP middleware chain of the riskctl API
// server: panic recovery, request ids, structured request logging with
// Prometheus metrics, and CORS.
//
// The server assembles the chain outermost first:
//
//	handler = middleware.Recovery(logger)(handler)
//	handler = middleware.RequestID(handler)
//	handler = tracing.HTTPMiddleware(tracer)(handler)
//	handler = middleware.Logging(logger, collector)(handler)
//	handler = middleware.CORS(cfg)(handler)
//
// Logging must wrap the mux without an intermediate request copy so it can
// read the matched route pattern after the handler returns.
package middleware

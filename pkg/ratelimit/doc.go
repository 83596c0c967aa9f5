// Package ratelimit throttles API clients.
//
// A Limiter combines up to two token buckets (per second and per minute)
// with a cap on in-flight requests. A Registry hands out one Limiter per
// client key and forgets clients that have been idle for a while:
//
//	reg := ratelimit.NewRegistry(cfg.Server.RateLimit)
//	res := reg.Get("ci-pipeline").Allow()
//	if !res.Allowed {
//	    // reply 429, Retry-After: res.RetryAfter
//	}
//	defer res.Release()
//
// All types are safe for concurrent use.
package ratelimit

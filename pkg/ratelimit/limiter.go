package ratelimit

import (
	"time"

	"mercator-hq/riskctl/pkg/config"
)

// CheckResult is the outcome of Limiter.Allow.
type CheckResult struct {
	// Allowed indicates if the request may proceed.
	Allowed bool

	// Reason names the exceeded limit when Allowed is false.
	Reason string

	// Limit and Remaining describe the tightest request bucket.
	Limit     int64
	Remaining int64

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration

	release func()
}

// Release returns the concurrency slot taken by an allowed request. It is
// safe to call on any result, once.
func (r *CheckResult) Release() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

// Limiter enforces the limits of a single client.
type Limiter struct {
	perSecond  *TokenBucket
	perMinute  *TokenBucket
	concurrent *ConcurrentLimiter
}

// NewLimiter builds a limiter from cfg. Zero limits are not enforced.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg config.RateLimitConfig, now func() time.Time) *Limiter {
	l := &Limiter{}
	if cfg.RequestsPerSecond > 0 {
		l.perSecond = newTokenBucket(int64(cfg.RequestsPerSecond*2), float64(cfg.RequestsPerSecond), now)
	}
	if cfg.RequestsPerMinute > 0 {
		l.perMinute = newTokenBucket(int64(cfg.RequestsPerMinute), float64(cfg.RequestsPerMinute)/60, now)
	}
	if cfg.MaxConcurrent > 0 {
		l.concurrent = NewConcurrentLimiter(cfg.MaxConcurrent)
	}
	return l
}

// Allow checks every limit and, when all pass, consumes one request and
// takes a concurrency slot. Call Release on the result when done.
func (l *Limiter) Allow() *CheckResult {
	buckets := []struct {
		bucket *TokenBucket
		reason string
	}{
		{l.perSecond, "requests per second limit exceeded"},
		{l.perMinute, "requests per minute limit exceeded"},
	}

	res := &CheckResult{Allowed: true, Limit: -1, Remaining: -1}
	for _, b := range buckets {
		if b.bucket == nil {
			continue
		}
		if !b.bucket.Take(1) {
			return &CheckResult{
				Reason:     b.reason,
				Limit:      b.bucket.Capacity(),
				Remaining:  0,
				RetryAfter: b.bucket.TimeUntilAvailable(1),
			}
		}
		if rem := b.bucket.Remaining(); res.Remaining < 0 || rem < res.Remaining {
			res.Limit, res.Remaining = b.bucket.Capacity(), rem
		}
	}

	if l.concurrent != nil {
		if !l.concurrent.Acquire() {
			return &CheckResult{
				Reason:     "too many concurrent requests",
				Limit:      l.concurrent.Limit(),
				Remaining:  0,
				RetryAfter: time.Second,
			}
		}
		res.release = l.concurrent.Release
	}
	return res
}

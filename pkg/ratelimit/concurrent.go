package ratelimit

import "sync/atomic"

// ConcurrentLimiter is a counting semaphore that never blocks.
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConcurrentLimiter allows up to limit simultaneous holders.
func NewConcurrentLimiter(limit int) *ConcurrentLimiter {
	return &ConcurrentLimiter{limit: int64(limit)}
}

// Acquire takes a slot if one is free. A successful Acquire must be paired
// with Release.
func (cl *ConcurrentLimiter) Acquire() bool {
	if cl.current.Add(1) > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release frees a slot.
func (cl *ConcurrentLimiter) Release() {
	cl.current.Add(-1)
}

// InFlight returns the number of held slots.
func (cl *ConcurrentLimiter) InFlight() int64 {
	return cl.current.Load()
}

// Limit returns the configured maximum.
func (cl *ConcurrentLimiter) Limit() int64 {
	return cl.limit
}

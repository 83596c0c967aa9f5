package ratelimit

import (
	"sync"
	"time"

	"mercator-hq/riskctl/pkg/config"
)

type entry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// Registry keeps one Limiter per client key.
type Registry struct {
	cfg config.RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	clients   map[string]*entry
	lastSweep time.Time
}

// NewRegistry creates an empty registry whose limiters use cfg.
func NewRegistry(cfg config.RateLimitConfig) *Registry {
	return newRegistry(cfg, time.Now)
}

func newRegistry(cfg config.RateLimitConfig, now func() time.Time) *Registry {
	return &Registry{cfg: cfg, now: now, clients: make(map[string]*entry), lastSweep: now()}
}

// Get returns the limiter for key, creating it on first use. Clients idle
// for longer than IdleTTL are dropped along the way.
func (r *Registry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.cfg.IdleTTL > 0 && now.Sub(r.lastSweep) >= r.cfg.IdleTTL {
		for k, e := range r.clients {
			if now.Sub(e.lastSeen) >= r.cfg.IdleTTL && !e.busy() {
				delete(r.clients, k)
			}
		}
		r.lastSweep = now
	}

	e, ok := r.clients[key]
	if !ok {
		e = &entry{limiter: newLimiter(r.cfg, r.now)}
		r.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len returns the number of tracked clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (e *entry) busy() bool {
	c := e.limiter.concurrent
	return c != nil && c.InFlight() > 0
}

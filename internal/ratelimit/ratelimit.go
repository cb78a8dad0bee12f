// Package ratelimit implements the per-project token bucket rate
// limiting spec §9's open question resolves to "implement it" (see
// SPEC_FULL.md). It sits in front of the HTTP adapter's query
// endpoint only; the MCP adapter and the CLI take no limiter.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per project, created lazily with the
// configured rate and burst.
type Limiter struct {
	mu       sync.Mutex
	perSec   float64
	burst    int
	buckets  map[string]*rate.Limiter
}

// New builds a Limiter. A perSec of 0 disables limiting (Allow always
// returns true).
func New(perSec float64, burst int) *Limiter {
	return &Limiter{
		perSec:  perSec,
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a request for project may proceed now,
// consuming one token if so.
func (l *Limiter) Allow(project string) bool {
	if l.perSec <= 0 {
		return true
	}
	return l.bucketFor(project).Allow()
}

func (l *Limiter) bucketFor(project string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[project]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.perSec), l.burst)
		l.buckets[project] = b
	}
	return b
}

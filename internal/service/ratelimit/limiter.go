package ratelimit

import (
	"sync"
	"time"

	"FinScout/pkg/clock"
)

type bucket struct {
	tokens   float64
	capacity float64
	refill   float64 // tokens per second
	last     time.Time
}

// Limiter is a per-key token bucket. Keys are created lazily on first use;
// each key carries the capacity and refill rate of its first Allow call.
type Limiter struct {
	clk clock.Clock

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a limiter. A nil clock falls back to the system clock.
func New(clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Limiter{clk: clk, buckets: make(map[string]*bucket)}
}

// Allow consumes one token for key and reports whether it was available.
// A fresh key starts with a full bucket.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.clk.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refill: refillPerSec, last: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.refill
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Prune drops buckets idle longer than maxIdle and returns how many were
// removed. Callers run it periodically to keep per-IP keys from piling up.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	cutoff := l.clk.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

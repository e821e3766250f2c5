package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key starts full.
type Limiter struct {
	mu       sync.Mutex
	capacity float64
	perSec   float64
	buckets  map[string]*bucket
	now      func() time.Time
}

// New returns a limiter allowing burst requests per key, refilled at
// perMinute tokens a minute.
func New(burst int, perMinute float64) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		capacity: float64(burst),
		perSec:   perMinute / 60,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// Allow consumes one token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(l.capacity, b.tokens+elapsed*l.perSec)
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

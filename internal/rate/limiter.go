// Package rate provides a fixed-window counter used to throttle
// credential endpoints per client IP.
package rate

import (
	"sync"
	"time"
)

type Limiter interface {
	Allow(key string) bool
}

// FixedWindow counts hits per key within a rolling window of fixed
// length. Counters reset when their window elapses.
type FixedWindow struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	b, ok := f.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(f.window)}
		f.buckets[key] = b
	}

	if b.count >= f.limit {
		return false
	}
	b.count++
	return true
}

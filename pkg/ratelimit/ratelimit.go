package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or rejects hits for a key. Implementations must be safe
// for concurrent use; keys race across sessions for the same user.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// SlidingWindow is an in-process sliding-window limiter.
type SlidingWindow struct {
	mu      sync.Mutex
	limits  map[string][]time.Time
	window  time.Duration
	maxHits int
}

func NewSlidingWindow(window time.Duration, maxHits int) *SlidingWindow {
	return &SlidingWindow{
		limits:  make(map[string][]time.Time),
		window:  window,
		maxHits: maxHits,
	}
}

func (l *SlidingWindow) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.window)

	// Clean old entries
	if hits, exists := l.limits[key]; exists {
		valid := hits[:0]
		for _, hit := range hits {
			if hit.After(windowStart) {
				valid = append(valid, hit)
			}
		}
		l.limits[key] = valid
	}

	// Check current count
	if len(l.limits[key]) >= l.maxHits {
		return false
	}

	// Add new hit
	l.limits[key] = append(l.limits[key], now)
	return true
}

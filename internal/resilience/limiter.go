package resilience

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts requests per scope (usually a user id) in fixed windows.
type RateLimiter interface {
	Check(ctx context.Context, scope string, limit int, window time.Duration) (Decision, error)
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps windows in process memory. Counts are lost on restart and
// are not shared between replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

// Check starts a window lazily on the first request for a scope. Once the
// window holds limit requests, further requests are rejected until it resets.
func (l *MemoryLimiter) Check(_ context.Context, scope string, limit int, window time.Duration) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[scope]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{count: 0, resetAt: now.Add(window)}
		l.windows[scope] = w
	}

	if w.count >= limit {
		return Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Decision{Allowed: true, Limit: limit, Remaining: limit - w.count, ResetAt: w.resetAt}, nil
}

// Purge drops windows that have already reset and returns how many were removed.
func (l *MemoryLimiter) Purge() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for scope, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, scope)
			removed++
		}
	}
	return removed
}

// StartPurge runs Purge on an interval until ctx is cancelled.
func (l *MemoryLimiter) StartPurge(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Purge()
			}
		}
	}()
}

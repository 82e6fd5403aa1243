// Package guard paces and circuit-breaks calls to a rate-limited external API.
package guard

import (
	"context"
	"sync"
	"time"
)

// Throttle spaces calls at least Interval apart across all goroutines.
// Each caller reserves the next slot under the lock and sleeps outside it,
// so N concurrent callers are served roughly Interval apart with no burst.
type Throttle struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
	now      func() time.Time
}

// NewThrottle creates a throttle with the given minimum interval between calls
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
	}
}

// Reserve claims the next call slot and returns how long the caller must wait for it.
func (t *Throttle) Reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	wait := t.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	if t.next.Before(now) {
		t.next = now
	}
	t.next = t.next.Add(t.interval)
	return wait
}

// Wait reserves a slot and blocks until it is due or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	wait := t.Reserve()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval returns the configured spacing
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

package guard

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is refused because the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Cause identifies why the breaker was tripped
type Cause string

const (
	// CausePaymentRequired is an exhausted provider account
	CausePaymentRequired Cause = "payment_required"
	// CauseRateLimited is a provider-side rate limit
	CauseRateLimited Cause = "rate_limited"
)

// State represents the state of the circuit breaker
type State int

const (
	// StateClosed means calls are allowed
	StateClosed State = iota
	// StateOpen means calls fail fast
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Default cooldowns per cause
const (
	DefaultPaymentCooldown   = 6 * time.Hour
	DefaultRateLimitCooldown = 5 * time.Minute
)

// BreakerConfig configures a Breaker
type BreakerConfig struct {
	// PaymentCooldown is how long the breaker stays open after a payment failure
	PaymentCooldown time.Duration
	// RateLimitCooldown is how long the breaker stays open after a rate-limit failure
	RateLimitCooldown time.Duration
	// OnStateChange is an optional callback invoked when the breaker opens
	OnStateChange func(from, to State, cause Cause, until time.Time)
}

// Breaker is a process-wide "open until" gate. It is deliberately global
// rather than per key: one provider outage stops all traffic.
type Breaker struct {
	mu        sync.Mutex
	openUntil time.Time
	lastCause Cause
	config    BreakerConfig
	now       func() time.Time
}

// NewBreaker creates a closed breaker
func NewBreaker(config BreakerConfig) *Breaker {
	if config.PaymentCooldown <= 0 {
		config.PaymentCooldown = DefaultPaymentCooldown
	}
	if config.RateLimitCooldown <= 0 {
		config.RateLimitCooldown = DefaultRateLimitCooldown
	}
	return &Breaker{
		config: config,
		now:    time.Now,
	}
}

// Allow returns ErrCircuitOpen while the breaker is open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Before(b.openUntil) {
		return fmt.Errorf("%w: %s, retry after %v", ErrCircuitOpen, b.lastCause, b.openUntil.Sub(now).Round(time.Second))
	}
	return nil
}

// Trip opens the breaker for the cooldown matching cause. A non-zero override
// (a provider retry-after hint) replaces the configured cooldown. An already
// open breaker is only ever extended, never shortened.
func (b *Breaker) Trip(cause Cause, override time.Duration) time.Time {
	cooldown := override
	if cooldown <= 0 {
		cooldown = b.cooldown(cause)
	}

	b.mu.Lock()
	now := b.now()
	from := StateClosed
	if now.Before(b.openUntil) {
		from = StateOpen
	}
	until := now.Add(cooldown)
	if until.After(b.openUntil) {
		b.openUntil = until
		b.lastCause = cause
	}
	until = b.openUntil
	callback := b.config.OnStateChange
	b.mu.Unlock()

	if callback != nil {
		callback(from, StateOpen, cause, until)
	}
	return until
}

// State reports whether the breaker is currently open
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openUntil) {
		return StateOpen
	}
	return StateClosed
}

// OpenUntil returns the time the breaker closes again; zero when never tripped
func (b *Breaker) OpenUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openUntil
}

// Reset closes the breaker immediately
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = time.Time{}
	b.lastCause = ""
}

func (b *Breaker) cooldown(cause Cause) time.Duration {
	if cause == CausePaymentRequired {
		return b.config.PaymentCooldown
	}
	return b.config.RateLimitCooldown
}

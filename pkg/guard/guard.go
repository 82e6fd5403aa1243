package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/llm"
	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Config holds the settings for a Guard
type Config struct {
	Interval          time.Duration
	PaymentCooldown   time.Duration
	RateLimitCooldown time.Duration
	Logger            *logrus.Logger
}

// Guard composes the throttle and the circuit breaker around every call to
// the classification provider. One instance is shared by the whole process.
type Guard struct {
	throttle *Throttle
	breaker  *Breaker
	logger   *logrus.Logger
}

// New creates a Guard
func New(config Config) *Guard {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	logger := config.Logger

	return &Guard{
		throttle: NewThrottle(config.Interval),
		breaker: NewBreaker(BreakerConfig{
			PaymentCooldown:   config.PaymentCooldown,
			RateLimitCooldown: config.RateLimitCooldown,
			OnStateChange: func(from, to State, cause Cause, until time.Time) {
				metrics.BreakerOpen.Set(1)
				logger.WithFields(logrus.Fields{
					"from":       from.String(),
					"to":         to.String(),
					"cause":      cause,
					"open_until": until.Format(time.RFC3339),
				}).Warn("Classification circuit breaker opened")
			},
		}),
		logger: logger,
	}
}

// Breaker exposes the underlying circuit breaker
func (g *Guard) Breaker() *Breaker {
	return g.breaker
}

// Throttle exposes the underlying throttle
func (g *Guard) Throttle() *Throttle {
	return g.throttle
}

// Do runs fn if the breaker is closed, after waiting for a throttle slot.
// No call is made while the breaker is open. Payment and rate-limit failures
// trip the breaker and are returned as ErrCircuitOpen, so callers treat them
// exactly like a breaker that was already open.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.breaker.Allow(); err != nil {
		return err
	}
	if err := g.throttle.Wait(ctx); err != nil {
		return err
	}
	// the breaker may have opened while this caller was waiting for its slot
	if err := g.breaker.Allow(); err != nil {
		return err
	}
	metrics.BreakerOpen.Set(0)

	err := fn(ctx)
	if err == nil {
		return nil
	}

	cause, tripping := causeOf(err)
	if !tripping {
		return err
	}
	override, _ := llm.RetryAfter(err)
	until := g.breaker.Trip(cause, override)
	return fmt.Errorf("%w: %s until %s: %v", ErrCircuitOpen, cause, until.Format(time.RFC3339), err)
}

func causeOf(err error) (Cause, bool) {
	switch {
	case errors.Is(err, llm.ErrPaymentRequired):
		return CausePaymentRequired, true
	case errors.Is(err, llm.ErrRateLimited):
		return CauseRateLimited, true
	}
	return "", false
}

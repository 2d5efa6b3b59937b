// Package retry re-runs failed fetches on an exponential schedule and probes
// backend reachability in the background.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/five82/ticketbook/internal/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Refresh re-runs a fetch with force set and reports whether it succeeded.
type Refresh func(ctx context.Context) bool

// Controller schedules retries. The zero value uses three retries with a 1s
// base delay doubling per attempt.
type Controller struct {
	MaxRetries int
	BaseDelay  time.Duration
	// After replaces time.After in tests.
	After   func(time.Duration) <-chan time.Time
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func (c *Controller) maxRetries() int {
	if c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

func (c *Controller) after(d time.Duration) <-chan time.Time {
	if c.After != nil {
		return c.After(d)
	}
	return time.After(d)
}

// schedule yields BaseDelay * 2^n for n in [0, MaxRetries) and then Stop.
func (c *Controller) schedule() backoff.BackOff {
	base := c.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = base << c.maxRetries()
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(c.maxRetries()))
}

// Delay returns the wait before retry attempt (zero-based) and false once
// attempt has reached MaxRetries.
func (c *Controller) Delay(attempt int) (time.Duration, bool) {
	if attempt < 0 {
		attempt = 0
	}
	sched := c.schedule()
	for i := 0; i < attempt; i++ {
		if sched.NextBackOff() == backoff.Stop {
			return 0, false
		}
	}
	d := sched.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	return d, true
}

// Retry waits for the delay of attempt, runs refresh, and on failure moves
// on to the next attempt. It stops silently once attempt reaches MaxRetries,
// when refresh succeeds, or when ctx is done, and reports whether a refresh
// succeeded.
func (c *Controller) Retry(ctx context.Context, attempt int, refresh Refresh) bool {
	for {
		d, ok := c.Delay(attempt)
		if !ok {
			c.Logger.Debug().Int("attempt", attempt).Msg("retries exhausted")
			c.Metrics.Retry("exhausted")
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-c.after(d):
		}
		if refresh(ctx) {
			c.Logger.Debug().Int("attempt", attempt).Msg("retry succeeded")
			c.Metrics.Retry("success")
			return true
		}
		c.Logger.Debug().Int("attempt", attempt).Dur("delay", d).Msg("retry failed")
		c.Metrics.Retry("failure")
		attempt++
	}
}

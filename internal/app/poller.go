package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultPollInterval = time.Minute

// Poller refreshes at a fixed cadence without forcing, so fresh cache entries
// are served locally. A failed refresh waits for the next tick; retrying
// sooner is left to the user.
type Poller struct {
	Interval time.Duration
	Refresh  func(ctx context.Context, force bool) bool
	Logger   zerolog.Logger
}

// Start launches the poller goroutine. It refreshes once immediately and
// returns a channel closed when the goroutine exits after ctx is done.
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			p.poll(ctx, interval)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func (p *Poller) poll(ctx context.Context, interval time.Duration) {
	if ctx.Err() != nil || p.Refresh(ctx, false) {
		return
	}
	if ctx.Err() == nil {
		p.Logger.Warn().Dur("next", interval).Msg("refresh failed, waiting for next poll")
	}
}

package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/ticketbook/internal/metrics"
)

const DefaultProbeInterval = 30 * time.Second

// Probe checks reachability at a fixed cadence and reports each result to
// Report. Transitions are logged.
type Probe struct {
	Interval time.Duration
	Ping     func(ctx context.Context) error
	Report   func(online bool)
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

// Start launches the probe goroutine. It probes once immediately and returns
// a channel closed when the goroutine exits after ctx is done.
func (p *Probe) Start(ctx context.Context) <-chan struct{} {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		online := true
		for {
			online = p.check(ctx, online)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func (p *Probe) check(ctx context.Context, wasOnline bool) bool {
	if ctx.Err() != nil {
		return wasOnline
	}
	err := p.Ping(ctx)
	online := err == nil
	if online != wasOnline {
		if online {
			p.Logger.Info().Msg("backend reachable again")
		} else {
			p.Logger.Warn().Err(err).Msg("backend unreachable")
		}
	}
	p.Metrics.SetOnline(online)
	if p.Report != nil {
		p.Report(online)
	}
	return online
}

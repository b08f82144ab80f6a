package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every interval.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler drives fixed-interval execution of a tick function.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function every interval until ctx is
// cancelled. A tick error is logged and does not stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case at := <-ticker.C:
			s.logger.Debug().Time("tick", at).Msg("executing scheduled tick")
			if err := tick(ctx, at); err != nil {
				s.logger.Error().Err(err).Time("tick", at).Msg("tick execution failed")
			}
		}
	}
}

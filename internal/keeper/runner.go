package keeper

import (
	"context"
	"log/slog"
	"time"
)

// CycleFunc performs one agent pass.
type CycleFunc func(ctx context.Context) error

// Runner drives one agent's cycles on a fixed ticker with an optional
// per-cycle timeout. A cycle error is logged and the schedule keeps going;
// only context cancellation stops the runner.
type Runner struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       CycleFunc
	logger   *slog.Logger
}

// NewRunner creates a runner for the named agent. timeout zero means cycles
// inherit the runner's context directly.
func NewRunner(name string, interval, timeout time.Duration, fn CycleFunc, logger *slog.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		timeout:  timeout,
		fn:       fn,
		logger:   logger.With(slog.String("component", "runner"), slog.String("agent", name)),
	}
}

// Run executes one cycle immediately, then one per tick, until the context is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "runner started",
		slog.Duration("interval", r.interval),
		slog.Duration("cycle_timeout", r.timeout),
	)

	r.cycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Runner) cycle(ctx context.Context) {
	cctx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.fn(cctx); err != nil {
		r.logger.ErrorContext(ctx, "cycle failed", slog.String("error", err.Error()))
	}
}

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshMargin is how long before token expiry a refresh fires.
const DefaultRefreshMargin = 5 * time.Minute

// RefreshScheduler arranges a single one-shot refresh callback ahead of
// token expiry. Establishing a new session or logging out cancels any
// previously scheduled timer, so at most one timer is ever pending.
type RefreshScheduler struct {
	mu     sync.Mutex
	timer  *time.Timer
	margin time.Duration
	fire   func(context.Context)
	logger *slog.Logger
	now    func() time.Time
}

// RefreshSchedulerOptions groups dependencies for a RefreshScheduler.
type RefreshSchedulerOptions struct {
	// Margin is subtracted from the expiry to compute the fire time.
	// Defaults to DefaultRefreshMargin when zero.
	Margin time.Duration

	// Fire runs when the timer elapses. Required.
	Fire func(context.Context)

	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewRefreshScheduler constructs a scheduler with no pending timer.
func NewRefreshScheduler(opts RefreshSchedulerOptions) *RefreshScheduler {
	margin := opts.Margin
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RefreshScheduler{
		margin: margin,
		fire:   opts.Fire,
		logger: logger,
		now:    now,
	}
}

// Schedule replaces any pending timer with one firing at
// expiresAt minus margin. An expiry already inside the margin fires
// immediately; a zero expiry only cancels.
func (r *RefreshScheduler) Schedule(expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	if expiresAt.IsZero() || r.fire == nil {
		return
	}

	delay := expiresAt.Sub(r.now()) - r.margin
	if delay < 0 {
		delay = 0
	}

	r.logger.Debug("refresh scheduled", "fire_in", delay)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		r.mu.Lock()
		// A concurrent Schedule or Cancel already replaced this timer;
		// only the armed one disarms itself.
		if r.timer == t {
			r.timer = nil
		}
		r.mu.Unlock()
		r.fire(context.Background())
	})
	r.timer = t
}

// Cancel stops the pending timer, if any. Idempotent.
func (r *RefreshScheduler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Pending reports whether a timer is currently armed.
func (r *RefreshScheduler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func (r *RefreshScheduler) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

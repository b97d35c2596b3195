// Package wait implements bounded polling for asynchronous UI state.
//
// A wait is a predicate, an interval and a timeout. The predicate is
// evaluated immediately and then once per interval until it reports true
// or the deadline passes. Deadlines use the monotonic clock, so wall clock
// adjustments do not stretch or cut a wait short.
package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 25 * time.Millisecond

// ErrTimeout is returned by Until when the deadline passes.
var ErrTimeout = errors.New("wait timed out")

// Predicate reports whether the awaited state has been reached. An error
// means "not yet": it is logged and polling continues.
type Predicate func(ctx context.Context) (bool, error)

// Poller configures polling. The zero value polls every DefaultInterval
// and logs to slog.Default().
type Poller struct {
	// Interval between evaluations.
	Interval time.Duration
	// Notify, if set, returns a channel that is closed when the observed
	// state changes. A change cuts the current sleep short.
	Notify func() <-chan struct{}
	Logger *slog.Logger
}

// For waits until pred reports true and returns true, or returns false once
// timeout elapses or ctx is done. Reaching the timeout is not an error.
func (p Poller) For(ctx context.Context, pred Predicate, timeout time.Duration) bool {
	return p.poll(ctx, pred, timeout) == nil
}

// Until is like For but returns an error wrapping ErrTimeout, or the
// context's error, when the state is not reached.
func (p Poller) Until(ctx context.Context, pred Predicate, timeout time.Duration) error {
	return p.poll(ctx, pred, timeout)
}

func (p Poller) poll(ctx context.Context, pred Predicate, timeout time.Duration) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if timeout < 0 {
		timeout = 0
	}

	start := time.Now()
	deadline := start.Add(timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var notify <-chan struct{}
		if p.Notify != nil {
			notify = p.Notify()
		}

		ok, err := pred(ctx)
		switch {
		case err != nil:
			lastErr = err
			logger.Debug("wait predicate not ready", slog.Int("attempt", attempt), slog.Any("error", err))
		case ok:
			logger.Debug("wait satisfied", slog.Int("attempt", attempt), slog.Duration("elapsed", time.Since(start)))
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if lastErr != nil {
				return fmt.Errorf("%w after %v (%d attempts): last error: %v", ErrTimeout, timeout, attempt, lastErr)
			}
			return fmt.Errorf("%w after %v (%d attempts)", ErrTimeout, timeout, attempt)
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// For waits with a zero Poller. See Poller.For.
func For(ctx context.Context, pred Predicate, timeout time.Duration) bool {
	return Poller{}.For(ctx, pred, timeout)
}

// Until waits with a zero Poller. See Poller.Until.
func Until(ctx context.Context, pred Predicate, timeout time.Duration) error {
	return Poller{}.Until(ctx, pred, timeout)
}

// Not inverts a predicate. Errors pass through unchanged.
func Not(pred Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

// Func adapts a plain boolean function.
func Func(fn func() bool) Predicate {
	return func(context.Context) (bool, error) {
		return fn(), nil
	}
}

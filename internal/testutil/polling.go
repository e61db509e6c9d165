// Package testutil provides helpers for tests of asynchronous bridge code:
// polling with consistent timeouts, and a recording bridge.Outbound.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds waits in tests that don't choose their own.
const DefaultTimeout = 5 * time.Second

// DefaultInterval is the polling interval of the Wait helpers.
const DefaultInterval = 2 * time.Millisecond

// Poll repeatedly checks a condition until it becomes true or timeout expires.
// Returns an error if timeout expires before condition becomes true.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if condition() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
		case <-time.After(interval):
		}
	}
}

// WaitForState waits until the state getter returns a value that satisfies
// the predicate function, or timeout expires.
//
//	frames, err := WaitForState(ctx, out.Results,
//		func(f []bridge.ResultFrame) bool { return len(f) == 2 },
//		time.Second,
//		time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	var state T
	err := Poll(ctx, func() bool {
		state = getter()
		return predicate(state)
	}, timeout, interval)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("waiting for %T: %w", zero, err)
	}
	return state, nil
}

package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrInFlight is returned while a previous call that overran its deadline
// has not yet returned.
var ErrInFlight = errors.New("previous call still in flight")

// deadlineCall runs detector calls under a timeout. A call that ignores ctx
// is abandoned, and no new call starts until it returns.
type deadlineCall struct {
	name     string
	timeout  time.Duration
	inFlight atomic.Bool
}

type callResult[T any] struct {
	val T
	err error
}

func callWithin[T any](ctx context.Context, c *deadlineCall, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !c.inFlight.CompareAndSwap(false, true) {
		return zero, fmt.Errorf("%s skipped: %w", c.name, ErrInFlight)
	}

	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	ch := make(chan callResult[T], 1)
	go func() {
		defer c.inFlight.Store(false)
		defer cancel()
		val, err := fn(ctx)
		ch <- callResult[T]{val: val, err: err}
	}()

	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		return zero, fmt.Errorf("%s timed out after %v: %w", c.name, c.timeout, ctx.Err())
	}
}

package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a context that expires after timeout. When the
// deadline fires first the result wraps context.DeadlineExceeded, even if
// fn ignores its context. A non-positive timeout runs fn directly.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- result{val: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		return r.val, r.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}

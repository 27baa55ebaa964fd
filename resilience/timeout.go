package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is how long a dispatcher request waits for its cache
	// operation. Default: 30 seconds
	Timeout time.Duration
}

// TimeoutMetrics counts expired cache operations.
type TimeoutMetrics struct {
	Expired int64
}

// Timeout bounds how long an HTTP caller waits for a cache add, remove or
// list. The store work is not interrupted: a cache operation that misses the
// deadline still completes in the background, only the response is released.
type Timeout struct {
	config  TimeoutConfig
	expired atomic.Int64
}

// NewTimeout creates a timeout wrapper, applying the 30s default.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{config: config}
}

// Execute runs the cache operation op on its own goroutine and returns
// ErrTimeout when the deadline passes first. op sees a context cancelled
// with cause ErrTimeout. Cancellation by the caller is reported as the
// caller's context error, not as a timeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeoutCause(ctx, t.config.Timeout, ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	var err error
	select {
	case err = <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	case <-ctx.Done():
		err = ctx.Err()
	}
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		t.expired.Add(1)
		return ErrTimeout
	}
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// Metrics returns how many operations ran past the deadline.
func (t *Timeout) Metrics() TimeoutMetrics {
	return TimeoutMetrics{Expired: t.expired.Load()}
}

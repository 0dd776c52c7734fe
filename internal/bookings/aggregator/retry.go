package aggregator

import (
	"context"
	"time"
)

// RetryPolicy decides how often a failed fetch is attempted again.
type RetryPolicy interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

// NoRetry runs the operation exactly once.
type NoRetry struct{}

func (NoRetry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return op(ctx)
}

// FixedRetry re-runs a failed operation up to Retries more times, waiting Delay
// between attempts. It stops early when ctx is done.
type FixedRetry struct {
	Retries int
	Delay   time.Duration
}

func (p FixedRetry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
		if err = op(ctx); err == nil {
			return nil
		}
	}
	return err
}

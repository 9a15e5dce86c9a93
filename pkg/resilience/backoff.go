package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy yields the wait before retry number attempt (0-indexed)
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows BaseDelay by Multiplier per attempt, capped at
// MaxDelay, and spreads each delay by ±Jitter.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // 0.0-1.0
}

// ConnectBackoff paces startup pings while Postgres or Redis come up
func ConnectBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// NextDelay implements BackoffStrategy
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := math.Min(
		float64(eb.BaseDelay)*math.Pow(eb.Multiplier, float64(attempt)),
		float64(eb.MaxDelay),
	)
	spread := delay * eb.Jitter * (rand.Float64()*2 - 1)

	if d := time.Duration(delay + spread); d > 0 {
		return d
	}
	return eb.BaseDelay
}

// FixedBackoff always waits Delay
type FixedBackoff struct {
	Delay time.Duration
}

// NextDelay implements BackoffStrategy
func (fb *FixedBackoff) NextDelay(int) time.Duration {
	return fb.Delay
}

// Retry calls fn up to attempts times, sleeping per backoff between calls.
// onRetry, when set, sees each failure that will be retried. Gateway
// submissions must never go through Retry: a resent recharge can settle twice.
func Retry(
	ctx context.Context,
	attempts int,
	backoff BackoffStrategy,
	onRetry func(attempt int, delay time.Duration, err error),
	fn func(ctx context.Context) error,
) error {
	if attempts < 1 {
		attempts = 1
	}
	if backoff == nil {
		backoff = ConnectBackoff()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoff.NextDelay(attempt - 1)
			if onRetry != nil {
				onRetry(attempt, delay, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

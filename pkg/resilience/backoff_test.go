package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{20, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoff_JitterStaysInBounds(t *testing.T) {
	backoff := ConnectBackoff()
	for i := 0; i < 200; i++ {
		d := backoff.NextDelay(1)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestRetry(t *testing.T) {
	fast := &FixedBackoff{Delay: time.Millisecond}

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		var retried []int
		err := Retry(context.Background(), 3, fast,
			func(attempt int, _ time.Duration, err error) {
				retried = append(retried, attempt)
				assert.EqualError(t, err, "not ready")
			},
			func(context.Context) error {
				calls++
				if calls < 3 {
					return errors.New("not ready")
				}
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("gives up", func(t *testing.T) {
		boom := errors.New("refused")
		err := Retry(context.Background(), 2, fast, nil, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})

	t.Run("zero attempts still calls once", func(t *testing.T) {
		calls := 0
		_ = Retry(context.Background(), 0, fast, nil, func(context.Context) error { calls++; return errors.New("x") })
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := Retry(ctx, 5, &FixedBackoff{Delay: time.Minute}, nil, func(context.Context) error { return errors.New("down") })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}

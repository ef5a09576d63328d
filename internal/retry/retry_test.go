package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoStopsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Fixed{MaxAttempts: 5}, func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhausts(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), Fixed{MaxAttempts: 10}, func(_ context.Context, attempt int) error {
		calls++
		require.Equal(t, calls, attempt)
		return boom
	})
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 10, calls)
}

func TestDoHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Fixed{MaxAttempts: 3, Pause: time.Hour}, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestFixedAttemptsFloor(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, Fixed{}.Attempts())
	require.Equal(t, 500*time.Millisecond, Fixed{Pause: 500 * time.Millisecond}.Delay(4))
}

func TestExponentialDelayBounds(t *testing.T) {
	t.Parallel()

	p := Exponential{MaxAttempts: 4, Base: time.Second, Max: 5 * time.Second}
	require.Equal(t, 4, p.Attempts())
	for attempt, ceiling := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 6: 5 * time.Second} {
		d := p.Delay(attempt)
		require.GreaterOrEqual(t, d, ceiling/2, "attempt %d", attempt)
		require.Less(t, d, ceiling, "attempt %d", attempt)
	}
}

func TestExponentialZeroValue(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, Exponential{}.Attempts())
	require.Zero(t, Exponential{MaxAttempts: 3}.Delay(2))
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJob(t *testing.T) {
	t.Parallel()
	var runs atomic.Int32
	s, err := New(time.Second, func(context.Context) error {
		runs.Add(1)
		return errors.New("transport error")
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerStopCancelsRunningJob(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	var once atomic.Bool
	s, err := New(time.Second, func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerRecoversPanics(t *testing.T) {
	t.Parallel()
	var runs atomic.Int32
	s, err := New(time.Second, func(context.Context) error {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestNewValidates(t *testing.T) {
	t.Parallel()
	_, err := New(0, func(context.Context) error { return nil }, nil)
	require.Error(t, err)
	_, err = New(time.Second, nil, nil)
	require.Error(t, err)
}

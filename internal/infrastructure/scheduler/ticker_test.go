package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsJobImmediatelyAndOnTicks(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Millisecond)
	fired := make(chan time.Time, 16)

	require.NoError(t, s.Start(context.Background(), func(ts time.Time) {
		select {
		case fired <- ts:
		default:
		}
	}))
	defer func() { _ = s.Stop(context.Background()) }()

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("job did not fire (run %d)", i)
		}
	}
}

func TestStopWhileTicking(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		s := NewIntervalScheduler(time.Microsecond)
		var runs atomic.Int64

		require.NoError(t, s.Start(context.Background(), func(time.Time) {
			runs.Add(1)
		}))
		for runs.Load() == 0 {
			time.Sleep(time.Microsecond)
		}
		require.NoError(t, s.Stop(context.Background()))
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStartAfterStopRestarts(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, func(time.Time) {}))
	require.NoError(t, s.Stop(ctx))

	var runs atomic.Int64
	require.NoError(t, s.Start(ctx, func(time.Time) { runs.Add(1) }))
	defer func() { _ = s.Stop(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, time.Second, time.Millisecond)
}

func TestStartTwiceKeepsFirstJob(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Millisecond)
	ctx := context.Background()
	var first, second atomic.Int64

	require.NoError(t, s.Start(ctx, func(time.Time) { first.Add(1) }))
	defer func() { _ = s.Stop(ctx) }()
	require.NoError(t, s.Start(ctx, func(time.Time) { second.Add(1) }))

	assert.Eventually(t, func() bool { return first.Load() > 0 }, time.Second, time.Millisecond)
	assert.Zero(t, second.Load())
}

package usecase

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"marked transient", Transient(errors.New("boom")), true},
		{"wrapped marked", fmt.Errorf("insert: %w", Transient(errors.New("boom"))), true},
		{"bad conn", driver.ErrBadConn, true},
		{"deadline", context.DeadlineExceeded, true},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"pq connection failure", &pq.Error{Code: "08006"}, true},
		{"pq unique violation", &pq.Error{Code: "23505"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	exec := NewRetryExecutor(2, time.Millisecond, nil)

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoFatalErrorNotRetried(t *testing.T) {
	t.Parallel()

	exec := NewRetryExecutor(2, time.Millisecond, nil)
	fatal := errors.New("scorer rejected batch")

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	t.Parallel()

	exec := NewRetryExecutor(2, time.Millisecond, nil)
	transient := Transient(errors.New("timeout"))

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestDoStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	exec := NewRetryExecutor(5, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- exec.Do(ctx, func(ctx context.Context) error {
			return Transient(errors.New("timeout"))
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

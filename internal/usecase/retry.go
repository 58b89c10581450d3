package usecase

import (
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	defaultMaxRetries = 2
	defaultRetryDelay = 5 * time.Second
)

// transientError marks an error as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so the retry executor treats it as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err looks like a connection-level or
// timeout failure worth retrying. Everything else is fatal and
// propagates to the task boundary immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var marked *transientError
	if errors.As(err, &marked) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// Postgres class 08: connection exceptions.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	return false
}

// RetryExecutor reruns an operation on transient failures with a fixed
// delay between attempts. Fatal errors are returned on the spot; an
// exhausted budget returns the last transient error to the caller.
type RetryExecutor struct {
	maxRetries int
	delay      time.Duration
	logger     *slog.Logger
}

// NewRetryExecutor builds an executor; non-positive arguments fall back
// to the defaults (2 retries, 5s delay).
func NewRetryExecutor(maxRetries int, delay time.Duration, logger *slog.Logger) *RetryExecutor {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &RetryExecutor{maxRetries: maxRetries, delay: delay, logger: logger}
}

// Do runs op, retrying transient failures up to the configured budget.
func (r *RetryExecutor) Do(ctx context.Context, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= r.maxRetries {
			return err
		}

		if r.logger != nil {
			r.logger.Warn("retrying after transient error",
				"attempt", attempt+1, "max_retries", r.maxRetries, "error", err)
		}

		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

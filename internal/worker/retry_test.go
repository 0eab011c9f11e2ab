package worker

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, 100*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, policy.NextDelay(3))

	t.Run("clamped to max", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, policy.NextDelay(10))
	})

	t.Run("zero values get defaults", func(t *testing.T) {
		var p RetryPolicy
		assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
		assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	})
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"wrapped sqlite busy", errors.Join(errors.New("tx failed"), sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"plain error", errors.New("slot conflict"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2}

	calls := 0
	result, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return "booked", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "booked", result)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnDeterministicError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2}
	errConflict := errors.New("slot conflict")

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, errConflict
	})

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 1, calls, "deterministic errors must not be retried")

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDoExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2}

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, sqlite3.Error{Code: sqlite3.ErrBusy}
	})

	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	var sqliteErr sqlite3.Error
	assert.ErrorAs(t, err, &sqliteErr, "ExhaustedError should unwrap to the last failure")
}

func TestDoBackoffTiming(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, BackoffFactor: 2}

	began := time.Now()
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		return 0, sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	elapsed := time.Since(began)

	require.Error(t, err)
	// 100ms before attempt 2, 200ms before attempt 3.
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, BackoffFactor: 2}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	began := time.Now()
	_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
		return 0, sqlite3.Error{Code: sqlite3.ErrBusy}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(began), time.Second, "cancellation must interrupt the backoff sleep")
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeRepoNotFound, "repository missing")

	assert.Equal(t, ErrCodeRepoNotFound, err.Code)
	assert.Equal(t, "repository missing", err.Message)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Recoverable)
	assert.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Error(), "GSE3001")
}

func TestWrap(t *testing.T) {
	t.Run("wraps cause", func(t *testing.T) {
		cause := fmt.Errorf("socket closed")
		err := Wrap(cause, ErrCodeConnectionFailed, "connect failed")

		assert.Equal(t, cause, err.Unwrap())
		assert.Contains(t, err.Error(), "socket closed")
	})

	t.Run("nil cause returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrCodeInternal, "no error"))
	})

	t.Run("inherits context from wrapped AppError", func(t *testing.T) {
		inner := New(ErrCodeWarehouseWrite, "insert failed").
			WithContext("table", "commits")
		outer := Wrap(inner, ErrCodeInternal, "sync failed")

		assert.Equal(t, "commits", outer.Context["table"])
	})
}

func TestIs(t *testing.T) {
	err := New(ErrCodeHistoryDiverged, "diverged")

	assert.True(t, errors.Is(err, New(ErrCodeHistoryDiverged, "other message")))
	assert.False(t, errors.Is(err, New(ErrCodeRepoNotFound, "diverged")))
}

func TestHistoryDivergedError(t *testing.T) {
	err := HistoryDivergedError("feature/x", "abc123")

	assert.Equal(t, ErrCodeHistoryDiverged, err.Code)
	assert.Equal(t, "feature/x", err.Context["branch"])
	assert.Equal(t, "abc123", err.Context["last_ingested"])
	assert.False(t, err.Recoverable)
}

func TestRepositoryAccessError(t *testing.T) {
	err := RepositoryAccessError("/tmp/nowhere", fmt.Errorf("repository does not exist"))

	assert.Equal(t, ErrCodeRepoNotFound, err.Code)
	assert.Equal(t, SeverityCritical, err.Severity)
	assert.True(t, IsFatal(err))
}

func TestContractViolation(t *testing.T) {
	err := ContractViolation("renamed row missing old_path")

	assert.Equal(t, ErrCodeContractViolated, err.Code)
	assert.True(t, IsFatal(err))
	assert.False(t, IsRecoverable(err))
}

func TestWarehouseWriteError(t *testing.T) {
	tests := []struct {
		name        string
		cause       error
		recoverable bool
	}{
		{"network cause is transient", fmt.Errorf("connection reset by peer"), true},
		{"timeout cause is transient", fmt.Errorf("deadline timeout exceeded"), true},
		{"syntax cause is permanent", fmt.Errorf("SQL compilation error"), false},
		{"nil-ish cause", fmt.Errorf("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WarehouseWriteError("insert failed", tt.cause)
			assert.Equal(t, tt.recoverable, IsRecoverable(err))
		})
	}
}

func TestIsFatalNonAppError(t *testing.T) {
	assert.False(t, IsFatal(fmt.Errorf("plain error")))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain error")))
}

func TestRetry(t *testing.T) {
	fastConfig := &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		RetryableError: DefaultRetryConfig().RetryableError,
	}

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastConfig, func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries recoverable errors until success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastConfig, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return New(ErrCodeServiceUnavailable, "warehouse busy")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastConfig, func(ctx context.Context) error {
			calls++
			return ContractViolation("bad rename row")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, ErrCodeContractViolated, GetErrorCode(err))
	})

	t.Run("exhausts retries", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastConfig, func(ctx context.Context) error {
			calls++
			return New(ErrCodeNetworkUnavailable, "down")
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls)
		assert.Equal(t, ErrCodeMaxRetriesExceeded, GetErrorCode(err))
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, fastConfig, func(ctx context.Context) error {
			return New(ErrCodeNetworkUnavailable, "down")
		})
		assert.ErrorIs(t, err, context.Canceled)
		// the failure being retried stays visible alongside the cancellation
		assert.Contains(t, err.Error(), "down")
	})
}

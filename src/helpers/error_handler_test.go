package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSessionError("connect to nats", cause)

	assert.Equal(t, "connect to nats: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var sessErr *SessionError
	assert.True(t, errors.As(err, &sessErr))

	var dbErr *DatabaseError
	assert.False(t, errors.As(err, &dbErr))
}

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff("connect", 3, time.Millisecond, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffReturnsLastError(t *testing.T) {
	last := errors.New("still down")
	calls := 0
	err := RetryWithBackoff("connect", 2, time.Millisecond, nil, func() error {
		calls++
		return last
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoffRunsAtLeastOnce(t *testing.T) {
	calls := 0
	err := RetryWithBackoff("init", 0, time.Millisecond, nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestErrorHandlerCounts(t *testing.T) {
	h := NewErrorHandler()
	h.Handle(nil, "noop")
	h.Handle(NewDatabaseError("save records", errors.New("locked")), "sink")
	h.Handle(errors.New("plain"), "loop")
	assert.Equal(t, 2, h.ErrorCount)

	h.ResetErrorCount()
	assert.Equal(t, 0, h.ErrorCount)
}

func TestRecommendedMemoryLimitIsPositive(t *testing.T) {
	limit := GetRecommendedMemoryLimit()
	assert.Greater(t, limit, 0)
	if total := GetTotalSystemMemoryMB(); total >= minMemoryLimitMB {
		assert.GreaterOrEqual(t, limit, minMemoryLimitMB)
		assert.LessOrEqual(t, limit, total)
	}
}

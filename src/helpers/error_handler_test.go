package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/logger"
)

func TestTelemetryErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFeedError("feed dial failed", cause)

	assert.Equal(t, "feed dial failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewDecodeError("bad frame", nil)
	assert.Equal(t, "bad frame", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	log := logger.NewLogger("CRITICAL", "test")

	attempts := 0
	err := RetryWithBackoff(log, "flaky op", 5, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffExhaustsRetries(t *testing.T) {
	log := logger.NewLogger("CRITICAL", "test")

	cause := errors.New("permanent")
	attempts := 0
	err := RetryWithBackoff(log, "doomed op", 3, time.Millisecond, func() error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "doomed op failed after 3 attempts")
}

package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIsRetriableError tests transient error classification
func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{
			name:      "nil error",
			err:       nil,
			retriable: false,
		},
		{
			name:      "deadline exceeded",
			err:       context.DeadlineExceeded,
			retriable: true,
		},
		{
			name:      "429 rate limit",
			err:       errors.New("HTTP 429: rate limit exceeded"),
			retriable: true,
		},
		{
			name:      "500 internal server error",
			err:       errors.New("500 internal server error"),
			retriable: true,
		},
		{
			name:      "503 service unavailable",
			err:       errors.New("503 service unavailable"),
			retriable: true,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp: connection refused"),
			retriable: true,
		},
		{
			name:      "connection reset",
			err:       errors.New("read: connection reset by peer"),
			retriable: true,
		},
		{
			name:      "authentication failure",
			err:       errors.New("401 unauthorized: invalid api key"),
			retriable: false,
		},
		{
			name:      "bad request",
			err:       errors.New("400 bad request: invalid model"),
			retriable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retriable, isRetriableError(tt.err))
		})
	}
}

// TestCircuitBreakerOpensAfterThreshold verifies the circuit opens once
// consecutive failures reach the threshold
func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 100*time.Millisecond)

	assert.Equal(t, CircuitClosed, cb.GetState())
	require.NoError(t, cb.Allow())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState(), "circuit should stay closed below threshold")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

// TestCircuitBreakerSuccessResetsFailureCount verifies a success in the
// closed state wipes accumulated failures
func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 100*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState())
}

// TestCircuitBreakerHalfOpenRecovery verifies the open -> half-open ->
// closed transition after the open timeout elapses
func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 20*time.Millisecond)

	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.GetState())
	require.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)

	// First Allow after the timeout transitions to half-open
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.GetState())

	// Needs successThreshold successes to close
	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.GetState())
}

// TestCircuitBreakerHalfOpenFailureReopens verifies any failure during
// half-open immediately reopens the circuit
func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 20*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Allow())
	require.Equal(t, CircuitHalfOpen, cb.GetState())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
}

// newRetryTestClient builds a client with fast backoffs and no circuit
// breaker unless the caller installs one
func newRetryTestClient(maxRetries int) *Client {
	return &Client{
		retry: RetryConfig{
			MaxRetries:        maxRetries,
			InitialBackoff:    1 * time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2.0,
			Timeout:           1 * time.Second,
		},
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	c := newRetryTestClient(3)

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test-op", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	c := newRetryTestClient(3)

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test-op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetriableError(t *testing.T) {
	c := newRetryTestClient(3)

	calls := 0
	authErr := errors.New("401 unauthorized: invalid api key")
	err := c.retryWithBackoff(context.Background(), "test-op", func(ctx context.Context) error {
		calls++
		return authErr
	})

	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, calls, "non-retriable errors should not be retried")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	c := newRetryTestClient(2)

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test-op", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryFailsFastWhenCircuitOpen(t *testing.T) {
	c := newRetryTestClient(3)
	c.circuitBreaker = NewCircuitBreaker(1, 2, time.Minute)
	c.circuitBreaker.RecordFailure()

	calls := 0
	err := c.retryWithBackoff(context.Background(), "test-op", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls, "open circuit should block the call entirely")
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	c := newRetryTestClient(5)
	c.retry.InitialBackoff = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.retryWithBackoff(ctx, "test-op", func(ctx context.Context) error {
			calls++
			return errors.New("connection refused")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "context canceled")
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop after cancellation")
	}
}

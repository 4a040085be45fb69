// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stratum-ai/stratum/internal/breaker"
	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func newTestBreaker(t *testing.T, cfg breaker.Config) (*breaker.CircuitBreaker, *time.Time) {
	t.Helper()
	cb := breaker.New("anthropic", cfg)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cb.SetNowFunc(func() time.Time { return now })
	return cb, &now
}

func TestBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{})
	assert.True(t, cb.IsClosed())
	assert.Equal(t, breaker.StateClosed, cb.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{FailureThreshold: 3})

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, cb.Do(context.Background(), failing), errBoom)
		assert.True(t, cb.IsClosed(), "still closed after %d failures", i+1)
	}

	require.ErrorIs(t, cb.Do(context.Background(), failing), errBoom)
	assert.True(t, cb.IsOpen(), "open after threshold consecutive failures")
}

func TestBreaker_FastFailsWhileOpen(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	require.Error(t, cb.Do(context.Background(), failing))
	require.True(t, cb.IsOpen())

	invoked := false
	err := cb.Do(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, stratumerr.IsCircuitOpen(err))
	assert.False(t, invoked, "wrapped function must not run while open")
}

func TestBreaker_LazyHalfOpenAfterRecoveryTimeout(t *testing.T) {
	cb, now := newTestBreaker(t, breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	require.Error(t, cb.Do(context.Background(), failing))
	require.True(t, cb.IsOpen())

	// Not yet eligible.
	*now = now.Add(59 * time.Second)
	err := cb.Do(context.Background(), succeeding)
	require.Error(t, err)
	assert.True(t, stratumerr.IsCircuitOpen(err))
	assert.True(t, cb.IsOpen())

	// Eligible: the next call transitions to HALF_OPEN and runs.
	*now = now.Add(2 * time.Second)
	require.NoError(t, cb.Do(context.Background(), succeeding))
	assert.True(t, cb.IsHalfOpen())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(t, breaker.Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})

	require.Error(t, cb.Do(context.Background(), failing))
	*now = now.Add(2 * time.Minute)

	require.ErrorIs(t, cb.Do(context.Background(), failing), errBoom)
	assert.True(t, cb.IsOpen(), "single half-open failure reopens immediately")
}

func TestBreaker_HalfOpenSuccessesClose(t *testing.T) {
	cb, now := newTestBreaker(t, breaker.Config{
		FailureThreshold:         1,
		RecoveryTimeout:          time.Minute,
		HalfOpenSuccessThreshold: 2,
	})

	require.Error(t, cb.Do(context.Background(), failing))
	*now = now.Add(2 * time.Minute)

	require.NoError(t, cb.Do(context.Background(), succeeding))
	assert.True(t, cb.IsHalfOpen())

	require.NoError(t, cb.Do(context.Background(), succeeding))
	assert.True(t, cb.IsClosed())

	snap := cb.Snapshot()
	assert.Zero(t, snap.FailureCount)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Zero(t, snap.TotalCalls)
	assert.Zero(t, snap.SlowCallCount)
}

func TestBreaker_HalfOpenTrialWindowExhausted(t *testing.T) {
	cb, now := newTestBreaker(t, breaker.Config{
		FailureThreshold:         1,
		RecoveryTimeout:          time.Minute,
		HalfOpenTestRequests:     2,
		HalfOpenSuccessThreshold: 5,
	})

	require.Error(t, cb.Do(context.Background(), failing))
	*now = now.Add(2 * time.Minute)

	require.NoError(t, cb.Do(context.Background(), succeeding))
	require.NoError(t, cb.Do(context.Background(), succeeding))

	err := cb.Do(context.Background(), succeeding)
	require.Error(t, err)
	assert.True(t, stratumerr.IsCircuitOpen(err))
}

func TestBreaker_FailureRateTrips(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{
		FailureThreshold: 5,
		MaxFailureRate:   0.5,
	})

	// Mixed outcomes: never 5 consecutive failures, but the failure rate
	// crosses 0.5 once the sample is large enough. The interleaved success
	// forgives one failure, so the count going into the last call is 2.
	require.Error(t, cb.Do(context.Background(), failing))
	require.Error(t, cb.Do(context.Background(), failing))
	require.NoError(t, cb.Do(context.Background(), succeeding))
	require.Error(t, cb.Do(context.Background(), failing))
	assert.True(t, cb.IsClosed(), "rate check waits for a full sample")

	require.Error(t, cb.Do(context.Background(), failing))
	assert.True(t, cb.IsOpen(), "failure rate over threshold trips breaker")
}

func TestBreaker_SlowCallRateTrips(t *testing.T) {
	cb := breaker.New("openai", breaker.Config{
		FailureThreshold:      3,
		SlowCallThreshold:     time.Second,
		SlowCallRateThreshold: 0.6,
		MaxFailureRate:        0.99,
	})

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cb.SetNowFunc(func() time.Time { return now })

	slow := func(context.Context) error {
		now = now.Add(2 * time.Second)
		return nil
	}
	slowFailing := func(context.Context) error {
		now = now.Add(2 * time.Second)
		return errBoom
	}

	require.NoError(t, cb.Do(context.Background(), slow))
	require.NoError(t, cb.Do(context.Background(), slow))
	assert.True(t, cb.IsClosed(), "transitions are evaluated on failures")

	require.Error(t, cb.Do(context.Background(), slowFailing))
	assert.True(t, cb.IsOpen(), "slow call rate trips breaker")
}

func TestBreaker_ForceOpenAndReset(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{})

	cb.ForceOpen()
	assert.True(t, cb.IsOpen())

	err := cb.Do(context.Background(), succeeding)
	require.Error(t, err)
	assert.True(t, stratumerr.IsCircuitOpen(err))

	cb.Reset()
	assert.True(t, cb.IsClosed())
	require.NoError(t, cb.Do(context.Background(), succeeding))
}

func TestBreaker_ClassifiedFailureTally(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{FailureThreshold: 10})

	rateLimited := func(context.Context) error {
		return provider.Failure(errBoom, provider.KindRateLimit, "anthropic")
	}
	timedOut := func(context.Context) error {
		return provider.Failure(errBoom, provider.KindTimeout, "anthropic")
	}

	require.Error(t, cb.Do(context.Background(), rateLimited))
	require.Error(t, cb.Do(context.Background(), rateLimited))
	require.Error(t, cb.Do(context.Background(), timedOut))
	require.Error(t, cb.Do(context.Background(), failing)) // unclassified

	snap := cb.Snapshot()
	assert.Equal(t, int64(2), snap.FailureKinds["rate_limit"])
	assert.Equal(t, int64(1), snap.FailureKinds["timeout"])
	assert.Equal(t, 4, snap.FailureCount)
}

func TestBreaker_SuccessForgivesOneFailure(t *testing.T) {
	cb, _ := newTestBreaker(t, breaker.Config{FailureThreshold: 5})

	require.Error(t, cb.Do(context.Background(), failing))
	require.Error(t, cb.Do(context.Background(), failing))
	require.NoError(t, cb.Do(context.Background(), succeeding))

	snap := cb.Snapshot()
	assert.Equal(t, 1, snap.FailureCount)
	assert.Zero(t, snap.ConsecutiveFailures)
}

// End-to-end recovery per the documented contract: threshold 3, recovery
// 1s; three failures open the breaker, the fourth call fast-fails, and
// after 1.1s two successes close it again.
func TestBreaker_EndToEndRecovery(t *testing.T) {
	cb := breaker.New("google", breaker.Config{
		FailureThreshold:         3,
		RecoveryTimeout:          time.Second,
		HalfOpenSuccessThreshold: 2,
	})
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cb.SetNowFunc(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Do(context.Background(), failing), errBoom)
	}
	require.True(t, cb.IsOpen())

	err := cb.Do(context.Background(), succeeding)
	require.Error(t, err)
	assert.True(t, stratumerr.IsCircuitOpen(err))

	now = now.Add(1100 * time.Millisecond)

	require.NoError(t, cb.Do(context.Background(), succeeding))
	require.NoError(t, cb.Do(context.Background(), succeeding))
	assert.True(t, cb.IsClosed())
}

func TestBreaker_ConcurrentCalls(t *testing.T) {
	cb := breaker.New("anthropic", breaker.Config{FailureThreshold: 1000})

	const goroutines = 8
	const iterations = 50

	done := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < iterations; j++ {
				_ = cb.Do(context.Background(), succeeding)
				_ = cb.Do(context.Background(), failing)
				_ = cb.Snapshot()
			}
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}

	snap := cb.Snapshot()
	assert.Equal(t, goroutines*iterations*2, snap.TotalCalls)
	assert.True(t, cb.IsClosed())
}

package observability_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/adapter/observability"
)

func TestBreaker_StartsClosed(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 3, time.Minute)
	assert.Equal(t, observability.BreakerClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 3, time.Minute)
	b.Failure()
	b.Failure()
	assert.Equal(t, observability.BreakerClosed, b.State())
	b.Failure()
	assert.Equal(t, observability.BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), observability.ErrBreakerOpen)
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 3, time.Minute)
	b.Failure()
	b.Failure()
	b.Success()
	assert.Zero(t, b.Failures())
	b.Failure()
	b.Failure()
	assert.Equal(t, observability.BreakerClosed, b.State())
}

func TestBreaker_HalfOpensAfterCooldown(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 1, 10*time.Millisecond)
	b.Failure()
	require.Equal(t, observability.BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), observability.ErrBreakerOpen)

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, b.Allow())
	assert.Equal(t, observability.BreakerHalfOpen, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 1, 10*time.Millisecond)
	b.Failure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.Failure()
	assert.Equal(t, observability.BreakerOpen, b.State())
}

func TestBreaker_ClosesAfterProbeSuccesses(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 1, 10*time.Millisecond)
	b.Failure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.Success()
	b.Success()
	assert.Equal(t, observability.BreakerHalfOpen, b.State())
	b.Success()
	assert.Equal(t, observability.BreakerClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreaker_DoCountsOutcomes(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 2, time.Minute)
	boom := errors.New("dial failed")

	err := b.Do(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	err = b.Do(func() error { return boom })
	assert.ErrorIs(t, err, boom)

	// The circuit is open now; fn must not run.
	ran := false
	err = b.Do(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, observability.ErrBreakerOpen)
	assert.False(t, ran)
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := observability.NewBreaker("provider", "initiate_call", 1, time.Hour)
	b.Failure()
	require.Equal(t, observability.BreakerOpen, b.State())

	b.Reset()
	assert.Equal(t, observability.BreakerClosed, b.State())
	assert.Zero(t, b.Failures())
	assert.NoError(t, b.Allow())
}

package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errBoom = errors.New("boom")

func TestBreakerTripsAndRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker("redis", BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Second, Now: clock.Now})

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	assert.ErrorIs(t, b.Do(fail), errBoom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Do(ok))
	assert.Equal(t, StateClosed, b.State())

	c := b.Counts()
	assert.Equal(t, int64(1), c.Rejected)
	assert.Equal(t, int64(1), c.Trips)
	assert.Equal(t, 0, c.ConsecutiveFailures)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker("redis", BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second, Now: clock.Now})

	_ = b.Do(func() error { return errBoom })
	clock.Advance(time.Second)
	_ = b.Do(func() error { return errBoom })
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, int64(2), b.Counts().Trips)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	errMiss := errors.New("miss")
	b := NewBreaker("redis", BreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, errMiss) },
	})
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return errMiss }), errMiss)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestRetry(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), "connect", Backoff{Attempts: 3, Initial: time.Millisecond}, func(context.Context) error {
		if calls.Add(1) < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "connect", Backoff{Attempts: 2, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestRetryPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "connect", Backoff{Attempts: 5, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		return Permanent(errBoom)
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx, "connect", Backoff{Attempts: 5, Initial: time.Hour}, func(context.Context) error {
		cancel()
		return errBoom
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Factor: 2, Jitter: 0.01}
	assert.InDelta(t, float64(100*time.Millisecond), float64(b.Delay(1)), float64(2*time.Millisecond))
	assert.InDelta(t, float64(400*time.Millisecond), float64(b.Delay(3)), float64(5*time.Millisecond))
	assert.LessOrEqual(t, b.Delay(20), time.Second)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "ping", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, IsTimeout(err))
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))

	require.NoError(t, WithTimeout(context.Background(), time.Second, "ping", func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WithTimeout(ctx, time.Second, "ping", func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

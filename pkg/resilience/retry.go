package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff configures Retry. Zero fields take defaults: three attempts starting
// at 200ms, doubling up to 5s, with 10% jitter.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Jitter   float64
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Initial <= 0 {
		b.Initial = 200 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 5 * time.Second
	}
	if b.Factor < 1 {
		b.Factor = 2
	}
	if b.Jitter <= 0 {
		b.Jitter = 0.1
	}
	return b
}

// Delay returns the wait before the attempt after the given one, starting at 1.
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	d := float64(b.Initial)
	for i := 1; i < attempt && d < float64(b.Max); i++ {
		d *= b.Factor
	}
	d += d * b.Jitter * (2*rand.Float64() - 1)
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d <= 0 {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, ctx ends, or
// the attempts run out. It returns the last error.
func Retry(ctx context.Context, name string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)
	var err error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("%s: %w", name, perm.err)
		}
		if attempt == b.Attempts {
			break
		}
		delay := b.Delay(attempt)
		logger.Warn("attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", b.Attempts,
			"error", err,
			"next_delay", delay,
		)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", name, b.Attempts, err)
}

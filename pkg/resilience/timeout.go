package resilience

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// WithTimeout runs fn under a deadline of d. A call that overruns the
// deadline reports apperrors.ErrTimeout; cancellation of ctx itself is
// returned unchanged. fn must honour its context.
func WithTimeout(ctx context.Context, d time.Duration, name string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return apperrors.Newf(apperrors.ErrTimeout, 0, "%s exceeded %v: %v", name, d, err)
	}
	return err
}

// IsTimeout reports whether err came from an overrun deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, apperrors.ErrTimeout)
}

package services

import (
	"context"
	"errors"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/repositories"
)

const maxWriteAttempts = 5

// withRetry runs operation until it succeeds, fails with an error other than
// a version conflict or a busy store, or the attempts run out.
func withRetry(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < maxWriteAttempts; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) && !errors.Is(err, repositories.ErrStoreBusy) {
			return err
		}
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.Transient, "store unavailable", ctx.Err())
		case <-time.After(time.Duration(i+1) * 10 * time.Millisecond):
		}
	}
	return apperr.Wrap(apperr.Transient, "too many concurrent updates, retry later", err)
}

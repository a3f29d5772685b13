// Package retry provides a small exponential-backoff helper for the
// recoverable error kinds in pipeline/errors (invoice sequence
// conflicts, storage and database unavailability). No third-party
// backoff library appears anywhere in the retrieved example repos, so
// this is a direct time.Timer/context loop rather than an imported one.
package retry

import (
	"context"
	"time"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
)

// Do calls fn up to attempts times, sleeping base*2^i between tries.
// It stops retrying as soon as fn succeeds, as soon as it returns an
// error that is not a recoverable *pipeerrors.Error, or once attempts
// is exhausted. The context's cancellation is honored between tries.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		perr, ok := lastErr.(*pipeerrors.Error)
		if !ok || !perr.Kind.IsRecoverable() {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		wait := base << uint(i)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

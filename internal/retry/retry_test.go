package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
)

func TestDoRetriesRecoverableErrorThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return pipeerrors.New("tax", pipeerrors.DatabaseUnavailable, "connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsImmediatelyOnFatalError(t *testing.T) {
	calls := 0
	fatal := pipeerrors.New("tax", pipeerrors.TaxSplitInvariant, "split invalid")
	err := Do(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		calls++
		return fatal
	})
	if err != fatal {
		t.Fatalf("expected fatal error to propagate unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-recoverable error, got %d", calls)
	}
}

func TestDoPassesThroughNonTaxonomyError(t *testing.T) {
	plain := errors.New("boom")
	calls := 0
	err := Do(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		calls++
		return plain
	})
	if err != plain {
		t.Fatalf("expected plain error to propagate unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestDoGivesUpAfterExhaustingAttempts(t *testing.T) {
	calls := 0
	recoverable := pipeerrors.New("tax", pipeerrors.StorageUnavailable, "s3 timeout")
	err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		return recoverable
	})
	if err != recoverable {
		t.Fatalf("expected last recoverable error returned, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

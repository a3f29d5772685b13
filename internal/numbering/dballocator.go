package numbering

import (
	"context"
	"sync"
)

// sequenceStore is the subset of *store.DB the allocator needs,
// declared locally so this package does not import store (which would
// create an import cycle: store's models are domain-agnostic, but
// keeping the dependency one-directional keeps numbering reusable
// without a live database in tests). ReserveSequence only advances the
// row's reserved-but-uncommitted mark; CommitSequence and
// RollbackSequence resolve a specific previously-reserved range, so
// concurrent reservations against the same key never corrupt one
// another's range.
type sequenceStore interface {
	ReserveSequence(ctx context.Context, gstin, channel, buyerState, month string, n int) (first int, err error)
	CommitSequence(ctx context.Context, gstin, channel, buyerState, month string, first, n int) error
	RollbackSequence(ctx context.Context, gstin, channel, buyerState, month string, first, n int) error
}

// reservation is the in-memory record of one outstanding Reserve call,
// held until Commit or Release resolves it.
type reservation struct {
	first int
	n     int
}

// DBAllocator is the durable Allocator backed by the invoice_sequences
// table. Reserve only advances the reserved-up-to mark; the durable
// next_value high-water mark actually used for numbering continuation
// is untouched until Commit persists the specific reserved range.
type DBAllocator struct {
	store sequenceStore

	mu    sync.Mutex
	holds map[SequenceKey]reservation
}

// NewDBAllocator returns an Allocator backed by store.
func NewDBAllocator(store sequenceStore) *DBAllocator {
	return &DBAllocator{store: store, holds: map[SequenceKey]reservation{}}
}

func (a *DBAllocator) Reserve(ctx context.Context, key SequenceKey, n int) (int, error) {
	first, err := a.store.ReserveSequence(ctx, key.GSTIN, key.Channel, key.BuyerState, key.Month, n)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	a.holds[key] = reservation{first: first, n: n}
	a.mu.Unlock()
	return first, nil
}

func (a *DBAllocator) Commit(ctx context.Context, key SequenceKey) error {
	a.mu.Lock()
	hold, ok := a.holds[key]
	delete(a.holds, key)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return a.store.CommitSequence(ctx, key.GSTIN, key.Channel, key.BuyerState, key.Month, hold.first, hold.n)
}

func (a *DBAllocator) Release(ctx context.Context, key SequenceKey) {
	a.mu.Lock()
	hold, ok := a.holds[key]
	delete(a.holds, key)
	a.mu.Unlock()
	if !ok {
		return
	}
	_ = a.store.RollbackSequence(ctx, key.GSTIN, key.Channel, key.BuyerState, key.Month, hold.first, hold.n)
}

var _ Allocator = (*DBAllocator)(nil)

// Package taxstage orchestrates the GST split and invoice-numbering
// rules over a batch of enriched rows, producing Priced rows. Sequence
// numbers are reserved per key and only committed once the caller
// accepts the whole stage's output; a failed stage releases its
// reservations, which returns a range to the counter only when no later
// reservation for the same key has been taken past it.
package taxstage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/cache"
	"github.com/ledgerpipe/ledgerpipe/internal/numbering"
	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
	"github.com/ledgerpipe/ledgerpipe/internal/retry"
	"github.com/ledgerpipe/ledgerpipe/internal/taxrules"
)

const stageTax = "tax"

// reserveAttempts/reserveBackoff bound how hard the stage retries a
// sequence reservation that races another run for the same
// (gstin, channel, buyer_state, month) key before giving up.
const (
	reserveAttempts = 4
	reserveBackoff  = 50 * time.Millisecond
)

// Stage computes tax splits and invoice numbers over enriched rows.
type Stage struct {
	Allocator  numbering.Allocator
	StateTable map[string]string
	// Cache memoizes ComputeSplit results across the run; nil is a
	// valid zero value and simply disables memoization.
	Cache *cache.Cache
}

// New returns a Stage using alloc for durable sequence allocation, with
// memoization disabled. Call WithCache to enable it.
func New(alloc numbering.Allocator, stateTable map[string]string) *Stage {
	return &Stage{Allocator: alloc, StateTable: stateTable}
}

// WithCache attaches a tax-split memoization cache and returns the
// same Stage, for chaining onto New.
func (s *Stage) WithCache(c *cache.Cache) *Stage {
	s.Cache = c
	return s
}

// computeSplit routes through the memoization cache when one is
// attached, falling straight to taxrules.ComputeSplit otherwise.
func (s *Stage) computeSplit(ctx context.Context, channel string, taxableValue, shippingValue, gstRate decimal.Decimal, isIntrastate bool) taxrules.Split {
	if s.Cache == nil {
		return taxrules.ComputeSplit(channel, taxableValue, shippingValue, gstRate, isIntrastate)
	}
	split, err := s.Cache.ComputeSplitCached(ctx, channel, taxableValue, shippingValue, gstRate, isIntrastate)
	if err != nil {
		return taxrules.ComputeSplit(channel, taxableValue, shippingValue, gstRate, isIntrastate)
	}
	return split
}

// Result is the stage's output: priced rows plus the set of sequence
// keys reserved during the run, so the caller can Commit them once the
// stage has succeeded, or Release them on abort.
type Result struct {
	Priced   []rows.Priced
	Reserved []numbering.SequenceKey
}

// Run applies AdjustForReturns, ComputeSplit and invoice numbering to
// each enriched row, grouped by its (gstin, channel, buyer_state,
// month) sequence key so each group reserves one contiguous block.
func (s *Stage) Run(ctx context.Context, gstin string, enriched []rows.Enriched) (Result, error) {
	type group struct {
		key  numbering.SequenceKey
		rows []int
	}
	groups := map[numbering.SequenceKey]*group{}
	order := make([]numbering.SequenceKey, 0)

	for i, e := range enriched {
		key := numbering.SequenceKey{
			GSTIN:      gstin,
			Channel:    string(e.Channel),
			BuyerState: e.BuyerState,
			Month:      e.Month,
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, i)
	}

	priced := make([]rows.Priced, len(enriched))
	reserved := make([]numbering.SequenceKey, 0, len(order))

	for _, key := range order {
		g := groups[key]

		var first int
		reserveErr := retry.Do(ctx, reserveAttempts, reserveBackoff, func(ctx context.Context) error {
			var err error
			first, err = s.Allocator.Reserve(ctx, key, len(g.rows))
			if err != nil {
				return pipeerrors.Wrap(stageTax, pipeerrors.InvoiceSequenceConflict,
					fmt.Sprintf("reserve sequence for %+v", key), err)
			}
			return nil
		})
		if reserveErr != nil {
			for _, k := range reserved {
				s.Allocator.Release(ctx, k)
			}
			return Result{}, reserveErr
		}
		reserved = append(reserved, key)

		for offset, idx := range g.rows {
			e := enriched[idx]
			taxable := taxrules.AdjustForReturns(e.TaxableValue, e.ReturnedQty, e.TotalQty)

			isIntrastate := taxrules.IsIntrastate(gstin, e.BuyerState, s.StateTable)
			split := s.computeSplit(ctx, string(e.Channel), taxable, e.ShippingValue, e.GSTRate, isIntrastate)
			if !split.Validate() {
				for _, k := range reserved {
					s.Allocator.Release(ctx, k)
				}
				return Result{}, pipeerrors.New(stageTax, pipeerrors.TaxSplitInvariant,
					fmt.Sprintf("order %s failed the tax split invariant", e.OrderID))
			}

			invoiceNo := numbering.Format(string(e.Channel), e.BuyerState, e.Month, first+offset)

			priced[idx] = rows.Priced{
				Enriched:    e,
				CGST:        split.CGST,
				SGST:        split.SGST,
				IGST:        split.IGST,
				TotalTax:    split.TotalTax,
				TotalAmount: split.TotalAmount,
				InvoiceNo:   invoiceNo,
			}
		}
	}

	return Result{Priced: priced, Reserved: reserved}, nil
}

// Commit durably persists every sequence reservation made by Run.
func (s *Stage) Commit(ctx context.Context, reserved []numbering.SequenceKey) error {
	for _, key := range reserved {
		if err := s.Allocator.Commit(ctx, key); err != nil {
			return fmt.Errorf("taxstage: commit sequence %+v: %w", key, err)
		}
	}
	return nil
}

// Release discards every sequence reservation made by Run without persisting it.
func (s *Stage) Release(ctx context.Context, reserved []numbering.SequenceKey) {
	for _, key := range reserved {
		s.Allocator.Release(ctx, key)
	}
}

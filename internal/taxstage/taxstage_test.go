package taxstage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/numbering"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

type fakeAllocator struct {
	next     map[numbering.SequenceKey]int
	released []numbering.SequenceKey
	reserved []numbering.SequenceKey
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{next: map[numbering.SequenceKey]int{}}
}

func (f *fakeAllocator) Reserve(ctx context.Context, key numbering.SequenceKey, n int) (int, error) {
	first := f.next[key] + 1
	f.next[key] += n
	f.reserved = append(f.reserved, key)
	return first, nil
}

func (f *fakeAllocator) Commit(ctx context.Context, key numbering.SequenceKey) error { return nil }

func (f *fakeAllocator) Release(ctx context.Context, key numbering.SequenceKey) {
	f.released = append(f.released, key)
}

var stateTable = map[string]string{"07": "DELHI", "27": "MAHARASHTRA"}

func TestStageRunAssignsContiguousInvoiceNumbers(t *testing.T) {
	alloc := newFakeAllocator()
	stage := New(alloc, stateTable)

	enriched := []rows.Enriched{
		{Canonical: rows.Canonical{
			OrderID: "O1", Channel: rows.ChannelSalesMTR, BuyerState: "DELHI", Month: "2026-06",
			TaxableValue: decimal.NewFromInt(1000), GSTRate: decimal.NewFromFloat(0.18),
			InvoiceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		}},
		{Canonical: rows.Canonical{
			OrderID: "O2", Channel: rows.ChannelSalesMTR, BuyerState: "DELHI", Month: "2026-06",
			TaxableValue: decimal.NewFromInt(2000), GSTRate: decimal.NewFromFloat(0.18),
			InvoiceDate: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		}},
	}

	result, err := stage.Run(context.Background(), "07AAAAA0000A1Z5", enriched)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Priced) != 2 {
		t.Fatalf("expected 2 priced rows, got %d", len(result.Priced))
	}
	if result.Priced[0].InvoiceNo != numbering.Format(string(rows.ChannelSalesMTR), "DELHI", "2026-06", 1) ||
		result.Priced[1].InvoiceNo != numbering.Format(string(rows.ChannelSalesMTR), "DELHI", "2026-06", 2) {
		t.Fatalf("expected consecutive invoice numbers 1 and 2, got %q and %q", result.Priced[0].InvoiceNo, result.Priced[1].InvoiceNo)
	}
	if !result.Priced[0].CGST.IsPositive() || !result.Priced[0].SGST.IsPositive() || !result.Priced[0].IGST.IsZero() {
		t.Fatalf("expected intrastate CGST/SGST split, got %+v", result.Priced[0])
	}
}

func TestStageRunForcesIGSTForSettlementSTR(t *testing.T) {
	alloc := newFakeAllocator()
	stage := New(alloc, stateTable)

	enriched := []rows.Enriched{{Canonical: rows.Canonical{
		OrderID: "O3", Channel: rows.ChannelSettlementSTR, BuyerState: "DELHI", Month: "2026-06",
		TaxableValue: decimal.NewFromInt(500), GSTRate: decimal.NewFromFloat(0.18),
	}}}

	result, err := stage.Run(context.Background(), "07AAAAA0000A1Z5", enriched)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	p := result.Priced[0]
	if !p.IGST.IsPositive() || !p.CGST.IsZero() || !p.SGST.IsZero() {
		t.Fatalf("expected forced IGST split for settlement-STR even though intrastate, got %+v", p)
	}
}

func TestStageReleaseDiscardsEveryReservedGroup(t *testing.T) {
	alloc := newFakeAllocator()
	stage := New(alloc, stateTable)

	enriched := []rows.Enriched{
		{Canonical: rows.Canonical{
			OrderID: "O1", Channel: rows.ChannelSalesMTR, BuyerState: "DELHI", Month: "2026-06",
			TaxableValue: decimal.NewFromInt(1000), GSTRate: decimal.NewFromFloat(0.18),
		}},
		{Canonical: rows.Canonical{
			OrderID: "O2", Channel: rows.ChannelMarketplaceF, BuyerState: "MAHARASHTRA", Month: "2026-06",
			TaxableValue: decimal.NewFromInt(1000), GSTRate: decimal.NewFromFloat(0.18),
		}},
	}

	result, err := stage.Run(context.Background(), "07AAAAA0000A1Z5", enriched)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Reserved) != 2 {
		t.Fatalf("expected 2 distinct sequence groups reserved, got %d", len(result.Reserved))
	}

	stage.Release(context.Background(), result.Reserved)
	if len(alloc.released) != 2 {
		t.Fatalf("expected Release to discard both reservations, got %d", len(alloc.released))
	}
}

func TestStageRunAppliesReturnsAdjustmentBeforeSplit(t *testing.T) {
	alloc := newFakeAllocator()
	stage := New(alloc, stateTable)

	enriched := []rows.Enriched{{Canonical: rows.Canonical{
		OrderID: "O4", Channel: rows.ChannelMarketplaceP, BuyerState: "KARNATAKA", Month: "2026-06",
		TaxableValue: decimal.NewFromInt(1000), GSTRate: decimal.NewFromFloat(0.18),
		ReturnedQty: 1, TotalQty: 2,
	}}}

	result, err := stage.Run(context.Background(), "07AAAAA0000A1Z5", enriched)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	p := result.Priced[0]
	// taxable adjusted to 1000 * (2-1)/2 = 500, then 18% IGST = 90.
	if !p.IGST.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected returns-adjusted IGST of 90, got %s", p.IGST)
	}
	if !p.TotalAmount.Equal(decimal.NewFromInt(590)) {
		t.Fatalf("expected returns-adjusted total amount of 590, got %s", p.TotalAmount)
	}
}

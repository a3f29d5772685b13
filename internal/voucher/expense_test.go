package voucher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/expense"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
	"github.com/ledgerpipe/ledgerpipe/internal/taxrules"
)

func TestAssembleExpenseSumsToZero(t *testing.T) {
	lines := []expense.PricedLine{
		{
			SellerInvoiceLine: rows.SellerInvoiceLine{
				VendorInvoiceNo: "AMZ-FEE-001",
				InvoiceDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				ExpenseType:     "Closing Fee",
				TaxableValue:    decimal.NewFromInt(1000),
				GSTRate:         decimal.NewFromFloat(0.18),
			},
			Split:      taxrules.ComputeSplit("expense-invoice", decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromFloat(0.18), false),
			LedgerName: "Marketplace Closing Fee",
		},
		{
			SellerInvoiceLine: rows.SellerInvoiceLine{
				VendorInvoiceNo: "AMZ-FEE-001",
				InvoiceDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				ExpenseType:     "Commission Fee",
				TaxableValue:    decimal.NewFromInt(500),
				GSTRate:         decimal.NewFromFloat(0.18),
			},
			Split:      taxrules.ComputeSplit("expense-invoice", decimal.NewFromInt(500), decimal.Zero, decimal.NewFromFloat(0.18), false),
			LedgerName: "Marketplace Commission",
		},
	}

	vouchers, err := AssembleExpense("07AAAAA0000A1Z5", "2026-06", lines)
	if err != nil {
		t.Fatalf("AssembleExpense: %v", err)
	}
	if len(vouchers) != 1 {
		t.Fatalf("expected 1 voucher, got %d", len(vouchers))
	}
	v := vouchers[0]
	if !v.Total().IsZero() {
		t.Fatalf("expected voucher to sum to zero, got %s", v.Total())
	}

	hasVendorCredit := false
	for _, l := range v.Lines {
		if l.Ledger == vendorPayableLedger && l.Amount.IsNegative() {
			hasVendorCredit = true
		}
	}
	if !hasVendorCredit {
		t.Fatalf("expected a negative vendor-payable credit row, got %+v", v.Lines)
	}
}

func TestExpenseVoucherNoFormat(t *testing.T) {
	got := ExpenseVoucherNo("07AAAAA0000A1Z5", "2026-06", 7)
	want := "EXP0726060007"
	if got != want {
		t.Fatalf("ExpenseVoucherNo = %q, want %q", got, want)
	}
}

func TestSalesVoucherNoDistinctFromInvoiceNumberFormat(t *testing.T) {
	got := SalesVoucherNo("sales-MTR", "DELHI", "2026-06", 3)
	if got == "" {
		t.Fatal("expected a non-empty voucher number")
	}
	for i := 0; i < len(got)-1; i++ {
		if got[i] == 'V' && got[i+1] == '-' {
			return
		}
	}
	t.Fatalf("expected voucher number to carry the V- marker distinguishing it from invoice numbers, got %q", got)
}

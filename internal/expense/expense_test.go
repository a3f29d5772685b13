package expense

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

var stateTable = map[string]string{"06": "HARYANA", "07": "DELHI"}

func TestClassifyThenPriceLinesSameStateVendorIsIntrastate(t *testing.T) {
	inv := ParsedInvoice{
		VendorInvoiceNo: "AMZ-FEE-1",
		InvoiceDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		VendorGSTIN:     "06AAAAA0000A1Z5",
		LineItems: []ParsedLineItem{
			{Description: "Referral Fee", TaxableValue: decimal.NewFromInt(1000)},
		},
	}

	lines := Classify(rows.ChannelSalesMTR, "06BBBBB0000B1Z5", "fee-statement.xlsx", stateTable, inv)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].VendorState != "HARYANA" {
		t.Fatalf("expected resolved vendor state HARYANA, got %q", lines[0].VendorState)
	}

	priced, err := PriceLines("06BBBBB0000B1Z5", stateTable, lines)
	if err != nil {
		t.Fatalf("PriceLines: %v", err)
	}
	if len(priced) != 1 {
		t.Fatalf("expected 1 priced line, got %d", len(priced))
	}

	split := priced[0].Split
	if !split.IGST.IsZero() {
		t.Fatalf("same-state vendor must not be charged IGST, got %s", split.IGST)
	}
	if !split.CGST.IsPositive() || !split.SGST.IsPositive() {
		t.Fatalf("same-state vendor must split CGST/SGST, got cgst=%s sgst=%s", split.CGST, split.SGST)
	}
	if !split.CGST.Equal(split.SGST) {
		t.Fatalf("CGST and SGST must match, got cgst=%s sgst=%s", split.CGST, split.SGST)
	}
}

func TestClassifyThenPriceLinesCrossStateVendorIsInterstate(t *testing.T) {
	inv := ParsedInvoice{
		VendorInvoiceNo: "AMZ-FEE-2",
		InvoiceDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		VendorGSTIN:     "07AAAAA0000A1Z5",
		LineItems: []ParsedLineItem{
			{Description: "Commission Fee", TaxableValue: decimal.NewFromInt(1000)},
		},
	}

	lines := Classify(rows.ChannelSalesMTR, "06BBBBB0000B1Z5", "fee-statement.xlsx", stateTable, inv)
	priced, err := PriceLines("06BBBBB0000B1Z5", stateTable, lines)
	if err != nil {
		t.Fatalf("PriceLines: %v", err)
	}

	split := priced[0].Split
	if split.IGST.IsZero() {
		t.Fatalf("cross-state vendor must be charged IGST")
	}
	if !split.CGST.IsZero() || !split.SGST.IsZero() {
		t.Fatalf("cross-state vendor must not split CGST/SGST, got cgst=%s sgst=%s", split.CGST, split.SGST)
	}
}

func TestClassifyUnknownVendorGSTINDefaultsToInterstate(t *testing.T) {
	inv := ParsedInvoice{
		VendorInvoiceNo: "AMZ-FEE-3",
		InvoiceDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		VendorGSTIN:     "",
		LineItems: []ParsedLineItem{
			{Description: "Storage Fee", TaxableValue: decimal.NewFromInt(500)},
		},
	}

	lines := Classify(rows.ChannelSalesMTR, "06BBBBB0000B1Z5", "fee-statement.xlsx", stateTable, inv)
	if lines[0].VendorState != "" {
		t.Fatalf("expected blank vendor state for an unrecognized GSTIN, got %q", lines[0].VendorState)
	}

	priced, err := PriceLines("06BBBBB0000B1Z5", stateTable, lines)
	if err != nil {
		t.Fatalf("PriceLines: %v", err)
	}
	if priced[0].Split.IGST.IsZero() {
		t.Fatalf("unknown vendor state must default to IGST")
	}
}

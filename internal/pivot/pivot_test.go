package pivot

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

func priced(qty int64, taxable string, cgst, sgst, igst string, rate string, ledger, fg string) rows.Priced {
	p := rows.Priced{}
	p.Quantity = qty
	p.TaxableValue = decimal.RequireFromString(taxable)
	p.GSTRate = decimal.RequireFromString(rate)
	p.LedgerName = ledger
	p.FG = fg
	p.CGST = decimal.RequireFromString(cgst)
	p.SGST = decimal.RequireFromString(sgst)
	p.IGST = decimal.RequireFromString(igst)
	p.GSTIN = "06ABGCS4796R1ZA"
	p.Month = "2025-08"
	return p
}

func TestAggregateExcludesZeroTaxableForSalesMTR(t *testing.T) {
	input := []rows.Priced{
		priced(1, "0.00", "0", "0", "0", "0.18", "Amazon Haryana", "Product A"),
		priced(2, "1000.00", "90.00", "90.00", "0", "0.18", "Amazon Haryana", "Product A"),
	}
	out := Aggregate("sales-MTR", input)
	require.Len(t, out, 1)
	require.Equal(t, int64(2), out[0].TotalQuantity)
}

func TestAggregateForcesIGSTOnlyForSettlementSTR(t *testing.T) {
	input := []rows.Priced{
		priced(1, "1000.00", "0", "0", "180.00", "0.18", "Amazon Settlement HR", "Product A"),
	}
	out := Aggregate("settlement-STR", input)
	require.Len(t, out, 1)
	require.True(t, out[0].TotalCGST.IsZero())
	require.True(t, out[0].TotalSGST.IsZero())
	require.True(t, decimal.RequireFromString("180.00").Equal(out[0].TotalIGST))
}

func TestAggregateDeterministicOrder(t *testing.T) {
	input := []rows.Priced{
		priced(1, "100.00", "0", "0", "18.00", "0.18", "Zed Ledger", "Zeta"),
		priced(1, "100.00", "9.00", "9.00", "0", "0.18", "Alpha Ledger", "Alpha"),
		priced(1, "100.00", "0", "0", "0.00", "0.00", "Any Ledger", "Any"),
	}
	out := Aggregate("sales-MTR", input)
	require.Len(t, out, 3)
	require.True(t, out[0].Key.GSTRate.IsZero())
	require.Equal(t, "Alpha Ledger", out[1].Key.LedgerName)
	require.Equal(t, "Zed Ledger", out[2].Key.LedgerName)
}

func TestAggregateRetainsBuyerStateForMarketplaceF(t *testing.T) {
	a := priced(1, "100.00", "9.00", "9.00", "0", "0.18", "Flipkart Haryana", "Product A")
	a.BuyerState = "HARYANA"
	b := priced(1, "100.00", "0", "0", "18.00", "0.18", "Flipkart Delhi", "Product A")
	b.BuyerState = "DELHI"

	out := Aggregate("marketplace-F", []rows.Priced{a, b})
	require.Len(t, out, 2)
	require.NotEqual(t, out[0].Key.BuyerState, out[1].Key.BuyerState)
}

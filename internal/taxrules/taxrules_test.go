package taxrules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var stateTable = map[string]string{
	"06": "HARYANA",
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSalesMTRIntrastate(t *testing.T) {
	gstin := "06ABGCS4796R1ZA"
	intrastate := IsIntrastate(gstin, "HARYANA", stateTable)
	require.True(t, intrastate)

	split := ComputeSplit("sales-MTR", dec("2118.00"), decimal.Zero, dec("0.18"), intrastate)
	require.True(t, dec("190.62").Equal(split.CGST))
	require.True(t, dec("190.62").Equal(split.SGST))
	require.True(t, split.IGST.IsZero())
	require.True(t, dec("381.24").Equal(split.TotalTax))
	require.True(t, dec("2499.24").Equal(split.TotalAmount))
	require.True(t, split.Validate())
}

func TestSalesMTRInterstate(t *testing.T) {
	gstin := "06ABGCS4796R1ZA"
	intrastate := IsIntrastate(gstin, "DELHI", stateTable)
	require.False(t, intrastate)

	split := ComputeSplit("sales-MTR", dec("1059.00"), decimal.Zero, dec("0.18"), intrastate)
	require.True(t, split.CGST.IsZero())
	require.True(t, split.SGST.IsZero())
	require.True(t, dec("190.62").Equal(split.IGST))
	require.True(t, dec("190.62").Equal(split.TotalTax))
	require.True(t, dec("1249.62").Equal(split.TotalAmount))
	require.True(t, split.Validate())
}

func TestZeroGST(t *testing.T) {
	split := ComputeSplit("sales-MTR", dec("4236.00"), decimal.Zero, decimal.Zero, false)
	require.True(t, split.CGST.IsZero())
	require.True(t, split.SGST.IsZero())
	require.True(t, split.IGST.IsZero())
	require.True(t, dec("4236.00").Equal(split.TotalAmount))
	require.True(t, split.Validate())
}

func TestSettlementSTRForcesIGSTEvenSameState(t *testing.T) {
	gstin := "06ABGCS4796R1ZA"
	intrastate := IsIntrastate(gstin, "HARYANA", stateTable)
	require.True(t, intrastate)

	split := ComputeSplit("settlement-STR", dec("1000.00"), decimal.Zero, dec("0.18"), intrastate)
	require.True(t, dec("180.00").Equal(split.IGST))
	require.True(t, split.CGST.IsZero())
	require.True(t, split.SGST.IsZero())
	require.True(t, split.Validate())
}

func TestAdjustForReturnsFullReturn(t *testing.T) {
	adjusted := AdjustForReturns(dec("1000.00"), 10, 10)
	require.True(t, adjusted.IsZero())
}

func TestAdjustForReturnsPartial(t *testing.T) {
	adjusted := AdjustForReturns(dec("1000.00"), 4, 10)
	require.True(t, dec("600.00").Equal(adjusted))
}

func TestAdjustForReturnsNoop(t *testing.T) {
	adjusted := AdjustForReturns(dec("1000.00"), 0, 0)
	require.True(t, dec("1000.00").Equal(adjusted))
}

func TestComputeSplitPurity(t *testing.T) {
	a := ComputeSplit("sales-MTR", dec("2118.00"), decimal.Zero, dec("0.18"), true)
	b := ComputeSplit("sales-MTR", dec("2118.00"), decimal.Zero, dec("0.18"), true)
	require.Equal(t, a, b)
}

package batch

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

func pivotRow(rate string, taxable string, tax string) rows.Pivot {
	return rows.Pivot{
		Key:          rows.PivotKey{GSTRate: decimal.RequireFromString(rate), LedgerName: "L", FG: "F"},
		TotalTaxable: decimal.RequireFromString(taxable),
		TotalIGST:    decimal.RequireFromString(tax),
	}
}

func TestSplitTwoRatesProducesTwoBatches(t *testing.T) {
	input := []rows.Pivot{
		pivotRow("0.00", "500.00", "0.00"),
		pivotRow("0.18", "1000.00", "180.00"),
	}
	parts, err := Split("sales-MTR", "06ABGCS4796R1ZA", "2025-08", input)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	zeroBatch := parts[0]
	require.True(t, zeroBatch.GSTRate.IsZero())
	require.True(t, zeroBatch.Rows[0].TotalTax().IsZero())
	require.True(t, decimal.RequireFromString("500.00").Equal(zeroBatch.Rows[0].TotalTaxable))
}

func TestSplitFileNameIsDeterministic(t *testing.T) {
	input := []rows.Pivot{pivotRow("0.18", "1000.00", "180.00")}
	parts, err := Split("sales-MTR", "06ABGCS4796R1ZA", "2025-08", input)
	require.NoError(t, err)
	require.Equal(t, "sales-MTR_06ABGCS4796R1ZA_2025-08_18pct_batch", parts[0].FileName)
}

func TestSplitPreservesTotals(t *testing.T) {
	input := []rows.Pivot{
		pivotRow("0.05", "200.00", "10.00"),
		pivotRow("0.18", "1000.00", "180.00"),
		pivotRow("0.18", "50.00", "9.00"),
	}
	parts, err := Split("sales-MTR", "g", "2025-08", input)
	require.NoError(t, err)

	var totalTaxable decimal.Decimal
	recordCount := 0
	for _, p := range parts {
		for _, row := range p.Rows {
			totalTaxable = totalTaxable.Add(row.TotalTaxable)
			recordCount++
		}
	}
	require.Equal(t, 3, recordCount)
	require.True(t, decimal.RequireFromString("1250.00").Equal(totalTaxable))
}

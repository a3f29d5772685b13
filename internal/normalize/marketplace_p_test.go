package normalize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

var pepperfryStateTable = map[string]string{"29": "KARNATAKA"}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestMarketplacePNormalizeFoldsReturnsIntoSaleRow(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv",
		"Invoice Date,Order Id,Item SKU,Qty,Net Amount,Tax Rate,State Code\n"+
			"2026-06-01,O1,SKU1,2,1000,18,29\n")
	returns := writeCSV(t, dir, "returns.csv",
		"Order Id,Item SKU,Qty\n"+
			"O1,SKU1,1\n")

	rc := RunContext{Channel: rows.ChannelMarketplaceP, GSTIN: "29AAAAA0000A1Z5", Month: "2026-06", StateCodeTable: pepperfryStateTable}
	result, err := (MarketplacePNormalizer{}).NormalizeWithReturns(context.Background(), rc, sales, returns)
	if err != nil {
		t.Fatalf("NormalizeWithReturns: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected a single folded row, got %d", len(result.Rows))
	}

	row := result.Rows[0]
	if row.TotalQty != 2 {
		t.Fatalf("expected TotalQty 2, got %d", row.TotalQty)
	}
	if row.ReturnedQty != 1 {
		t.Fatalf("expected ReturnedQty 1, got %d", row.ReturnedQty)
	}
}

func TestMarketplacePNormalizeWithoutReturnsLeavesQtyZero(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv",
		"Invoice Date,Order Id,Item SKU,Qty,Net Amount,Tax Rate,State Code\n"+
			"2026-06-01,O2,SKU2,3,1500,18,29\n")

	rc := RunContext{Channel: rows.ChannelMarketplaceP, GSTIN: "29AAAAA0000A1Z5", Month: "2026-06", StateCodeTable: pepperfryStateTable}
	result, err := (MarketplacePNormalizer{}).Normalize(context.Background(), rc, sales)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected a single row, got %d", len(result.Rows))
	}
	if result.Rows[0].ReturnedQty != 0 {
		t.Fatalf("expected ReturnedQty 0 with no returns file, got %d", result.Rows[0].ReturnedQty)
	}
	if result.Rows[0].TotalQty != 3 {
		t.Fatalf("expected TotalQty 3, got %d", result.Rows[0].TotalQty)
	}
}

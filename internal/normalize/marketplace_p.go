package normalize

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// MarketplacePNormalizer reads a Pepperfry sales report and, when
// given one, a sibling returns file: a returns row carries the
// original order_id/SKU and the quantity returned against that sale,
// which is folded into the matching sale row's ReturnedQty rather than
// emitted as a row of its own, so AdjustForReturns sees the real
// (returned_qty, total_qty) pair for that line.
type MarketplacePNormalizer struct{}

func (MarketplacePNormalizer) ReportType() rows.Channel { return rows.ChannelMarketplaceP }

const stageMarketplaceP = "normalize.marketplace-P"

// Normalize satisfies the Normalizer interface using only the sales
// file; use NormalizeWithReturns to also ingest the returns sibling.
func (n MarketplacePNormalizer) Normalize(ctx context.Context, rc RunContext, path string) (NormalizeResult, error) {
	return n.NormalizeWithReturns(ctx, rc, path, "")
}

// pepperfryOrderLine identifies one sale line a returns row can match
// against, by order and SKU.
type pepperfryOrderLine struct {
	orderID string
	sku     string
}

// NormalizeWithReturns ingests the sales file and, if returnsPath is
// non-empty, the sibling returns file, folding each returns line's
// quantity into the matching sale row's ReturnedQty/TotalQty instead
// of emitting a separate row.
func (MarketplacePNormalizer) NormalizeWithReturns(ctx context.Context, rc RunContext, path, returnsPath string) (NormalizeResult, error) {
	header, data, err := readTable(path)
	if err != nil {
		return NormalizeResult{}, pipeerrors.Wrap(stageMarketplaceP, pipeerrors.SchemaMismatch, "read report", err)
	}
	if err := requireColumns(header, stageMarketplaceP,
		"Invoice Date", "Order Id", "Item SKU", "Qty", "Net Amount", "Tax Rate", "State Code"); err != nil {
		return NormalizeResult{}, err
	}
	if len(data) == 0 {
		return NormalizeResult{}, pipeerrors.New(stageMarketplaceP, pipeerrors.EmptyInput, "no data rows after header")
	}

	returnedQty := map[pepperfryOrderLine]int64{}
	if returnsPath != "" {
		rHeader, rData, err := readTable(returnsPath)
		if err != nil {
			return NormalizeResult{}, pipeerrors.Wrap(stageMarketplaceP, pipeerrors.SchemaMismatch, "read returns report", err)
		}
		if err := requireColumns(rHeader, stageMarketplaceP, "Order Id", "Item SKU", "Qty"); err != nil {
			return NormalizeResult{}, err
		}
		returnedQty = parsePepperfryReturns(rHeader, rData)
	}

	out, exceptions := parsePepperfryRows(header, data, rc, returnedQty)
	if len(out) == 0 {
		return NormalizeResult{Exceptions: exceptions}, pipeerrors.New(stageMarketplaceP, pipeerrors.EmptyInput, "all rows failed to parse")
	}
	return NormalizeResult{Rows: out, Exceptions: exceptions}, nil
}

// parsePepperfryReturns sums each (order, SKU) pair's returned
// quantity, since a single sale can carry more than one returns line.
func parsePepperfryReturns(header []string, data [][]string) map[pepperfryOrderLine]int64 {
	idxOrder := colIndex(header, "Order Id")
	idxSKU := colIndex(header, "Item SKU")
	idxQty := colIndex(header, "Qty")

	out := map[pepperfryOrderLine]int64{}
	for _, row := range data {
		qty, err := strconv.ParseInt(cell(row, idxQty), 10, 64)
		if err != nil {
			continue
		}
		key := pepperfryOrderLine{orderID: cell(row, idxOrder), sku: cell(row, idxSKU)}
		out[key] += qty
	}
	return out
}

func parsePepperfryRows(header []string, data [][]string, rc RunContext, returnedQty map[pepperfryOrderLine]int64) ([]rows.Canonical, []pipeerrors.RowException) {
	idxDate := colIndex(header, "Invoice Date")
	idxOrder := colIndex(header, "Order Id")
	idxSKU := colIndex(header, "Item SKU")
	idxQty := colIndex(header, "Qty")
	idxAmount := colIndex(header, "Net Amount")
	idxRate := colIndex(header, "Tax Rate")
	idxState := colIndex(header, "State Code")

	var out []rows.Canonical
	var exceptions []pipeerrors.RowException

	for i, row := range data {
		date, err := parseDate(cell(row, idxDate))
		if err != nil {
			exceptions = append(exceptions, badRow(i, err))
			continue
		}
		qty, err := strconv.ParseInt(cell(row, idxQty), 10, 64)
		if err != nil {
			exceptions = append(exceptions, badRow(i, err))
			continue
		}
		amount, err := decimal.NewFromString(cell(row, idxAmount))
		if err != nil {
			exceptions = append(exceptions, badRow(i, err))
			continue
		}
		rate, err := parseRate(cell(row, idxRate))
		if err != nil {
			exceptions = append(exceptions, badRow(i, err))
			continue
		}

		orderID := cell(row, idxOrder)
		sku := cell(row, idxSKU)
		returned := returnedQty[pepperfryOrderLine{orderID: orderID, sku: sku}]
		if returned > qty {
			returned = qty
		}

		out = append(out, rows.Canonical{
			InvoiceDate:  date,
			OrderID:      orderID,
			SKU:          sku,
			Quantity:     qty,
			TaxableValue: amount.Round(2),
			GSTRate:      rate,
			BuyerState:   stateFromCode(cell(row, idxState), rc.StateCodeTable),
			Channel:      rows.ChannelMarketplaceP,
			GSTIN:        rc.GSTIN,
			Month:        rc.Month,
			ReturnedQty:  returned,
			TotalQty:     qty,
		})
	}
	return out, exceptions
}

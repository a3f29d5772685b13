package normalize

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// MarketplaceFNormalizer reads a Flipkart invoice-date based report.
// It retains buyer_state as an additional pivot dimension downstream.
type MarketplaceFNormalizer struct{}

func (MarketplaceFNormalizer) ReportType() rows.Channel { return rows.ChannelMarketplaceF }

const stageMarketplaceF = "normalize.marketplace-F"

func (MarketplaceFNormalizer) Normalize(ctx context.Context, rc RunContext, path string) (NormalizeResult, error) {
	header, data, err := readTable(path)
	if err != nil {
		return NormalizeResult{}, pipeerrors.Wrap(stageMarketplaceF, pipeerrors.SchemaMismatch, "read report", err)
	}
	if err := requireColumns(header, stageMarketplaceF,
		"Invoice Date", "Order Id", "SKU", "Qty", "Net Amount", "Tax Rate", "Ship To State Code"); err != nil {
		return NormalizeResult{}, err
	}
	if len(data) == 0 {
		return NormalizeResult{}, pipeerrors.New(stageMarketplaceF, pipeerrors.EmptyInput, "no data rows after header")
	}

	idxDate := colIndex(header, "Invoice Date")
	idxOrder := colIndex(header, "Order Id")
	idxSKU := colIndex(header, "SKU")
	idxQty := colIndex(header, "Qty")
	idxAmount := colIndex(header, "Net Amount")
	idxRate := colIndex(header, "Tax Rate")
	idxState := colIndex(header, "Ship To State Code")

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

		out = append(out, rows.Canonical{
			InvoiceDate:  date,
			OrderID:      cell(row, idxOrder),
			SKU:          cell(row, idxSKU),
			Quantity:     qty,
			TaxableValue: amount.Round(2),
			GSTRate:      rate,
			BuyerState:   stateFromCode(cell(row, idxState), rc.StateCodeTable),
			Channel:      rows.ChannelMarketplaceF,
			GSTIN:        rc.GSTIN,
			Month:        rc.Month,
		})
	}

	if len(out) == 0 {
		return NormalizeResult{Exceptions: exceptions}, pipeerrors.New(stageMarketplaceF, pipeerrors.EmptyInput, "all rows failed to parse")
	}
	return NormalizeResult{Rows: out, Exceptions: exceptions}, nil
}

package normalize

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// SettlementSTRNormalizer reads an Amazon settlement report. Both
// buyer_state and seller_state are captured because the pivot engine
// forces IGST-only for this channel even when the states coincide.
type SettlementSTRNormalizer struct{}

func (SettlementSTRNormalizer) ReportType() rows.Channel { return rows.ChannelSettlementSTR }

const stageSettlementSTR = "normalize.settlement-STR"

func (SettlementSTRNormalizer) Normalize(ctx context.Context, rc RunContext, path string) (NormalizeResult, error) {
	header, data, err := readTable(path)
	if err != nil {
		return NormalizeResult{}, pipeerrors.Wrap(stageSettlementSTR, pipeerrors.SchemaMismatch, "read report", err)
	}
	if err := requireColumns(header, stageSettlementSTR,
		"Posting Date", "Amazon Order Id", "ASIN", "Qty", "Net Amount", "Tax Rate", "Ship To State Code", "Seller State Code"); err != nil {
		return NormalizeResult{}, err
	}
	if len(data) == 0 {
		return NormalizeResult{}, pipeerrors.New(stageSettlementSTR, pipeerrors.EmptyInput, "no data rows after header")
	}

	idxDate := colIndex(header, "Posting Date")
	idxOrder := colIndex(header, "Amazon Order Id")
	idxASIN := colIndex(header, "ASIN")
	idxQty := colIndex(header, "Qty")
	idxAmount := colIndex(header, "Net Amount")
	idxRate := colIndex(header, "Tax Rate")
	idxBuyerState := colIndex(header, "Ship To State Code")
	idxSellerState := colIndex(header, "Seller State Code")

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
			ASIN:         cell(row, idxASIN),
			Quantity:     qty,
			TaxableValue: amount.Round(2),
			GSTRate:      rate,
			BuyerState:   stateFromCode(cell(row, idxBuyerState), rc.StateCodeTable),
			SellerState:  stateFromCode(cell(row, idxSellerState), rc.StateCodeTable),
			Channel:      rows.ChannelSettlementSTR,
			GSTIN:        rc.GSTIN,
			Month:        rc.Month,
		})
	}

	if len(out) == 0 {
		return NormalizeResult{Exceptions: exceptions}, pipeerrors.New(stageSettlementSTR, pipeerrors.EmptyInput, "all rows failed to parse")
	}
	return NormalizeResult{Rows: out, Exceptions: exceptions}, nil
}

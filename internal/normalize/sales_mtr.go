package normalize

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// SalesMTRNormalizer reads an Amazon monthly transaction report.
// Shipment and Refund rows are both treated as taxable events; Refund
// rows carry negative quantity and taxable_value in the canonical form.
type SalesMTRNormalizer struct{}

func (SalesMTRNormalizer) ReportType() rows.Channel { return rows.ChannelSalesMTR }

const stageSalesMTR = "normalize.sales-MTR"

func (SalesMTRNormalizer) Normalize(ctx context.Context, rc RunContext, path string) (NormalizeResult, error) {
	header, data, err := readTable(path)
	if err != nil {
		return NormalizeResult{}, pipeerrors.Wrap(stageSalesMTR, pipeerrors.SchemaMismatch, "read report", err)
	}
	if err := requireColumns(header, stageSalesMTR,
		"Date", "Transaction Type", "Amazon Order Id", "SKU", "ASIN", "Qty", "Item Price", "Tax Rate", "Ship To State Code"); err != nil {
		return NormalizeResult{}, err
	}
	if len(data) == 0 {
		return NormalizeResult{}, pipeerrors.New(stageSalesMTR, pipeerrors.EmptyInput, "no data rows after header")
	}

	idxDate := colIndex(header, "Date")
	idxType := colIndex(header, "Transaction Type")
	idxOrder := colIndex(header, "Amazon Order Id")
	idxSKU := colIndex(header, "SKU")
	idxASIN := colIndex(header, "ASIN")
	idxQty := colIndex(header, "Qty")
	idxPrice := colIndex(header, "Item Price")
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
		price, err := decimal.NewFromString(cell(row, idxPrice))
		if err != nil {
			exceptions = append(exceptions, badRow(i, err))
			continue
		}
		rate, err := parseRate(cell(row, idxRate))
		if err != nil {
			exceptions = append(exceptions, badRow(i, err))
			continue
		}

		txnType := cell(row, idxType)
		taxable := price.Mul(decimal.NewFromInt(qty))
		if txnType == "Refund" {
			qty = -qty
			taxable = taxable.Neg()
		}

		out = append(out, rows.Canonical{
			InvoiceDate:  date,
			OrderID:      cell(row, idxOrder),
			SKU:          cell(row, idxSKU),
			ASIN:         cell(row, idxASIN),
			Quantity:     qty,
			TaxableValue: taxable.Round(2),
			GSTRate:      rate,
			BuyerState:   stateFromCode(cell(row, idxState), rc.StateCodeTable),
			Channel:      rows.ChannelSalesMTR,
			GSTIN:        rc.GSTIN,
			Month:        rc.Month,
		})
	}

	if len(out) == 0 {
		return NormalizeResult{Exceptions: exceptions}, pipeerrors.New(stageSalesMTR, pipeerrors.EmptyInput, "all rows failed to parse")
	}
	return NormalizeResult{Rows: out, Exceptions: exceptions}, nil
}

func badRow(i int, err error) pipeerrors.RowException {
	return pipeerrors.RowException{RowIndex: i, Kind: pipeerrors.UnparseableRow, Message: err.Error()}
}

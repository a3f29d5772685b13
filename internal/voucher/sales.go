// Package voucher assembles voucher workbooks from batch partitions
// (sales) and priced seller-invoice lines (expense), writing X2Beta
// rows into the per-GSTIN template with excelize cell formatting.
package voucher

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerpipe/ledgerpipe/internal/batch"
	"github.com/ledgerpipe/ledgerpipe/internal/numbering"
	"github.com/ledgerpipe/ledgerpipe/internal/template"
)

const (
	amountFormat   = `#,##0.00`
	integerFormat  = `0`
	dateFormat     = `dd-mm-yyyy`
	voucherTypeSales = "Sales"
)

// SalesVoucherNo renders a voucher-level identifier distinct from the
// per-row invoice number: {prefix}V-{ST}-{MM}-{NNNN}, a running
// counter within the batch file starting at 1.
func SalesVoucherNo(channel, buyerState, month string, counter int) string {
	return fmt.Sprintf("%sV-%s-%s-%04d", numbering.Prefix(channel), numbering.StateAbbr(buyerState), monthPart(month), counter)
}

func monthPart(month string) string {
	for i := 0; i < len(month); i++ {
		if month[i] == '-' {
			return month[i+1:]
		}
	}
	return "00"
}

func rateHalfPct(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(2)).StringFixed(2)
}

func ratePct(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

// AssembleSales writes one voucher row per pivot row in partition into
// the gstin's sales template, returning the populated workbook ready
// to be saved by the caller (so the caller controls the output path).
func AssembleSales(registry *template.Registry, gstin, channel string, runMonth time.Time, part batch.Partition) (*excelize.File, error) {
	f, layout, err := registry.Load(gstin, template.RequiredSalesColumns)
	if err != nil {
		return nil, err
	}

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(dateFormat)})
	if err != nil {
		return nil, err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(amountFormat)})
	if err != nil {
		return nil, err
	}
	intStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(integerFormat)})
	if err != nil {
		return nil, err
	}

	dateStr := runMonth.Format("02-01-2006")
	row := layout.HeaderRow + 1

	for i, p := range part.Rows {
		voucherNo := SalesVoucherNo(channel, p.Key.BuyerState, fmt.Sprintf("%04d-%02d", runMonth.Year(), int(runMonth.Month())), i+1)

		rate := decimal.Zero
		if p.TotalQuantity > 0 {
			rate = p.TotalTaxable.Div(decimal.NewFromInt(p.TotalQuantity))
		}
		total := p.TotalTaxable.Add(p.TotalCGST).Add(p.TotalSGST).Add(p.TotalIGST)

		cgstLedger, sgstLedger, igstLedger := "", "", ""
		if p.TotalCGST.IsPositive() {
			cgstLedger = fmt.Sprintf("Output CGST @ %s%%", rateHalfPct(p.Key.GSTRate))
		}
		if p.TotalSGST.IsPositive() {
			sgstLedger = fmt.Sprintf("Output SGST @ %s%%", rateHalfPct(p.Key.GSTRate))
		}
		if p.TotalIGST.IsPositive() {
			igstLedger = fmt.Sprintf("Output IGST @ %s%%", ratePct(p.Key.GSTRate))
		}

		values := map[string]cellValue{
			"Date":               {dateStr, dateStyle},
			"Voucher No.":        {voucherNo, 0},
			"Voucher Type":       {voucherTypeSales, 0},
			"Party Ledger":       {p.Key.LedgerName, 0},
			"Party Name":         {p.Key.LedgerName, 0},
			"Item Name":          {p.Key.FG, 0},
			"Quantity":           {p.TotalQuantity, intStyle},
			"Rate":               {rate.Round(2).InexactFloat64(), amountStyle},
			"Taxable Amount":     {p.TotalTaxable.Round(2).InexactFloat64(), amountStyle},
			"Output CGST Ledger": {cgstLedger, 0},
			"CGST Amount":        {p.TotalCGST.Round(2).InexactFloat64(), amountStyle},
			"Output SGST Ledger": {sgstLedger, 0},
			"SGST Amount":        {p.TotalSGST.Round(2).InexactFloat64(), amountStyle},
			"Output IGST Ledger": {igstLedger, 0},
			"IGST Amount":        {p.TotalIGST.Round(2).InexactFloat64(), amountStyle},
			"Total Amount":       {total.Round(2).InexactFloat64(), amountStyle},
			"Narration":          {fmt.Sprintf("Sales - %s - %s", p.Key.FG, p.Key.Month), 0},
		}

		if err := writeRow(f, layout, row, values); err != nil {
			return nil, err
		}
		row++
	}

	return f, nil
}

type cellValue struct {
	val   interface{}
	style int
}

func writeRow(f *excelize.File, layout template.Layout, row int, values map[string]cellValue) error {
	for name, cv := range values {
		idx, ok := layout.Columns[name]
		if !ok {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(idx, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(layout.SheetName, cell, cv.val); err != nil {
			return err
		}
		if cv.style != 0 {
			if err := f.SetCellStyle(layout.SheetName, cell, cell, cv.style); err != nil {
				return err
			}
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

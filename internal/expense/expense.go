// Package expense implements the Seller-Invoice Expense Pipeline: it
// parses a seller fee statement (spreadsheet or text-extractable PDF)
// into line items, classifies each by the Expense Rule Engine, and
// computes its GST split, grounded on the original
// SellerInvoiceParserAgent/PDFParser/ExcelInvoiceParser
// (test_seller_invoice_parser.py) and generalized to
// decimal.Decimal/excelize/pdfcpu.
package expense

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerpipe/ledgerpipe/internal/expenserules"
	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
	"github.com/ledgerpipe/ledgerpipe/internal/taxrules"
)

const stageExpense = "expense"

// ParsedInvoice is the header + line items recovered from one fee
// statement, prior to classification and tax computation.
type ParsedInvoice struct {
	VendorInvoiceNo string
	InvoiceDate     time.Time
	VendorGSTIN     string
	LineItems       []ParsedLineItem
}

// ParsedLineItem is one raw fee line before classification.
type ParsedLineItem struct {
	Description  string
	TaxableValue decimal.Decimal
}

// Parse dispatches to the spreadsheet or PDF parser by file extension.
func Parse(ctx context.Context, path string) (ParsedInvoice, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return parseExcelInvoice(path)
	case ".pdf":
		return parsePDFInvoice(path)
	default:
		return ParsedInvoice{}, pipeerrors.New(stageExpense, pipeerrors.SchemaMismatch,
			fmt.Sprintf("unsupported seller invoice format %s", path))
	}
}

// parseExcelInvoice reads a fee statement laid out with Invoice, Date,
// GSTIN, Description, Taxable Amount, Total Amount columns.
func parseExcelInvoice(path string) (ParsedInvoice, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ParsedInvoice{}, pipeerrors.Wrap(stageExpense, pipeerrors.SchemaMismatch, "open seller invoice workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParsedInvoice{}, pipeerrors.New(stageExpense, pipeerrors.EmptyInput, "seller invoice workbook has no sheets")
	}
	allRows, err := f.GetRows(sheets[0])
	if err != nil || len(allRows) < 2 {
		return ParsedInvoice{}, pipeerrors.New(stageExpense, pipeerrors.EmptyInput, "seller invoice workbook has no data rows")
	}

	header := allRows[0]
	idxInvoice := indexOf(header, "Invoice")
	idxDate := indexOf(header, "Date")
	idxGSTIN := indexOf(header, "GSTIN")
	idxDescription := indexOf(header, "Description")
	idxTaxable := indexOf(header, "Taxable Amount")

	if idxInvoice < 0 || idxDate < 0 || idxDescription < 0 || idxTaxable < 0 {
		return ParsedInvoice{}, pipeerrors.New(stageExpense, pipeerrors.SchemaMismatch,
			"seller invoice workbook missing Invoice/Date/Description/Taxable Amount columns")
	}

	inv := ParsedInvoice{}
	for i, row := range allRows[1:] {
		if i == 0 {
			inv.VendorInvoiceNo = at(row, idxInvoice)
			inv.VendorGSTIN = at(row, idxGSTIN)
			if d, err := parseInvoiceDate(at(row, idxDate)); err == nil {
				inv.InvoiceDate = d
			}
		}
		taxable, err := decimal.NewFromString(strings.ReplaceAll(at(row, idxTaxable), ",", ""))
		if err != nil {
			continue
		}
		inv.LineItems = append(inv.LineItems, ParsedLineItem{
			Description:  at(row, idxDescription),
			TaxableValue: taxable,
		})
	}
	if len(inv.LineItems) == 0 {
		return ParsedInvoice{}, pipeerrors.New(stageExpense, pipeerrors.EmptyInput, "seller invoice workbook produced no line items")
	}
	return inv, nil
}

var (
	invoiceNoLine = regexp.MustCompile(`(?i)Invoice\s*Number\s*:\s*(\S+)`)
	invoiceDateLine = regexp.MustCompile(`(?i)Invoice\s*Date\s*:\s*([\d/-]+)`)
	gstinLine     = regexp.MustCompile(`(?i)GSTIN\s*:\s*([A-Z0-9]{15})`)
	feeLine       = regexp.MustCompile(`^(.+?)\s+([\d,]+\.\d{2})\s+[\d,]+\.\d{2}$`)
)

// parsePDFInvoice extracts a fee statement from a text-extractable
// PDF: a header block (Invoice Number/Date/GSTIN) followed by a
// "Description  Amount  Total" line table.
func parsePDFInvoice(path string) (ParsedInvoice, error) {
	lines, err := extractPDFLines(path)
	if err != nil {
		return ParsedInvoice{}, pipeerrors.Wrap(stageExpense, pipeerrors.SchemaMismatch, "extract pdf text", err)
	}
	return parseAmazonFeeInvoiceText(lines)
}

func parseAmazonFeeInvoiceText(lines []string) (ParsedInvoice, error) {
	inv := ParsedInvoice{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if m := invoiceNoLine.FindStringSubmatch(line); m != nil {
			inv.VendorInvoiceNo = m[1]
			continue
		}
		if m := invoiceDateLine.FindStringSubmatch(line); m != nil {
			if d, err := parseInvoiceDate(m[1]); err == nil {
				inv.InvoiceDate = d
			}
			continue
		}
		if m := gstinLine.FindStringSubmatch(line); m != nil {
			inv.VendorGSTIN = m[1]
			continue
		}
		if m := feeLine.FindStringSubmatch(line); m != nil {
			taxable, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
			if err != nil {
				continue
			}
			inv.LineItems = append(inv.LineItems, ParsedLineItem{
				Description:  strings.TrimSpace(m[1]),
				TaxableValue: taxable,
			})
		}
	}
	if len(inv.LineItems) == 0 {
		return ParsedInvoice{}, pipeerrors.New(stageExpense, pipeerrors.EmptyInput, "no fee line items recognized in pdf text")
	}
	return inv, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func at(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseInvoiceDate(raw string) (time.Time, error) {
	for _, f := range []string{"02-01-2006", "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(f, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable invoice date %q", raw)
}

// Classify converts a ParsedInvoice into SellerInvoiceLine rows tagged
// with their expense type and ledger policy. The vendor's canonical
// state name is resolved from their GSTIN via stateTable here, the
// same two-digit-prefix lookup used to resolve the company's own
// state, so PriceLines never has to compare a raw GSTIN against a
// state name.
func Classify(channel rows.Channel, gstin, sourceFile string, stateTable map[string]string, inv ParsedInvoice) []rows.SellerInvoiceLine {
	out := make([]rows.SellerInvoiceLine, 0, len(inv.LineItems))
	vendorState := stateTable[taxrules.CompanyStateCode(inv.VendorGSTIN)]
	for _, item := range inv.LineItems {
		expenseType := expenserules.ClassifyExpenseType(item.Description)
		policy := expenserules.For(expenseType)
		out = append(out, rows.SellerInvoiceLine{
			Channel:         channel,
			GSTIN:           gstin,
			VendorInvoiceNo: inv.VendorInvoiceNo,
			InvoiceDate:     inv.InvoiceDate,
			ExpenseType:     expenseType,
			TaxableValue:    item.TaxableValue.Round(2),
			GSTRate:         policy.DefaultRate,
			VendorGSTIN:     inv.VendorGSTIN,
			VendorState:     vendorState,
			SourceFile:      sourceFile,
		})
	}
	return out
}

// PricedLine is a SellerInvoiceLine with its GST split applied.
type PricedLine struct {
	rows.SellerInvoiceLine
	Split      taxrules.Split
	LedgerName string
}

// PriceLines applies the tax split rule to each classified line, using
// the canonical vendor state Classify already resolved. If the
// vendor's state is unknown (blank, e.g. an unrecognized GSTIN
// prefix), the split defaults to interstate (IGST), per the
// expense-pipeline GST-split rule.
func PriceLines(companyGSTIN string, stateTable map[string]string, lines []rows.SellerInvoiceLine) ([]PricedLine, error) {
	priced := make([]PricedLine, 0, len(lines))
	for _, line := range lines {
		policy := expenserules.For(line.ExpenseType)

		isIntrastate := false
		if line.VendorState != "" {
			isIntrastate = taxrules.IsIntrastate(companyGSTIN, line.VendorState, stateTable)
		}

		split := taxrules.ComputeSplit(expenseChannelKey(isIntrastate), line.TaxableValue, decimal.Zero, line.GSTRate, isIntrastate)
		if !split.Validate() {
			return nil, pipeerrors.New(stageExpense, pipeerrors.TaxSplitInvariant,
				fmt.Sprintf("seller invoice line %s failed the tax split invariant", line.VendorInvoiceNo))
		}

		priced = append(priced, PricedLine{
			SellerInvoiceLine: line,
			Split:             split,
			LedgerName:        policy.LedgerName,
		})
	}
	return priced, nil
}

// expenseChannelKey never forces IGST via a channel policy; interstate
// defaulting for an unknown vendor state is handled by the
// isIntrastate flag passed to ComputeSplit instead.
func expenseChannelKey(isIntrastate bool) string {
	return "expense-invoice"
}

package voucher

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerpipe/ledgerpipe/internal/expense"
	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/taxrules"
)

const (
	stageVoucherExpense  = "voucher-expense"
	vendorPayableLedger  = "Vendor Payable"
	ledgerInputCGST      = "Input CGST"
	ledgerInputSGST      = "Input SGST"
	ledgerInputIGST      = "Input IGST"
)

// ExpenseVoucherLine is one double-entry row of an expense voucher.
type ExpenseVoucherLine struct {
	Ledger string
	Amount decimal.Decimal // positive = debit, negative = credit
}

// ExpenseVoucher is the full multi-row double-entry voucher for one
// seller fee statement.
type ExpenseVoucher struct {
	VoucherNo       string
	VendorInvoiceNo string
	Lines           []ExpenseVoucherLine
}

// Total returns the sum of every line's amount, which must be zero
// within tolerance for a balanced double-entry voucher.
func (v ExpenseVoucher) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range v.Lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

var doubleEntryTolerance = decimal.NewFromFloat(0.01)

// ExpenseVoucherNo renders EXP{state_code}{YY}{MM}{NNNN}.
func ExpenseVoucherNo(companyGSTIN, month string, counter int) string {
	stateCode := taxrules.CompanyStateCode(companyGSTIN)
	yy, mm := "00", "00"
	if len(month) == 7 {
		yy = month[2:4]
		mm = month[5:7]
	}
	return fmt.Sprintf("EXP%s%s%s%04d", stateCode, yy, mm, counter)
}

// AssembleExpense groups priced seller-invoice lines by vendor invoice
// number and builds one double-entry voucher per invoice: one debit
// row per expense ledger, one debit row per input-GST ledger, and one
// credit row to the vendor-payable ledger equal to the negative total.
func AssembleExpense(companyGSTIN, month string, lines []expense.PricedLine) ([]ExpenseVoucher, error) {
	type invoiceGroup struct {
		lines []expense.PricedLine
	}
	groups := map[string]*invoiceGroup{}
	var order []string
	for _, l := range lines {
		g, ok := groups[l.VendorInvoiceNo]
		if !ok {
			g = &invoiceGroup{}
			groups[l.VendorInvoiceNo] = g
			order = append(order, l.VendorInvoiceNo)
		}
		g.lines = append(g.lines, l)
	}
	sort.Strings(order)

	vouchers := make([]ExpenseVoucher, 0, len(order))
	for i, invoiceNo := range order {
		g := groups[invoiceNo]

		expenseTotals := map[string]decimal.Decimal{}
		cgst, sgst, igst := decimal.Zero, decimal.Zero, decimal.Zero
		for _, l := range g.lines {
			expenseTotals[l.LedgerName] = expenseTotals[l.LedgerName].Add(l.TaxableValue)
			cgst = cgst.Add(l.Split.CGST)
			sgst = sgst.Add(l.Split.SGST)
			igst = igst.Add(l.Split.IGST)
		}

		var ledgerNames []string
		for name := range expenseTotals {
			ledgerNames = append(ledgerNames, name)
		}
		sort.Strings(ledgerNames)

		var voucherLines []ExpenseVoucherLine
		totalDebit := decimal.Zero
		for _, name := range ledgerNames {
			amt := expenseTotals[name].Round(2)
			voucherLines = append(voucherLines, ExpenseVoucherLine{Ledger: name, Amount: amt})
			totalDebit = totalDebit.Add(amt)
		}
		if cgst.IsPositive() {
			voucherLines = append(voucherLines, ExpenseVoucherLine{Ledger: ledgerInputCGST, Amount: cgst.Round(2)})
			totalDebit = totalDebit.Add(cgst.Round(2))
		}
		if sgst.IsPositive() {
			voucherLines = append(voucherLines, ExpenseVoucherLine{Ledger: ledgerInputSGST, Amount: sgst.Round(2)})
			totalDebit = totalDebit.Add(sgst.Round(2))
		}
		if igst.IsPositive() {
			voucherLines = append(voucherLines, ExpenseVoucherLine{Ledger: ledgerInputIGST, Amount: igst.Round(2)})
			totalDebit = totalDebit.Add(igst.Round(2))
		}

		voucherLines = append(voucherLines, ExpenseVoucherLine{Ledger: vendorPayableLedger, Amount: totalDebit.Neg()})

		v := ExpenseVoucher{
			VoucherNo:       ExpenseVoucherNo(companyGSTIN, month, i+1),
			VendorInvoiceNo: invoiceNo,
			Lines:           voucherLines,
		}
		if v.Total().Abs().GreaterThan(doubleEntryTolerance) {
			return nil, pipeerrors.New(stageVoucherExpense, pipeerrors.IntegrityCheckFailed,
				fmt.Sprintf("expense voucher %s does not sum to zero: %s", v.VoucherNo, v.Total()))
		}
		vouchers = append(vouchers, v)
	}

	return vouchers, nil
}

// WriteExpenseWorkbook renders vouchers into a simple ledger/debit/
// credit sheet: one row per voucher line, grouped by voucher.
func WriteExpenseWorkbook(vouchers []ExpenseVoucher) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Expense Vouchers"
	f.SetSheetName(f.GetSheetName(0), sheet)

	header := []string{"Voucher No.", "Vendor Invoice No.", "Ledger", "Debit", "Credit"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, v := range vouchers {
		for _, l := range v.Lines {
			debit, credit := "", ""
			if l.Amount.IsPositive() {
				debit = l.Amount.StringFixed(2)
			} else if l.Amount.IsNegative() {
				credit = l.Amount.Neg().StringFixed(2)
			}
			values := []interface{}{v.VoucherNo, v.VendorInvoiceNo, l.Ledger, debit, credit}
			for col, val := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, val)
			}
			row++
		}
	}

	return f, nil
}

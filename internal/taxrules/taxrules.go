// Package taxrules is the pure GST split function library, built on
// decimal.Decimal throughout so the half-up rounding rule is exact.
package taxrules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/money"
)

// Split is the result of a single row's GST computation.
type Split struct {
	CGST        decimal.Decimal
	SGST        decimal.Decimal
	IGST        decimal.Decimal
	TotalTax    decimal.Decimal
	TotalAmount decimal.Decimal
}

// ChannelPolicy captures whether a channel forces an IGST-only split
// regardless of buyer/seller state.
type ChannelPolicy struct {
	ForceIGST bool
}

// Policies is the fixed per-channel tax policy table. Settlement-STR
// is always IGST regardless of state match.
var Policies = map[string]ChannelPolicy{
	"sales-MTR":      {ForceIGST: false},
	"settlement-STR": {ForceIGST: true},
	"marketplace-F":  {ForceIGST: false},
	"marketplace-P":  {ForceIGST: false},
}

// CompanyStateCode extracts the two-digit GSTIN state prefix.
func CompanyStateCode(gstin string) string {
	if len(gstin) < 2 {
		return ""
	}
	return gstin[:2]
}

// IsIntrastate reports whether the buyer state matches the company's
// GSTIN state, using the configured two-digit-prefix -> state table.
func IsIntrastate(gstin, buyerState string, stateTable map[string]string) bool {
	companyState, ok := stateTable[CompanyStateCode(gstin)]
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(companyState), strings.TrimSpace(buyerState))
}

// ComputeSplit applies the GST tax split rule to a single row.
// taxableValue and shippingValue must already reflect the returns
// adjustment (see AdjustForReturns). gstRate is a decimal fraction,
// e.g. 0.18 for 18%.
func ComputeSplit(channel string, taxableValue, shippingValue, gstRate decimal.Decimal, isIntrastate bool) Split {
	base := taxableValue.Add(shippingValue)

	if gstRate.IsZero() {
		return Split{
			CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero,
			TotalTax: decimal.Zero, TotalAmount: money.Round2(base),
		}
	}

	policy := Policies[channel]

	var cgst, sgst, igst decimal.Decimal
	switch {
	case policy.ForceIGST:
		igst = money.Round2(base.Mul(gstRate))
	case isIntrastate:
		half := money.Round2(base.Mul(gstRate).Div(decimal.NewFromInt(2)))
		cgst, sgst = half, half
	default:
		igst = money.Round2(base.Mul(gstRate))
	}

	totalTax := cgst.Add(sgst).Add(igst)
	return Split{
		CGST: cgst, SGST: sgst, IGST: igst,
		TotalTax:    totalTax,
		TotalAmount: money.Round2(base).Add(totalTax),
	}
}

// AdjustForReturns applies the settlement/marketplace-P returns
// adjustment: taxable_value * (total_qty - returned_qty) / total_qty.
func AdjustForReturns(taxableValue decimal.Decimal, returnedQty, totalQty int64) decimal.Decimal {
	if totalQty <= 0 || returnedQty <= 0 {
		return taxableValue
	}
	remaining := decimal.NewFromInt(totalQty - returnedQty)
	return money.Round2(taxableValue.Mul(remaining).Div(decimal.NewFromInt(totalQty)))
}

// Validate checks the priced-row invariant: exactly one of
// (cgst>0 && sgst>0 && igst=0), (igst>0 && cgst=sgst=0), (all zero).
func (s Split) Validate() bool {
	cgstPos := s.CGST.IsPositive()
	sgstPos := s.SGST.IsPositive()
	igstPos := s.IGST.IsPositive()

	allZero := s.CGST.IsZero() && s.SGST.IsZero() && s.IGST.IsZero()
	cgstSgstPath := cgstPos && sgstPos && s.IGST.IsZero()
	igstPath := igstPos && s.CGST.IsZero() && s.SGST.IsZero()

	return allZero || cgstSgstPath || igstPath
}

// Package money provides the fixed-point rounding rule shared by every
// stage that touches a rupee amount.
package money

import "github.com/shopspring/decimal"

// TwoPlaces is the scale every monetary field in the pipeline is rounded to.
const TwoPlaces = 2

// HalfUp rounds d to places decimal places using half-away-from-zero,
// the rule the tax and numbering engines require (shopspring/decimal's
// own Round method is half-even, which golden fixtures are crafted to
// disagree with).
func HalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}

	shift := decimal.New(1, places)
	shifted := d.Mul(shift)

	half := decimal.NewFromFloat(0.5)
	if shifted.IsNegative() {
		shifted = shifted.Sub(half)
	} else {
		shifted = shifted.Add(half)
	}

	return shifted.Truncate(0).Div(shift).Truncate(places)
}

// Round2 rounds to two decimal places, half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return HalfUp(d, TwoPlaces)
}

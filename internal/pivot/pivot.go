// Package pivot groups priced rows by their channel-specific pivot key
// and sums measures. Row counts stay well under the threshold that
// would justify a column-oriented table, so grouping is plain
// map-based, not a dataframe library.
package pivot

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/pivotrules"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// Aggregate groups priced rows into pivot rows per the channel policy,
// applying its pre-aggregation and re-assertion rules, and returns
// them in deterministic order: (gst_rate asc, ledger_name asc, fg
// asc[, buyer_state asc]).
func Aggregate(channel string, priced []rows.Priced) []rows.Pivot {
	policy := pivotrules.For(channel)

	groups := make(map[rows.PivotKey]*rows.Pivot)
	var order []rows.PivotKey
	// canonRate maps a rate's string form to one shared Decimal, so equal
	// rates parsed on different rows produce equal map keys.
	canonRate := make(map[string]decimal.Decimal)

	for _, r := range priced {
		if policy.ExcludeZeroTaxable && r.TaxableValue.IsZero() {
			continue
		}

		rate, seen := canonRate[r.GSTRate.String()]
		if !seen {
			rate = r.GSTRate
			canonRate[r.GSTRate.String()] = rate
		}

		key := rows.PivotKey{
			GSTIN:      r.GSTIN,
			Month:      r.Month,
			GSTRate:    rate,
			LedgerName: r.LedgerName,
			FG:         r.FG,
		}
		if policy.IncludeBuyerState {
			key.BuyerState = r.BuyerState
		}

		g, ok := groups[key]
		if !ok {
			g = &rows.Pivot{Key: key,
				TotalTaxable: decimal.Zero, TotalCGST: decimal.Zero,
				TotalSGST: decimal.Zero, TotalIGST: decimal.Zero}
			groups[key] = g
			order = append(order, key)
		}

		g.TotalQuantity += r.Quantity
		g.TotalTaxable = g.TotalTaxable.Add(r.TaxableValue)
		g.TotalCGST = g.TotalCGST.Add(r.CGST)
		g.TotalSGST = g.TotalSGST.Add(r.SGST)
		g.TotalIGST = g.TotalIGST.Add(r.IGST)
	}

	if policy.ForceIGSTOnly {
		for _, g := range groups {
			if !g.TotalCGST.IsZero() || !g.TotalSGST.IsZero() {
				g.TotalIGST = g.TotalIGST.Add(g.TotalCGST).Add(g.TotalSGST)
				g.TotalCGST = decimal.Zero
				g.TotalSGST = decimal.Zero
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if !a.GSTRate.Equal(b.GSTRate) {
			return a.GSTRate.LessThan(b.GSTRate)
		}
		if a.LedgerName != b.LedgerName {
			return a.LedgerName < b.LedgerName
		}
		if a.FG != b.FG {
			return a.FG < b.FG
		}
		return a.BuyerState < b.BuyerState
	})

	out := make([]rows.Pivot, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}

// Package batch partitions pivot rows by GST rate, one artifact per
// rate, and runs the reconciliation integrity check before returning.
package batch

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// Partition is the subset of pivot rows with a single gst_rate.
type Partition struct {
	GSTRate  decimal.Decimal
	FileName string
	Rows     []rows.Pivot
}

// tolerance is the absolute rounding tolerance allowed for the
// reconciliation check.
var tolerance = decimal.NewFromFloat(0.01)

// Split partitions pivot rows by gst_rate, deterministically ordered
// by rate ascending, and verifies the reconciliation invariant: the
// sum of batch totals must equal the input pivot totals, within
// tolerance, and the union of row keys must equal the input key set.
func Split(channel, gstin, month string, pivotRows []rows.Pivot) ([]Partition, error) {
	groups := make(map[string][]rows.Pivot)
	var rates []string
	rateValues := make(map[string]decimal.Decimal)

	for _, p := range pivotRows {
		rateKey := p.Key.GSTRate.StringFixed(2)
		if _, ok := groups[rateKey]; !ok {
			rates = append(rates, rateKey)
			rateValues[rateKey] = p.Key.GSTRate
		}
		groups[rateKey] = append(groups[rateKey], p)
	}

	sort.Slice(rates, func(i, j int) bool {
		return rateValues[rates[i]].LessThan(rateValues[rates[j]])
	})

	partitions := make([]Partition, 0, len(rates))
	for _, rateKey := range rates {
		rate := rateValues[rateKey]
		pct := rate.Mul(decimal.NewFromInt(100)).IntPart()
		partitions = append(partitions, Partition{
			GSTRate:  rate,
			FileName: fmt.Sprintf("%s_%s_%s_%dpct_batch", channel, gstin, month, pct),
			Rows:     groups[rateKey],
		})
	}

	if err := verifyIntegrity(pivotRows, partitions); err != nil {
		return nil, err
	}

	return partitions, nil
}

func verifyIntegrity(input []rows.Pivot, partitions []Partition) error {
	wantRecords := len(input)
	wantTaxable := decimal.Zero
	wantTax := decimal.Zero
	wantKeys := make(map[rows.PivotKey]bool, len(input))
	for _, p := range input {
		wantTaxable = wantTaxable.Add(p.TotalTaxable)
		wantTax = wantTax.Add(p.TotalTax())
		wantKeys[p.Key] = true
	}

	gotRecords := 0
	gotTaxable := decimal.Zero
	gotTax := decimal.Zero
	gotKeys := make(map[rows.PivotKey]bool, len(input))
	for _, part := range partitions {
		if len(distinctRates(part.Rows)) != 1 {
			return pipeerrors.New("batch", pipeerrors.IntegrityCheckFailed,
				fmt.Sprintf("batch %s contains more than one gst_rate", part.FileName))
		}
		for _, p := range part.Rows {
			gotRecords++
			gotTaxable = gotTaxable.Add(p.TotalTaxable)
			gotTax = gotTax.Add(p.TotalTax())
			gotKeys[p.Key] = true
		}
	}

	if gotRecords != wantRecords {
		return pipeerrors.New("batch", pipeerrors.IntegrityCheckFailed,
			fmt.Sprintf("record count mismatch: want %d got %d", wantRecords, gotRecords))
	}
	if wantTaxable.Sub(gotTaxable).Abs().GreaterThan(tolerance) {
		return pipeerrors.New("batch", pipeerrors.IntegrityCheckFailed,
			fmt.Sprintf("taxable total mismatch: want %s got %s", wantTaxable, gotTaxable))
	}
	if wantTax.Sub(gotTax).Abs().GreaterThan(tolerance) {
		return pipeerrors.New("batch", pipeerrors.IntegrityCheckFailed,
			fmt.Sprintf("tax total mismatch: want %s got %s", wantTax, gotTax))
	}
	if len(gotKeys) != len(wantKeys) {
		return pipeerrors.New("batch", pipeerrors.IntegrityCheckFailed, "batch key set does not match pivot key set")
	}
	for k := range wantKeys {
		if !gotKeys[k] {
			return pipeerrors.New("batch", pipeerrors.IntegrityCheckFailed, "batch key set does not match pivot key set")
		}
	}

	return nil
}

func distinctRates(pivotRows []rows.Pivot) map[string]bool {
	rates := make(map[string]bool)
	for _, p := range pivotRows {
		rates[p.Key.GSTRate.StringFixed(2)] = true
	}
	return rates
}

// Package pivotrules declares per-channel pivot dimensions, measures,
// and business-rule transformations as data rather than scattered
// conditionals.
package pivotrules

// Dimension names used to build a PivotKey.
const (
	DimGSTIN      = "gstin"
	DimMonth      = "month"
	DimGSTRate    = "gst_rate"
	DimLedgerName = "ledger_name"
	DimFG         = "fg"
	DimBuyerState = "buyer_state"
)

// Measure names summed per pivot group.
const (
	MeasureQuantity     = "quantity"
	MeasureTaxableValue = "taxable_value"
	MeasureCGST         = "cgst"
	MeasureSGST         = "sgst"
	MeasureIGST         = "igst"
)

// Policy is a channel-specific pivot policy.
type Policy struct {
	Dimensions         []string
	Measures           []string
	ExcludeZeroTaxable bool // sales-MTR: drop taxable_value=0 rows before aggregation
	ForceIGSTOnly      bool // settlement-STR: re-assert cgst=sgst=0
	IncludeBuyerState  bool // marketplace-F: retain buyer_state in the key
}

var baseDimensions = []string{DimGSTIN, DimMonth, DimGSTRate, DimLedgerName, DimFG}
var baseMeasures = []string{MeasureQuantity, MeasureTaxableValue, MeasureCGST, MeasureSGST, MeasureIGST}
var igstOnlyMeasures = []string{MeasureQuantity, MeasureTaxableValue, MeasureIGST}

// Policies is the fixed per-channel pivot policy table. Unknown
// channels default to the sales-MTR policy.
var Policies = map[string]Policy{
	"sales-MTR": {
		Dimensions:         baseDimensions,
		Measures:           baseMeasures,
		ExcludeZeroTaxable: true,
	},
	"settlement-STR": {
		Dimensions:    baseDimensions,
		Measures:      igstOnlyMeasures,
		ForceIGSTOnly: true,
	},
	"marketplace-F": {
		Dimensions:        append(append([]string{}, baseDimensions...), DimBuyerState),
		Measures:          baseMeasures,
		IncludeBuyerState: true,
	},
	"marketplace-P": {
		Dimensions: baseDimensions,
		Measures:   baseMeasures,
	},
}

// For returns the policy for a channel, defaulting to sales-MTR for
// unknown channels.
func For(channel string) Policy {
	if p, ok := Policies[channel]; ok {
		return p
	}
	return Policies["sales-MTR"]
}

// SupportedChannels lists the channels with a declared pivot policy.
func SupportedChannels() []string {
	return []string{"sales-MTR", "settlement-STR", "marketplace-F", "marketplace-P"}
}

// Package expenserules declares per-expense-type (ledger, default
// rate, input-GST flag) as data, in the same shape as pivotrules.Policy.
package expenserules

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Policy is the ledger mapping and default GST treatment for one
// expense type.
type Policy struct {
	LedgerName     string
	DefaultRate    decimal.Decimal
	IsInputGST     bool
}

// defaultExpenseType is used when a fee description matches no known
// keyword.
const defaultExpenseType = "Other Fees"

// keywordOrder classifies a raw fee description by keyword match.
// Longer, more specific keywords are checked first.
var keywordOrder = []string{
	"closing fee", "closing",
	"commission",
	"fulfilment", "fulfillment", "fba",
	"referral",
	"shipping",
	"advertising", "ads",
	"storage",
	"return processing", "returns",
}

var keywordToType = map[string]string{
	"closing fee":        "Closing Fee",
	"closing":            "Closing Fee",
	"commission":         "Commission Fee",
	"fulfilment":         "Fulfilment Fee",
	"fulfillment":        "Fulfilment Fee",
	"fba":                "Fulfilment Fee",
	"referral":           "Referral Fee",
	"shipping":           "Shipping Fee",
	"advertising":        "Advertising Fee",
	"ads":                "Advertising Fee",
	"storage":            "Storage Fee",
	"return processing":  "Return Processing Fee",
	"returns":            "Return Processing Fee",
}

// Policies is the fixed expense-type policy table.
var Policies = map[string]Policy{
	"Closing Fee":           {LedgerName: "Marketplace Closing Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Commission Fee":        {LedgerName: "Marketplace Commission", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Fulfilment Fee":        {LedgerName: "Marketplace Fulfilment Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Referral Fee":          {LedgerName: "Marketplace Referral Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Shipping Fee":          {LedgerName: "Marketplace Shipping Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Advertising Fee":       {LedgerName: "Marketplace Advertising Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Storage Fee":           {LedgerName: "Marketplace Storage Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	"Return Processing Fee": {LedgerName: "Marketplace Return Processing Fee", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
	defaultExpenseType:      {LedgerName: "Marketplace Other Fees", DefaultRate: decimal.NewFromFloat(0.18), IsInputGST: true},
}

// ClassifyExpenseType maps a raw fee-line description to a known
// expense type by keyword, falling back to the configured default
// expense type.
func ClassifyExpenseType(description string) string {
	lower := strings.ToLower(description)
	for _, kw := range keywordOrder {
		if strings.Contains(lower, kw) {
			return keywordToType[kw]
		}
	}
	return defaultExpenseType
}

// For returns the ledger policy for an expense type, falling back to
// the default expense type's policy.
func For(expenseType string) Policy {
	if p, ok := Policies[expenseType]; ok {
		return p
	}
	return Policies[defaultExpenseType]
}

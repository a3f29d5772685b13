// Package resolve implements the Master Resolvers: the Item Resolver
// (sku/asin -> finished good) and the Ledger Resolver (channel+state
// -> ledger name), each producing an approval request on a miss.
package resolve

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// ItemKey identifies a finished-good mapping, keyed by (sku, asin).
type ItemKey struct {
	SKU  string
	ASIN string
}

// ItemMapping is a resolved finished-good mapping.
type ItemMapping struct {
	FG      string
	GSTRate decimal.Decimal
}

// ItemSnapshot is the consistent point-in-time view of the item master
// the resolver stage takes at stage start, so approvals committed
// mid-stage do not produce partial enrichment within one run.
type ItemSnapshot map[ItemKey]ItemMapping

// ItemApprovalPayload is the suggested mapping attached to an item
// approval request.
type ItemApprovalPayload struct {
	SKU             string `json:"sku"`
	ASIN            string `json:"asin"`
	SuggestedFG     string `json:"suggested_fg"`
	SuggestedRate   string `json:"suggested_gst_rate"`
}

// ResolveItem looks up (sku, asin) in lookup order: exact (sku, asin)
// -> exact sku -> exact asin -> miss. On a miss it returns the
// suggested approval payload for the caller to enqueue (deduplicated
// by the caller across the dataset).
func ResolveItem(snapshot ItemSnapshot, sku, asin string) (ItemMapping, bool, ItemApprovalPayload) {
	if m, ok := snapshot[ItemKey{SKU: sku, ASIN: asin}]; ok {
		return m, true, ItemApprovalPayload{}
	}
	for key, m := range snapshot {
		if key.SKU == sku && sku != "" {
			return m, true, ItemApprovalPayload{}
		}
	}
	for key, m := range snapshot {
		if key.ASIN == asin && asin != "" {
			return m, true, ItemApprovalPayload{}
		}
	}
	return ItemMapping{}, false, ItemApprovalPayload{
		SKU:           sku,
		ASIN:          asin,
		SuggestedFG:   firstWord(sku),
		SuggestedRate: "0.18",
	}
}

func firstWord(sku string) string {
	for i, r := range sku {
		if r == '-' || r == '_' || r == ' ' {
			return sku[:i]
		}
	}
	return sku
}

// LedgerKey identifies a ledger mapping, keyed by (channel, buyer_state).
type LedgerKey struct {
	Channel    string
	BuyerState string
}

// LedgerSnapshot is the consistent point-in-time view of the ledger
// master the resolver stage takes at stage start.
type LedgerSnapshot map[LedgerKey]string

// LedgerApprovalPayload is the suggested mapping attached to a ledger
// approval request.
type LedgerApprovalPayload struct {
	Channel               string `json:"channel"`
	BuyerState            string `json:"buyer_state"`
	SuggestedLedgerName   string `json:"suggested_ledger_name"`
}

// ResolveLedger looks up (channel, buyer_state) in the ledger master
// snapshot. On a miss it returns the suggested approval payload:
// "{Channel Title-Case} {state abbreviation}".
func ResolveLedger(snapshot LedgerSnapshot, channel, buyerState string, stateAbbr func(string) string) (string, bool, LedgerApprovalPayload) {
	key := LedgerKey{Channel: channel, BuyerState: buyerState}
	if name, ok := snapshot[key]; ok {
		return name, true, LedgerApprovalPayload{}
	}
	return "", false, LedgerApprovalPayload{
		Channel:             channel,
		BuyerState:          buyerState,
		SuggestedLedgerName: titleCase(channel) + " " + stateAbbr(buyerState),
	}
}

func titleCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

// EnrichItem annotates an Enriched row's FG/ItemResolved fields.
func EnrichItem(e *rows.Enriched, mapping ItemMapping, resolved bool) {
	e.FG = mapping.FG
	e.ItemResolved = resolved
}

// EnrichLedger annotates an Enriched row's LedgerName/LedgerResolved fields.
func EnrichLedger(e *rows.Enriched, ledgerName string, resolved bool) {
	e.LedgerName = ledgerName
	e.LedgerResolved = resolved
}

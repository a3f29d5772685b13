// Package numbering is the pure invoice-numbering format function plus
// the durable per-(gstin, channel, state, month) sequence allocator
// contract.
package numbering

import (
	"context"
	"fmt"
	"strings"
)

// channelPrefix maps a channel to its invoice-number template prefix.
// Unknown channels fall back to UPPER3(channel).
var channelPrefix = map[string]string{
	"sales-MTR":      "AMZ",
	"settlement-STR": "AMZST",
	"marketplace-F":  "FLIP",
	"marketplace-P":  "PEPP",
}

// stateAbbreviation is the fixed, exhaustive two-letter abbreviation
// table for Indian states and union territories.
var stateAbbreviation = map[string]string{
	"ANDHRA PRADESH":              "AP",
	"ARUNACHAL PRADESH":           "AR",
	"ASSAM":                       "AS",
	"BIHAR":                       "BR",
	"CHHATTISGARH":                "CG",
	"GOA":                         "GA",
	"GUJARAT":                     "GJ",
	"HARYANA":                     "HR",
	"HIMACHAL PRADESH":            "HP",
	"JHARKHAND":                   "JH",
	"KARNATAKA":                   "KA",
	"KERALA":                      "KL",
	"MADHYA PRADESH":              "MP",
	"MAHARASHTRA":                 "MH",
	"MANIPUR":                     "MN",
	"MEGHALAYA":                   "ML",
	"MIZORAM":                     "MZ",
	"NAGALAND":                    "NL",
	"ODISHA":                      "OD",
	"PUNJAB":                      "PB",
	"RAJASTHAN":                   "RJ",
	"SIKKIM":                      "SK",
	"TAMIL NADU":                  "TN",
	"TELANGANA":                   "TG",
	"TRIPURA":                     "TR",
	"UTTAR PRADESH":               "UP",
	"UTTARAKHAND":                 "UK",
	"WEST BENGAL":                 "WB",
	"ANDAMAN AND NICOBAR ISLANDS": "AN",
	"CHANDIGARH":                  "CH",
	"DADRA AND NAGAR HAVELI AND DAMAN AND DIU": "DN",
	"DELHI":           "DL",
	"JAMMU AND KASHMIR": "JK",
	"LADAKH":           "LA",
	"LAKSHADWEEP":      "LD",
	"PUDUCHERRY":       "PY",
}

// StateAbbr returns the two-letter abbreviation for a canonical state
// name, falling back to the first two uppercased letters of the name
// for unknown states.
func StateAbbr(state string) string {
	upper := strings.ToUpper(strings.TrimSpace(state))
	if abbr, ok := stateAbbreviation[upper]; ok {
		return abbr
	}
	if len(upper) >= 2 {
		return upper[:2]
	}
	return strings.ToUpper(upper + "X")[:2]
}

// Prefix returns the channel prefix used in invoice numbers, falling
// back to UPPER3(channel) for unknown channels.
func Prefix(channel string) string {
	if p, ok := channelPrefix[channel]; ok {
		return p
	}
	upper := strings.ToUpper(channel)
	upper = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, upper)
	if len(upper) >= 3 {
		return upper[:3]
	}
	for len(upper) < 3 {
		upper += "X"
	}
	return upper
}

// Format renders the channel-specific four-slot invoice number
// template: {prefix}-{ST}-{MM}-{NNNN}.
func Format(channel, buyerState, month string, sequence int) string {
	mm := "00"
	if parts := strings.Split(month, "-"); len(parts) == 2 {
		mm = parts[1]
	}
	return fmt.Sprintf("%s-%s-%s-%04d", Prefix(channel), StateAbbr(buyerState), mm, sequence)
}

// SequenceKey identifies a durable invoice-sequence counter.
type SequenceKey struct {
	GSTIN      string
	Channel    string
	BuyerState string
	Month      string
}

// Allocator durably hands out contiguous integer blocks per
// SequenceKey: a block of n integers starting at last_persisted + 1.
// Implementations must serialize allocations on the key and must not
// persist until Commit is called, so a retried run does not skip
// numbers.
type Allocator interface {
	// Reserve holds n sequence numbers in memory for key, returning the
	// first value of the reserved block. It does not commit.
	Reserve(ctx context.Context, key SequenceKey, n int) (first int, err error)
	// Commit durably persists the high-water mark for key established
	// by a prior Reserve. Must be called exactly once per Reserve that
	// is to take effect.
	Commit(ctx context.Context, key SequenceKey) error
	// Release discards an in-memory reservation without persisting it,
	// so a cancelled or failed stage does not burn sequence numbers it
	// never issued.
	Release(ctx context.Context, key SequenceKey)
}

package normalize

import "github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"

// DefaultRegistry returns the fixed channel -> Normalizer map for the
// four supported report types.
func DefaultRegistry() map[rows.Channel]Normalizer {
	return map[rows.Channel]Normalizer{
		rows.ChannelSalesMTR:      &SalesMTRNormalizer{},
		rows.ChannelSettlementSTR: &SettlementSTRNormalizer{},
		rows.ChannelMarketplaceF:  &MarketplaceFNormalizer{},
		rows.ChannelMarketplaceP:  &MarketplacePNormalizer{},
	}
}

// Lookup returns a function suitable for run.Coordinator.Normalizer.
func Lookup(registry map[rows.Channel]Normalizer) func(rows.Channel) Normalizer {
	return func(ch rows.Channel) Normalizer {
		return registry[ch]
	}
}

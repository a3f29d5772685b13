// Package cache memoizes tax-split computations in Redis: the same
// (channel, taxable value, shipping value, rate, intrastate) combination
// can recur across thousands of rows within a run, so a GetOrSet-style
// memo avoids recomputing it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/redisclient"
	"github.com/ledgerpipe/ledgerpipe/internal/taxrules"
)

// TTLTaxSplit is how long a memoized split is retained; a run never
// spans longer than this, so entries from a finished run age out on
// their own without explicit invalidation.
const TTLTaxSplit = 30 * time.Minute

// Cache wraps a redisclient.Client with the tax-split memo helpers.
type Cache struct {
	redis *redisclient.Client
}

// New returns a Cache backed by redis. redis may be nil, in which case
// every Get is a miss and every Set is a no-op — the pipeline must
// still function correctly, only slower, without a live Redis.
func New(redis *redisclient.Client) *Cache {
	return &Cache{redis: redis}
}

func splitKey(channel string, taxableValue, shippingValue, gstRate decimal.Decimal, isIntrastate bool) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%t", channel, taxableValue.String(), shippingValue.String(), gstRate.String(), isIntrastate)
	sum := sha256.Sum256([]byte(raw))
	return "taxsplit:" + hex.EncodeToString(sum[:16])
}

// GetSplit returns a memoized split, or (false, nil) on a cache miss.
func (c *Cache) GetSplit(ctx context.Context, channel string, taxableValue, shippingValue, gstRate decimal.Decimal, isIntrastate bool) (taxrules.Split, bool, error) {
	if c.redis == nil {
		return taxrules.Split{}, false, nil
	}
	var split taxrules.Split
	err := c.redis.Get(ctx, splitKey(channel, taxableValue, shippingValue, gstRate, isIntrastate), &split)
	if errors.Is(err, redisclient.ErrNotFound) {
		return taxrules.Split{}, false, nil
	}
	if err != nil {
		return taxrules.Split{}, false, err
	}
	return split, true, nil
}

// SetSplit memoizes a computed split.
func (c *Cache) SetSplit(ctx context.Context, channel string, taxableValue, shippingValue, gstRate decimal.Decimal, isIntrastate bool, split taxrules.Split) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Set(ctx, splitKey(channel, taxableValue, shippingValue, gstRate, isIntrastate), split, TTLTaxSplit)
}

// ComputeSplitCached wraps taxrules.ComputeSplit with the memo cache,
// so repeated (channel, amounts, rate, intrastate) tuples across a
// large run hit Redis instead of recomputing — the computation itself
// is cheap, but a large batch recomputing the same handful of distinct
// tuples thousands of times still pays needless decimal arithmetic.
func (c *Cache) ComputeSplitCached(ctx context.Context, channel string, taxableValue, shippingValue, gstRate decimal.Decimal, isIntrastate bool) (taxrules.Split, error) {
	if split, hit, err := c.GetSplit(ctx, channel, taxableValue, shippingValue, gstRate, isIntrastate); err == nil && hit {
		return split, nil
	}
	split := taxrules.ComputeSplit(channel, taxableValue, shippingValue, gstRate, isIntrastate)
	_ = c.SetSplit(ctx, channel, taxableValue, shippingValue, gstRate, isIntrastate, split)
	return split, nil
}

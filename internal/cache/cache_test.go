package cache

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeSplitCachedWithoutRedisFallsBackToDirectCompute(t *testing.T) {
	c := New(nil)

	split, err := c.ComputeSplitCached(context.Background(), "sales-MTR",
		decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromFloat(0.18), true)
	if err != nil {
		t.Fatalf("ComputeSplitCached: %v", err)
	}
	if !split.CGST.Equal(decimal.NewFromInt(90)) || !split.SGST.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected intrastate CGST/SGST of 90 each, got cgst=%s sgst=%s", split.CGST, split.SGST)
	}

	hit, ok, err := c.GetSplit(context.Background(), "sales-MTR",
		decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromFloat(0.18), true)
	if err != nil {
		t.Fatalf("GetSplit: %v", err)
	}
	if ok {
		t.Fatalf("expected a miss with no backing redis client, got %+v", hit)
	}
}

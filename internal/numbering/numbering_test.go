package numbering

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatSalesMTR(t *testing.T) {
	require.Equal(t, "AMZ-AP-08-0001", Format("sales-MTR", "ANDHRA PRADESH", "2025-08", 1))
	require.Equal(t, "AMZ-AP-08-0002", Format("sales-MTR", "ANDHRA PRADESH", "2025-08", 2))
}

func TestFormatSettlementSTR(t *testing.T) {
	require.Equal(t, "AMZST-HR-08-0001", Format("settlement-STR", "HARYANA", "2025-08", 1))
}

func TestFormatMarketplaceF(t *testing.T) {
	require.Equal(t, "FLIP-DL-01-0042", Format("marketplace-F", "DELHI", "2025-01", 42))
}

func TestFormatMarketplaceP(t *testing.T) {
	require.Equal(t, "PEPP-KA-12-0001", Format("marketplace-P", "KARNATAKA", "2025-12", 1))
}

func TestFormatUnknownChannelFallback(t *testing.T) {
	got := Format("shopclues", "GOA", "2025-03", 7)
	require.Equal(t, "SHO-GA-03-0007", got)
}

func TestStateAbbrUnknownFallback(t *testing.T) {
	require.Equal(t, "ZZ", StateAbbr("zzyzxia"))
}

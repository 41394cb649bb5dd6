package ranks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{Silver: 100, Gold: 500, Platinum: 2000}

func TestTierFor(t *testing.T) {
	tests := []struct {
		points int64
		want   Tier
	}{
		{0, TierBronze},
		{99, TierBronze},
		{100, TierSilver},
		{499, TierSilver},
		{500, TierGold},
		{1999, TierGold},
		{2000, TierPlatinum},
		{100000, TierPlatinum},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, TierFor(tt.points, defaultThresholds), "points=%d", tt.points)
	}
}

func TestRewardFor(t *testing.T) {
	require.Equal(t, int64(5), RewardFor(TierBronze))
	require.Equal(t, int64(8), RewardFor(TierSilver))
	require.Equal(t, int64(12), RewardFor(TierGold))
	require.Equal(t, int64(20), RewardFor(TierPlatinum))
}

func TestThresholdsAscending(t *testing.T) {
	require.True(t, defaultThresholds.Ascending())
	require.False(t, Thresholds{Silver: 100, Gold: 100, Platinum: 2000}.Ascending())
	require.False(t, Thresholds{Silver: 500, Gold: 100, Platinum: 2000}.Ascending())
}

func TestTierForCustomThresholds(t *testing.T) {
	// После изменения порогов владельцем уровень пересчитывается по новым
	custom := Thresholds{Silver: 10, Gold: 20, Platinum: 30}
	require.Equal(t, TierPlatinum, TierFor(30, custom))
	require.Equal(t, TierGold, TierFor(25, custom))
}

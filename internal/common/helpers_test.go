package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPluralizeCoins(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "монета"},
		{2, "монеты"},
		{5, "монет"},
		{11, "монет"},
		{14, "монет"},
		{21, "монета"},
		{22, "монеты"},
		{100, "монет"},
		{101, "монета"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PluralizeCoins(tt.n), "n=%d", tt.n)
	}
}

func TestPluralizePointsAndVotes(t *testing.T) {
	require.Equal(t, "очко", PluralizePoints(1))
	require.Equal(t, "очка", PluralizePoints(3))
	require.Equal(t, "очков", PluralizePoints(12))

	require.Equal(t, "голос", PluralizeVotes(1))
	require.Equal(t, "голоса", PluralizeVotes(4))
	require.Equal(t, "голосов", PluralizeVotes(7))
}

func TestFormatCoins(t *testing.T) {
	require.Equal(t, "150 монет", FormatCoins(150))
	require.Equal(t, "1 монета", FormatCoins(1))
}

func TestFormatDateTime(t *testing.T) {
	// 12:00 UTC = 15:00 по Москве
	utc := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "10.03.2025 15:00", FormatDateTime(utc))
}

package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/board-bot/internal/common"
)

func TestParseCategory(t *testing.T) {
	for raw, want := range map[string]Category{
		"news":      CategoryNews,
		"новости":   CategoryNews,
		"События":   CategoryEvents,
		"help":      CategoryHelp,
		"барахолка": CategoryMarket,
		"прочее":    CategoryOther,
		" market ":  CategoryMarket,
	} {
		got, err := ParseCategory(raw)
		require.NoError(t, err, "raw=%q", raw)
		require.Equal(t, want, got, "raw=%q", raw)
	}

	_, err := ParseCategory("политика")
	require.ErrorIs(t, err, common.ErrUnknownCategory)
}

func TestWithinLifetime(t *testing.T) {
	created := time.Now()
	n := &Notification{CreatedAt: created}
	lifetime := 168 * time.Hour

	require.True(t, n.WithinLifetime(created, lifetime))
	require.True(t, n.WithinLifetime(created.Add(lifetime), lifetime))
	require.False(t, n.WithinLifetime(created.Add(lifetime+time.Second), lifetime))
}

func TestTerminal(t *testing.T) {
	require.False(t, (&Notification{Status: StatusPending}).Terminal())
	require.True(t, (&Notification{Status: StatusValidated}).Terminal())
	require.True(t, (&Notification{Status: StatusRejected}).Terminal())
}

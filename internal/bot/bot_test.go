package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/users"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text     string
		wantCmd  string
		wantArgs []string
		wantOK   bool
	}{
		{"!подать 150 новости субботник", "подать", []string{"150", "новости", "субботник"}, true},
		{"!за 7", "за", []string{"7"}, true},
		{".против 7", "против", []string{"7"}, true},
		{"/login пароль", "login", []string{"пароль"}, true},
		{"!ДОСКА", "доска", nil, true},
		{"  !баланс  ", "баланс", nil, true},
		{"просто текст", "", nil, false},
		{"!", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		cmd, args, ok := p.ParseCommand(tt.text)
		require.Equal(t, tt.wantOK, ok, "text=%q", tt.text)
		require.Equal(t, tt.wantCmd, cmd, "text=%q", tt.text)
		require.Equal(t, tt.wantArgs, args, "text=%q", tt.text)
	}
}

func TestLeaderboardText(t *testing.T) {
	ctx := context.Background()

	known := map[int64]*users.User{
		10: {UserID: 10, Username: "vera", Points: 520, Tier: ranks.TierSilver},
		20: {UserID: 20, FirstName: "Олег", LastName: "К", Points: 101, Tier: ranks.TierSilver},
	}
	lookup := func(_ context.Context, userID int64) (*users.User, error) {
		u, ok := known[userID]
		if !ok {
			return nil, common.ErrUserNotFound
		}
		return u, nil
	}

	t.Run("пустая таблица", func(t *testing.T) {
		got := leaderboardText(ctx, nil, lookup)
		require.Equal(t, "🏆 Таблица лидеров пока пуста", got)
	})

	t.Run("порядок зачисления сохраняется", func(t *testing.T) {
		roster := []*ranks.LeaderboardEntry{
			{ID: 1, UserID: 20},
			{ID: 2, UserID: 10},
		}
		got := leaderboardText(ctx, roster, lookup)
		require.Equal(t,
			"🏆 Таблица лидеров (2)\n\n"+
				"1. Олег К — Серебро, 101\n"+
				"2. @vera — Серебро, 520\n",
			got)
	})

	t.Run("неизвестный участник показывается по id", func(t *testing.T) {
		roster := []*ranks.LeaderboardEntry{{ID: 1, UserID: 777}}
		got := leaderboardText(ctx, roster, lookup)
		require.Equal(t, "🏆 Таблица лидеров (1)\n\n1. id777\n", got)
	})
}

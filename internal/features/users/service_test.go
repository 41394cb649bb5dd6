package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/signals"
)

// memStore — реестр в памяти для тестов сервиса.
type memStore struct {
	users map[int64]*User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*User)}
}

func (s *memStore) Ensure(ctx context.Context, userID int64, info UpdateInfo) error {
	if u, ok := s.users[userID]; ok {
		u.Username = info.Username
		u.FirstName = info.FirstName
		u.LastName = info.LastName
		return nil
	}
	s.users[userID] = &User{
		UserID:    userID,
		Username:  info.Username,
		FirstName: info.FirstName,
		LastName:  info.LastName,
		Wallet:    500,
	}
	return nil
}

func (s *memStore) ByUserID(ctx context.Context, userID int64) (*User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) ByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (s *memStore) Exists(ctx context.Context, userID int64) (bool, error) {
	_, ok := s.users[userID]
	return ok, nil
}

func (s *memStore) ClearBan(ctx context.Context, userID int64) error {
	u, ok := s.users[userID]
	if !ok {
		return common.ErrUserNotFound
	}
	if !u.IsBanned {
		return common.ErrNotBanned
	}
	u.IsBanned = false
	u.BanExpiresAt = nil
	u.ConsecutiveRejections = 0
	return nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, signals.New()), store
}

func TestEnsureUserIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureUser(ctx, 1, "vasya", "Вася", ""))
	store.users[1].Points = 42

	// Повторный Ensure обновляет имя, но не трогает репутацию
	require.NoError(t, svc.EnsureUser(ctx, 1, "vasya_new", "Вася", "Пупкин"))
	u, err := svc.ByUserID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "vasya_new", u.Username)
	require.Equal(t, int64(42), u.Points)
}

func TestUnban(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	t.Run("не забанен", func(t *testing.T) {
		store.users[1] = &User{UserID: 1}
		err := svc.Unban(ctx, 1, now)
		require.ErrorIs(t, err, common.ErrNotBanned)
	})

	t.Run("срок не истёк", func(t *testing.T) {
		expires := now.Add(24 * time.Hour)
		store.users[2] = &User{UserID: 2, IsBanned: true, BanExpiresAt: &expires, ConsecutiveRejections: 3}
		err := svc.Unban(ctx, 2, now)
		require.ErrorIs(t, err, common.ErrBanNotExpired)
		require.True(t, store.users[2].IsBanned)
	})

	t.Run("срок истёк — бан липкий до явного разбана", func(t *testing.T) {
		expires := now.Add(-time.Hour)
		store.users[3] = &User{UserID: 3, IsBanned: true, BanExpiresAt: &expires, ConsecutiveRejections: 3}

		// Истечение срока само по себе флаг не снимает
		require.True(t, store.users[3].IsBanned)
		require.True(t, store.users[3].BanExpired(now))

		require.NoError(t, svc.Unban(ctx, 3, now))
		require.False(t, store.users[3].IsBanned)
		require.Nil(t, store.users[3].BanExpiresAt)
		require.Zero(t, store.users[3].ConsecutiveRejections)
	})
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "@vasya", (&User{Username: "vasya", FirstName: "Вася"}).DisplayName())
	require.Equal(t, "Вася Пупкин", (&User{FirstName: "Вася", LastName: "Пупкин"}).DisplayName())
	require.Equal(t, "Вася", (&User{FirstName: "Вася"}).DisplayName())
}

func TestCooldownOver(t *testing.T) {
	now := time.Now()
	u := &User{}
	require.True(t, u.CooldownOver(now, time.Hour))

	last := now.Add(-30 * time.Minute)
	u.LastSubmissionAt = &last
	require.False(t, u.CooldownOver(now, time.Hour))
	require.True(t, u.CooldownOver(now.Add(31*time.Minute), time.Hour))
}

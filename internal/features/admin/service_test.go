package admin

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/config"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/signals"
)

// memStore — хранилище панели владельца в памяти для тестов.
type memStore struct {
	settings Settings
	sessions map[int64]*Session
	attempts map[int64][]bool
}

func newMemStore() *memStore {
	return &memStore{
		settings: Settings{
			DepositRequirement: 100,
			Thresholds:         ranks.Thresholds{Silver: 100, Gold: 500, Platinum: 2000},
		},
		sessions: make(map[int64]*Session),
		attempts: make(map[int64][]bool),
	}
}

func (s *memStore) Settings(ctx context.Context) (*Settings, error) {
	copied := s.settings
	return &copied, nil
}

func (s *memStore) UpdateRequirement(ctx context.Context, amount int64) error {
	s.settings.DepositRequirement = amount
	return nil
}

func (s *memStore) UpdateThresholds(ctx context.Context, t ranks.Thresholds) error {
	s.settings.Thresholds = t
	return nil
}

func (s *memStore) CreateSession(ctx context.Context, session *Session) error {
	session.IsActive = true
	s.sessions[session.UserID] = session
	return nil
}

func (s *memStore) GetActiveSession(ctx context.Context, userID int64) (*Session, error) {
	session, ok := s.sessions[userID]
	if !ok || !session.IsActive || time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("активная сессия не найдена")
	}
	return session, nil
}

func (s *memStore) DeactivateSession(ctx context.Context, userID int64) error {
	if session, ok := s.sessions[userID]; ok {
		session.IsActive = false
	}
	return nil
}

func (s *memStore) LogAttempt(ctx context.Context, userID int64, success bool) error {
	s.attempts[userID] = append(s.attempts[userID], success)
	return nil
}

func (s *memStore) GetRecentAttempts(ctx context.Context, userID int64, period time.Duration) (int, error) {
	count := 0
	for _, success := range s.attempts[userID] {
		if !success {
			count++
		}
	}
	return count, nil
}

// makeHash строит Argon2id-хеш в том же формате, что scripts/generate_hash.go.
func makeHash(password string) string {
	salt := []byte("0123456789abcdef")
	hash := argon2.IDKey([]byte(password), salt, 3, 65536, 2, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		65536, 3, 2,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

const ownerID = int64(42)

func newTestService(store *memStore) *Service {
	cfg := &config.Config{
		OwnerIDs:          []int64{ownerID},
		AdminPasswordHash: makeHash("секретный-пароль"),
	}
	return NewService(store, cfg, signals.New())
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("не владелец", func(t *testing.T) {
		svc := newTestService(newMemStore())
		err := svc.VerifyPassword(ctx, 7, "секретный-пароль")
		require.ErrorIs(t, err, common.ErrNotOwner)
	})

	t.Run("верный пароль открывает сессию", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		require.NoError(t, svc.VerifyPassword(ctx, ownerID, "секретный-пароль"))
		require.True(t, svc.HasActiveSession(ctx, ownerID))
	})

	t.Run("неверный пароль", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		err := svc.VerifyPassword(ctx, ownerID, "не тот")
		require.ErrorIs(t, err, common.ErrWrongPassword)
		require.False(t, svc.HasActiveSession(ctx, ownerID))
	})

	t.Run("блокировка после трёх неудач", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		for i := 0; i < 3; i++ {
			require.ErrorIs(t, svc.VerifyPassword(ctx, ownerID, "не тот"), common.ErrWrongPassword)
		}
		err := svc.VerifyPassword(ctx, ownerID, "секретный-пароль")
		require.ErrorIs(t, err, common.ErrTooManyAttempts)
	})
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	require.ErrorIs(t, svc.Authorize(ctx, 7), common.ErrNotOwner)
	require.ErrorIs(t, svc.Authorize(ctx, ownerID), common.ErrSessionExpired)

	require.NoError(t, svc.VerifyPassword(ctx, ownerID, "секретный-пароль"))
	require.NoError(t, svc.Authorize(ctx, ownerID))

	require.NoError(t, svc.Logout(ctx, ownerID))
	require.ErrorIs(t, svc.Authorize(ctx, ownerID), common.ErrSessionExpired)
}

func TestSetDepositRequirement(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)
	require.NoError(t, svc.VerifyPassword(ctx, ownerID, "секретный-пароль"))

	require.ErrorIs(t, svc.SetDepositRequirement(ctx, ownerID, 0), common.ErrInvalidAmount)
	require.ErrorIs(t, svc.SetDepositRequirement(ctx, ownerID, -10), common.ErrInvalidAmount)

	require.NoError(t, svc.SetDepositRequirement(ctx, ownerID, 250))
	require.Equal(t, int64(250), store.settings.DepositRequirement)
}

func TestSetThresholds(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)
	require.NoError(t, svc.VerifyPassword(ctx, ownerID, "секретный-пароль"))

	// Невозрастающие пороги отклоняются, настройки не меняются
	err := svc.SetThresholds(ctx, ownerID, ranks.Thresholds{Silver: 500, Gold: 100, Platinum: 2000})
	require.ErrorIs(t, err, common.ErrThresholdsNotAscending)
	err = svc.SetThresholds(ctx, ownerID, ranks.Thresholds{Silver: 0, Gold: 100, Platinum: 200})
	require.ErrorIs(t, err, common.ErrThresholdsNotAscending)
	require.Equal(t, int64(100), store.settings.Thresholds.Silver)

	require.NoError(t, svc.SetThresholds(ctx, ownerID, ranks.Thresholds{Silver: 50, Gold: 300, Platinum: 1000}))
	require.Equal(t, ranks.Thresholds{Silver: 50, Gold: 300, Platinum: 1000}, store.settings.Thresholds)
}

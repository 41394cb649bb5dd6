package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/config"
	"serotonyl.ru/board-bot/internal/features/admin"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/users"
	"serotonyl.ru/board-bot/internal/signals"
)

// memStore — хранилище в памяти для тестов сервиса.
// Решения принимает тот же движок (checkSubmit/checkVote/buildVoteEffects),
// что и PostgreSQL-репозиторий; здесь только применение эффектов.
type memStore struct {
	users         map[int64]*users.User
	notifications map[int64]*Notification
	votes         map[int64]map[int64]Verdict
	leaderboard   []int64
	confiscated   int64
	nextID        int64
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[int64]*users.User),
		notifications: make(map[int64]*Notification),
		votes:         make(map[int64]map[int64]Verdict),
	}
}

func (s *memStore) addUser(id int64, wallet int64) *users.User {
	u := &users.User{UserID: id, Tier: ranks.TierBronze, Wallet: wallet}
	s.users[id] = u
	return u
}

func (s *memStore) enroll(userID int64) {
	for _, id := range s.leaderboard {
		if id == userID {
			return
		}
	}
	s.leaderboard = append(s.leaderboard, userID)
}

func (s *memStore) Submit(ctx context.Context, senderID int64, message string, category Category, payment int64, requirement int64, p Params, now time.Time) (*Notification, *SubmitEffects, error) {
	sender, ok := s.users[senderID]
	if !ok {
		return nil, nil, common.ErrUserNotFound
	}
	eff, err := checkSubmit(sender, requirement, payment, p, now)
	if err != nil {
		return nil, nil, err
	}

	sender.Wallet -= eff.Deposit
	sender.EscrowAtRisk += eff.Deposit
	submittedAt := now
	sender.LastSubmissionAt = &submittedAt
	sender.NotificationsSent++

	s.nextID++
	n := &Notification{
		ID:          s.nextID,
		SenderID:    senderID,
		Message:     message,
		Category:    category,
		Status:      StatusPending,
		DepositHeld: eff.Deposit,
		CreatedAt:   now,
	}
	s.notifications[n.ID] = n
	s.votes[n.ID] = make(map[int64]Verdict)
	return n, eff, nil
}

func (s *memStore) CastVote(ctx context.Context, id, voterID int64, verdict Verdict, p Params, now time.Time) (*VoteEffects, error) {
	n, ok := s.notifications[id]
	if !ok {
		return nil, common.ErrNotificationNotFound
	}
	_, hasVoted := s.votes[id][voterID]
	if err := checkVote(n, voterID, hasVoted, p, now); err != nil {
		return nil, err
	}
	voter, ok := s.users[voterID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	sender := s.users[n.SenderID]

	eff := buildVoteEffects(n, voter, sender, verdict, p, now)
	s.votes[id][voterID] = verdict
	eff.Apply(n, voter, sender, now)
	s.enroll(voterID)
	if eff.Settled && eff.Status == StatusValidated {
		s.enroll(sender.UserID)
	}
	if eff.Settled && eff.Status == StatusRejected {
		s.confiscated += eff.Confiscated
	}
	return eff, nil
}

func (s *memStore) Notification(ctx context.Context, id int64) (*Notification, error) {
	n, ok := s.notifications[id]
	if !ok {
		return nil, common.ErrNotificationNotFound
	}
	return n, nil
}

func (s *memStore) Recent(ctx context.Context, limit int) ([]*Notification, error) {
	var list []*Notification
	for id := s.nextID; id > 0 && len(list) < limit; id-- {
		if n, ok := s.notifications[id]; ok {
			list = append(list, n)
		}
	}
	return list, nil
}

func (s *memStore) CountEscrowMismatches(ctx context.Context) (int, error) {
	count := 0
	for userID, u := range s.users {
		var held int64
		for _, n := range s.notifications {
			if n.SenderID == userID && n.Status == StatusPending {
				held += n.DepositHeld
			}
		}
		if held != u.EscrowAtRisk {
			count++
		}
	}
	return count, nil
}

type memSettings struct {
	settings admin.Settings
}

func (s *memSettings) Settings(ctx context.Context) (*admin.Settings, error) {
	return &s.settings, nil
}

func testConfig() *config.Config {
	return &config.Config{
		BoardValidationThreshold: 5,
		BoardRejectionThreshold:  3,
		BoardBanAfterRejections:  3,
		BoardCooldown:            1 * time.Hour,
		BoardLifetime:            168 * time.Hour,
		BoardBanDuration:         72 * time.Hour,
	}
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	settings := &memSettings{settings: admin.Settings{
		DepositRequirement: 100,
		Thresholds:         ranks.Thresholds{Silver: 100, Gold: 500, Platinum: 2000},
	}}
	return NewService(store, settings, testConfig(), signals.New()), store
}

func validateUntilSettled(t *testing.T, svc *Service, store *memStore, id int64, now time.Time) *VoteEffects {
	t.Helper()
	voterBase := int64(9000)
	for i := 0; i < 5; i++ {
		voterID := voterBase + int64(i)
		if _, ok := store.users[voterID]; !ok {
			store.addUser(voterID, 0)
		}
		eff, err := svc.Validate(context.Background(), voterID, id, now)
		require.NoError(t, err)
		if eff.Settled {
			return eff
		}
	}
	t.Fatal("порог валидации не достигнут")
	return nil
}

func rejectUntilSettled(t *testing.T, svc *Service, store *memStore, id int64, now time.Time) *VoteEffects {
	t.Helper()
	voterBase := int64(8000)
	for i := 0; i < 3; i++ {
		voterID := voterBase + int64(i)
		if _, ok := store.users[voterID]; !ok {
			store.addUser(voterID, 0)
		}
		eff, err := svc.Reject(context.Background(), voterID, id, now)
		require.NoError(t, err)
		if eff.Settled {
			return eff
		}
	}
	t.Fatal("порог отклонения не достигнут")
	return nil
}

func TestSubmitHoldsDepositAndRefundsSurplus(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	sender := store.addUser(1, 500)

	n, err := svc.Submit(ctx, 1, "продам гараж", "барахолка", 150, now)
	require.NoError(t, err)

	// Удерживается ровно залог, излишек возвращается сразу
	require.Equal(t, int64(100), n.DepositHeld)
	require.Equal(t, int64(400), sender.Wallet)
	require.Equal(t, int64(100), sender.EscrowAtRisk)
	require.Equal(t, StatusPending, n.Status)
	require.Equal(t, int64(1), sender.NotificationsSent)

	mismatches, err := svc.AuditEscrow(ctx)
	require.NoError(t, err)
	require.Zero(t, mismatches)
}

func TestSubmitPreconditions(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	t.Run("пустой текст", func(t *testing.T) {
		store.addUser(10, 500)
		_, err := svc.Submit(ctx, 10, "   ", "новости", 100, now)
		require.ErrorIs(t, err, common.ErrEmptyMessage)
	})

	t.Run("неизвестная категория", func(t *testing.T) {
		store.addUser(11, 500)
		_, err := svc.Submit(ctx, 11, "текст", "флейм", 100, now)
		require.ErrorIs(t, err, common.ErrUnknownCategory)
	})

	t.Run("забанен", func(t *testing.T) {
		u := store.addUser(12, 500)
		u.IsBanned = true
		_, err := svc.Submit(ctx, 12, "текст", "новости", 100, now)
		require.ErrorIs(t, err, common.ErrBanned)
	})

	t.Run("кулдаун", func(t *testing.T) {
		store.addUser(13, 500)
		_, err := svc.Submit(ctx, 13, "первое", "новости", 100, now)
		require.NoError(t, err)
		_, err = svc.Submit(ctx, 13, "второе", "новости", 100, now.Add(30*time.Minute))
		require.ErrorIs(t, err, common.ErrCooldownActive)

		// После кулдауна подача снова доступна
		_, err = svc.Submit(ctx, 13, "второе", "новости", 100, now.Add(61*time.Minute))
		require.NoError(t, err)
	})

	t.Run("сумма меньше залога", func(t *testing.T) {
		store.addUser(14, 500)
		_, err := svc.Submit(ctx, 14, "текст", "новости", 50, now)
		require.ErrorIs(t, err, common.ErrInsufficientDeposit)
	})

	t.Run("кошелька не хватает", func(t *testing.T) {
		store.addUser(15, 80)
		_, err := svc.Submit(ctx, 15, "текст", "новости", 100, now)
		require.ErrorIs(t, err, common.ErrInsufficientDeposit)
	})
}

func TestValidationSettlement(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	sender := store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "субботник в 10:00", "события", 100, now)
	require.NoError(t, err)

	eff := validateUntilSettled(t, svc, store, n.ID, now)

	require.Equal(t, StatusValidated, eff.Status)
	require.Equal(t, 5, eff.ValidationCount)

	// Бронзовая награда: 5 кредитов, очки отправителя 2×награда
	require.Equal(t, int64(5), eff.Reward)
	require.Equal(t, int64(100), eff.DepositReturned)
	require.Equal(t, int64(500), sender.Wallet)
	require.Equal(t, int64(5), sender.Spendable)
	require.Equal(t, int64(10), sender.Points)
	require.Zero(t, sender.EscrowAtRisk)

	// Каждый голосовавший «за» получил +1 очко
	require.Equal(t, int64(1), store.users[9000].Points)
	require.Equal(t, int64(1), store.users[9000].NotificationsValidated)

	// Отправитель и все голосовавшие зачислены в таблицу лидеров
	require.Contains(t, store.leaderboard, int64(1))
	require.Contains(t, store.leaderboard, int64(9000))

	mismatches, err := svc.AuditEscrow(ctx)
	require.NoError(t, err)
	require.Zero(t, mismatches)
}

func TestRewardUsesSenderTierAtSettlement(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	sender := store.addUser(1, 500)
	sender.Points = 600
	sender.Tier = ranks.TierGold

	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	eff := validateUntilSettled(t, svc, store, n.ID, now)

	// Золотой уровень: награда 12, очки +24
	require.Equal(t, int64(12), eff.Reward)
	require.Equal(t, int64(624), sender.Points)
	require.Equal(t, int64(12), sender.Spendable)
}

func TestRejectionConfiscatesAndBans(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	sender := store.addUser(1, 1000)

	// Три отклонённых подряд уведомления — бан на третьем
	for i := 0; i < 3; i++ {
		submitAt := now.Add(time.Duration(i+1) * 2 * time.Hour)
		n, err := svc.Submit(ctx, 1, "спам", "прочее", 100, submitAt)
		require.NoError(t, err)

		eff := rejectUntilSettled(t, svc, store, n.ID, submitAt)
		require.Equal(t, StatusRejected, eff.Status)
		require.Equal(t, int64(100), eff.Confiscated)

		require.Equal(t, i+1, sender.ConsecutiveRejections)
		if i < 2 {
			require.False(t, sender.IsBanned)
		}
	}

	// Бан выдан, конфискат в казне, в кошелёк ничего не вернулось
	require.True(t, sender.IsBanned)
	require.NotNil(t, sender.BanExpiresAt)
	require.Equal(t, int64(700), sender.Wallet)
	require.Equal(t, int64(300), store.confiscated)
	require.Zero(t, sender.EscrowAtRisk)

	// Очки за отклонение не теряются
	require.Zero(t, sender.Points)

	mismatches, err := svc.AuditEscrow(ctx)
	require.NoError(t, err)
	require.Zero(t, mismatches)
}

func TestBanBlocksSubmitEvenAfterExpiry(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	u := store.addUser(1, 500)
	u.IsBanned = true
	expired := now.Add(-time.Hour)
	u.BanExpiresAt = &expired

	// Истечение срока само по себе бан не снимает — нужен явный разбан
	_, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.ErrorIs(t, err, common.ErrBanned)

	u.IsBanned = false
	u.BanExpiresAt = nil
	_, err = svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)
}

func TestBannedUserCanStillVote(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	banned := store.addUser(2, 0)
	banned.IsBanned = true

	// Бан блокирует подачу, но не голосование
	eff, err := svc.Validate(ctx, 2, n.ID, now)
	require.NoError(t, err)
	require.Equal(t, 1, eff.ValidationCount)
}

func TestVotePreconditions(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	store.addUser(2, 0)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	t.Run("уведомление не найдено", func(t *testing.T) {
		_, err := svc.Validate(ctx, 2, 999, now)
		require.ErrorIs(t, err, common.ErrNotificationNotFound)
	})

	t.Run("самоголосование", func(t *testing.T) {
		_, err := svc.Validate(ctx, 1, n.ID, now)
		require.ErrorIs(t, err, common.ErrSelfVote)
	})

	t.Run("повторный голос", func(t *testing.T) {
		_, err := svc.Validate(ctx, 2, n.ID, now)
		require.NoError(t, err)
		_, err = svc.Reject(ctx, 2, n.ID, now)
		require.ErrorIs(t, err, common.ErrAlreadyVoted)
	})

	t.Run("срок истёк", func(t *testing.T) {
		store.addUser(3, 0)
		_, err := svc.Validate(ctx, 3, n.ID, now.Add(169*time.Hour))
		require.ErrorIs(t, err, common.ErrNotificationExpired)
	})
}

func TestSettlementHappensExactlyOnce(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	validateUntilSettled(t, svc, store, n.ID, now)

	// Голос после расчёта — ошибка, состояние не меняется
	store.addUser(50, 0)
	_, err = svc.Validate(ctx, 50, n.ID, now)
	require.ErrorIs(t, err, common.ErrAlreadySettled)

	require.Equal(t, StatusValidated, n.Status)
	require.Equal(t, 5, n.ValidationCount)
	require.Equal(t, int64(500), store.users[1].Wallet)
}

func TestMixedVotesSettleOnFirstThreshold(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	// 2 отклонения не решают исход
	for i := int64(0); i < 2; i++ {
		store.addUser(100+i, 0)
		eff, err := svc.Reject(ctx, 100+i, n.ID, now)
		require.NoError(t, err)
		require.False(t, eff.Settled)
	}

	// 5 подтверждений добивают до валидации
	eff := validateUntilSettled(t, svc, store, n.ID, now)
	require.Equal(t, StatusValidated, eff.Status)
	require.Equal(t, 5, eff.ValidationCount)
	require.Equal(t, 2, eff.RejectionCount)
}

func TestVoterTierPromotion(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	// Голосующему не хватает одного очка до серебра
	voter := store.addUser(2, 0)
	voter.Points = 99

	eff, err := svc.Validate(ctx, 2, n.ID, now)
	require.NoError(t, err)
	require.True(t, eff.Voter.TierChanged)
	require.Equal(t, ranks.TierBronze, eff.Voter.TierBefore)
	require.Equal(t, ranks.TierSilver, eff.Voter.Tier)
	require.Equal(t, ranks.TierSilver, voter.Tier)
}

func TestDetailsReportsVotingWindow(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	got, open, err := svc.Details(ctx, n.ID, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, open)
	require.Equal(t, n.ID, got.ID)

	// Просроченное, но нерассчитанное уведомление: статус pending, окно закрыто
	_, open, err = svc.Details(ctx, n.ID, now.Add(200*time.Hour))
	require.NoError(t, err)
	require.False(t, open)
	require.Equal(t, StatusPending, got.Status)
}

func TestLeaderboardAppendOnlyOrder(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	now := time.Now()

	store.addUser(1, 500)
	n, err := svc.Submit(ctx, 1, "текст", "новости", 100, now)
	require.NoError(t, err)

	store.addUser(2, 0)
	store.addUser(3, 0)

	_, err = svc.Validate(ctx, 2, n.ID, now)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, 3, n.ID, now)
	require.NoError(t, err)

	// Порядок зачисления сохраняется, повторное зачисление не дублирует
	require.Equal(t, []int64{2, 3}, store.leaderboard)

	_, err = svc.Validate(ctx, 3, n.ID, now)
	require.ErrorIs(t, err, common.ErrAlreadyVoted)
	require.Equal(t, []int64{2, 3}, store.leaderboard)
}

// Package board — engine.go: чистые правила доски.
// Здесь нет ни БД, ни телеграма: функции принимают загруженное состояние
// и возвращают полный набор эффектов. Хранилища (PostgreSQL и фейк в тестах)
// применяют эффекты атомарно, не принимая собственных решений.
package board

import (
	"time"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/users"
)

// Params — параметры правил на момент вызова.
// Пороги уровней приходят из board_settings (меняются владельцем),
// остальное — из статичного конфига.
type Params struct {
	ValidationThreshold int
	RejectionThreshold  int
	BanAfterRejections  int
	Cooldown            time.Duration
	Lifetime            time.Duration
	BanDuration         time.Duration
	Thresholds          ranks.Thresholds
}

// SubmitEffects — результат успешной проверки подачи.
type SubmitEffects struct {
	Deposit int64 // Удерживается ровно требуемый залог
	Surplus int64 // Излишек сверх залога, возвращается сразу
}

// checkSubmit проверяет предусловия подачи в фиксированном порядке:
// бан, кулдаун, достаточность приложенной суммы. Первый провал — ошибка,
// состояние не меняется.
func checkSubmit(sender *users.User, requirement, payment int64, p Params, now time.Time) (*SubmitEffects, error) {
	if sender.IsBanned {
		return nil, common.ErrBanned
	}
	if !sender.CooldownOver(now, p.Cooldown) {
		return nil, common.ErrCooldownActive
	}
	if payment < requirement {
		return nil, common.ErrInsufficientDeposit
	}
	// Приложенная сумма списывается с кошелька — её должно хватать целиком
	if sender.Wallet < payment {
		return nil, common.ErrInsufficientDeposit
	}
	return &SubmitEffects{Deposit: requirement, Surplus: payment - requirement}, nil
}

// checkVote проверяет предусловия голоса в фиксированном порядке:
// окно жизни, завершённость, повторный голос, самоголосование.
// Голоса после истечения срока или после расчёта отклоняются ошибкой,
// а не игнорируются.
func checkVote(n *Notification, voterID int64, hasVoted bool, p Params, now time.Time) error {
	if !n.WithinLifetime(now, p.Lifetime) {
		return common.ErrNotificationExpired
	}
	if n.Terminal() {
		return common.ErrAlreadySettled
	}
	if hasVoted {
		return common.ErrAlreadyVoted
	}
	if voterID == n.SenderID {
		return common.ErrSelfVote
	}
	return nil
}

// UserEffects — абсолютные значения полей пользователя после применения шага.
// Абсолютные (а не дельты), потому что вычисляются под блокировкой строки:
// применяющая сторона просто записывает их.
type UserEffects struct {
	UserID                 int64
	Points                 int64
	Tier                   ranks.Tier
	TierBefore             ranks.Tier
	TierChanged            bool
	NotificationsValidated int64
	ConsecutiveRejections  int
	Wallet                 int64
	Spendable              int64
	EscrowAtRisk           int64
	BanIssued              bool
	BanExpiresAt           time.Time
}

// VoteEffects — полный набор последствий одного голоса.
// Если голос пересёк порог, расчёт входит в тот же атомарный шаг:
// либо применяется всё, либо ничего.
type VoteEffects struct {
	NotificationID  int64
	Verdict         Verdict
	ValidationCount int
	RejectionCount  int
	Status          Status

	// Голосующий: при validate получает +1 очко и пересчёт уровня,
	// при reject — только зачисление в таблицу лидеров.
	Voter *UserEffects

	// Расчёт (nil, если порог не достигнут)
	Settled         bool
	Reward          int64 // Награда по уровню ОТПРАВИТЕЛЯ на момент расчёта
	DepositReturned int64
	Confiscated     int64
	Sender          *UserEffects
}

// buildVoteEffects вычисляет эффекты голоса. Предусловия уже проверены
// checkVote; здесь ошибок не бывает.
func buildVoteEffects(n *Notification, voter, sender *users.User, verdict Verdict, p Params, now time.Time) *VoteEffects {
	eff := &VoteEffects{
		NotificationID:  n.ID,
		Verdict:         verdict,
		ValidationCount: n.ValidationCount,
		RejectionCount:  n.RejectionCount,
		Status:          n.Status,
	}

	switch verdict {
	case VerdictValidate:
		eff.ValidationCount++

		points := voter.Points + 1
		tier := ranks.TierFor(points, p.Thresholds)
		eff.Voter = &UserEffects{
			UserID:                 voter.UserID,
			Points:                 points,
			Tier:                   tier,
			TierBefore:             voter.Tier,
			TierChanged:            tier != voter.Tier,
			NotificationsValidated: voter.NotificationsValidated + 1,
			ConsecutiveRejections:  voter.ConsecutiveRejections,
			Wallet:                 voter.Wallet,
			Spendable:              voter.Spendable,
			EscrowAtRisk:           voter.EscrowAtRisk,
		}

		if eff.ValidationCount >= p.ValidationThreshold {
			eff.Settled = true
			eff.Status = StatusValidated

			// Награда по текущему уровню отправителя; очки — 2×награда
			reward := ranks.RewardFor(sender.Tier)
			senderPoints := sender.Points + 2*reward
			senderTier := ranks.TierFor(senderPoints, p.Thresholds)

			eff.Reward = reward
			eff.DepositReturned = n.DepositHeld
			eff.Sender = &UserEffects{
				UserID:                 sender.UserID,
				Points:                 senderPoints,
				Tier:                   senderTier,
				TierBefore:             sender.Tier,
				TierChanged:            senderTier != sender.Tier,
				NotificationsValidated: sender.NotificationsValidated,
				ConsecutiveRejections:  sender.ConsecutiveRejections,
				Wallet:                 sender.Wallet + n.DepositHeld,
				Spendable:              sender.Spendable + reward,
				EscrowAtRisk:           sender.EscrowAtRisk - n.DepositHeld,
			}
		}

	case VerdictReject:
		eff.RejectionCount++

		if eff.RejectionCount >= p.RejectionThreshold {
			eff.Settled = true
			eff.Status = StatusRejected

			rejections := sender.ConsecutiveRejections + 1
			eff.Confiscated = n.DepositHeld
			eff.Sender = &UserEffects{
				UserID:                 sender.UserID,
				Points:                 sender.Points,
				Tier:                   sender.Tier,
				TierBefore:             sender.Tier,
				NotificationsValidated: sender.NotificationsValidated,
				ConsecutiveRejections:  rejections,
				Wallet:                 sender.Wallet, // залог НЕ возвращается и никому не начисляется
				Spendable:              sender.Spendable,
				EscrowAtRisk:           sender.EscrowAtRisk - n.DepositHeld,
			}
			if rejections >= p.BanAfterRejections {
				eff.Sender.BanIssued = true
				eff.Sender.BanExpiresAt = now.Add(p.BanDuration)
			}
		}
	}

	return eff
}

// Apply переносит эффекты на загруженные структуры.
// Используется in-memory хранилищем; PostgreSQL-репозиторий записывает
// те же значения через UPDATE.
func (e *VoteEffects) Apply(n *Notification, voter, sender *users.User, now time.Time) {
	n.ValidationCount = e.ValidationCount
	n.RejectionCount = e.RejectionCount
	n.Status = e.Status
	if e.Settled {
		settledAt := now
		n.SettledAt = &settledAt
	}
	if e.Voter != nil {
		e.Voter.applyTo(voter)
	}
	if e.Sender != nil {
		e.Sender.applyTo(sender)
	}
}

func (ue *UserEffects) applyTo(u *users.User) {
	u.Points = ue.Points
	u.Tier = ue.Tier
	u.NotificationsValidated = ue.NotificationsValidated
	u.ConsecutiveRejections = ue.ConsecutiveRejections
	u.Wallet = ue.Wallet
	u.Spendable = ue.Spendable
	u.EscrowAtRisk = ue.EscrowAtRisk
	if ue.BanIssued {
		u.IsBanned = true
		expires := ue.BanExpiresAt
		u.BanExpiresAt = &expires
	}
}

// Package board — service.go координирует подачу, голосование и расчёт.
// Сервис собирает параметры правил, вызывает атомарные операции хранилища
// и эмитит сигналы по результатам.
package board

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/config"
	"serotonyl.ru/board-bot/internal/features/admin"
	"serotonyl.ru/board-bot/internal/signals"
)

// SettingsSource отдаёт изменяемые настройки доски (залог, пороги уровней).
// Реализуется admin.Repository.
type SettingsSource interface {
	Settings(ctx context.Context) (*admin.Settings, error)
}

// Store — атомарные операции хранилища доски.
// Каждая операция выполняется как один неделимый шаг: проверки предусловий
// и применение эффектов происходят под блокировками затронутых строк,
// поэтому два одновременных голоса по одному уведомлению сериализуются
// и расчёт не может сработать дважды.
type Store interface {
	// Submit проверяет предусловия (checkSubmit) под блокировкой строки
	// отправителя и атомарно создаёт уведомление, удерживает залог
	// и ставит кулдаун.
	Submit(ctx context.Context, senderID int64, message string, category Category, payment int64, requirement int64, p Params, now time.Time) (*Notification, *SubmitEffects, error)

	// CastVote проверяет предусловия (checkVote) под блокировкой строки
	// уведомления и атомарно применяет эффекты голоса, включая расчёт.
	CastVote(ctx context.Context, id, voterID int64, verdict Verdict, p Params, now time.Time) (*VoteEffects, error)

	// Notification возвращает уведомление по id (common.ErrNotificationNotFound).
	Notification(ctx context.Context, id int64) (*Notification, error)

	// Recent возвращает последние уведомления (для отображения доски).
	Recent(ctx context.Context, limit int) ([]*Notification, error)

	// CountEscrowMismatches возвращает число пользователей, у которых
	// escrow_at_risk разошёлся с суммой залогов висящих уведомлений.
	CountEscrowMismatches(ctx context.Context) (int, error)
}

// Service управляет доской уведомлений.
type Service struct {
	store    Store
	settings SettingsSource
	cfg      *config.Config
	emitter  *signals.Emitter
}

// NewService создаёт сервис доски.
func NewService(store Store, settings SettingsSource, cfg *config.Config, emitter *signals.Emitter) *Service {
	return &Service{store: store, settings: settings, cfg: cfg, emitter: emitter}
}

// params собирает параметры правил: пороги уровней — из настроек,
// остальное — из конфига.
func (s *Service) params(st *admin.Settings) Params {
	return Params{
		ValidationThreshold: s.cfg.BoardValidationThreshold,
		RejectionThreshold:  s.cfg.BoardRejectionThreshold,
		BanAfterRejections:  s.cfg.BoardBanAfterRejections,
		Cooldown:            s.cfg.BoardCooldown,
		Lifetime:            s.cfg.BoardLifetime,
		BanDuration:         s.cfg.BoardBanDuration,
		Thresholds:          st.Thresholds,
	}
}

// Submit подаёт уведомление с приложенной суммой payment.
// Предусловия по порядку: не забанен, кулдаун прошёл, суммы хватает на залог.
// Излишек сверх залога возвращается сразу; удерживается ровно залог.
func (s *Service) Submit(ctx context.Context, senderID int64, message, category string, payment int64, now time.Time) (*Notification, error) {
	if strings.TrimSpace(message) == "" {
		return nil, common.ErrEmptyMessage
	}
	cat, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}
	if payment <= 0 {
		return nil, common.ErrInvalidAmount
	}

	st, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, err
	}

	n, eff, err := s.store.Submit(ctx, senderID, message, cat, payment, st.DepositRequirement, s.params(st), now)
	if err != nil {
		return nil, err
	}

	s.emitter.SubmissionRecorded(n.ID, senderID, eff.Deposit, string(n.Category))
	log.WithFields(log.Fields{
		"notification_id": n.ID,
		"sender_id":       senderID,
		"deposit":         eff.Deposit,
		"surplus":         eff.Surplus,
	}).Info("Уведомление подано")

	return n, nil
}

// Validate — голос-подтверждение по уведомлению.
func (s *Service) Validate(ctx context.Context, voterID, id int64, now time.Time) (*VoteEffects, error) {
	return s.vote(ctx, voterID, id, VerdictValidate, now)
}

// Reject — голос-отклонение по уведомлению.
func (s *Service) Reject(ctx context.Context, voterID, id int64, now time.Time) (*VoteEffects, error) {
	return s.vote(ctx, voterID, id, VerdictReject, now)
}

func (s *Service) vote(ctx context.Context, voterID, id int64, verdict Verdict, now time.Time) (*VoteEffects, error) {
	st, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, err
	}

	eff, err := s.store.CastVote(ctx, id, voterID, verdict, s.params(st), now)
	if err != nil {
		return nil, err
	}

	s.emitSignals(eff, voterID, now)
	return eff, nil
}

// emitSignals выдаёт сигналы по применённым эффектам.
// Голос и расчёт уже зафиксированы атомарно — сигналы только наблюдение.
func (s *Service) emitSignals(eff *VoteEffects, voterID int64, now time.Time) {
	s.emitter.VoteRecorded(eff.NotificationID, voterID, string(eff.Verdict))

	if eff.Voter != nil && eff.Voter.TierChanged {
		s.emitter.TierChanged(eff.Voter.UserID, string(eff.Voter.TierBefore), string(eff.Voter.Tier))
	}

	if !eff.Settled {
		return
	}

	sender := eff.Sender
	switch eff.Status {
	case StatusValidated:
		s.emitter.RewardIssued(eff.NotificationID, sender.UserID, eff.Reward, string(sender.Tier))
		s.emitter.DepositReturned(eff.NotificationID, sender.UserID, eff.DepositReturned)
		if sender.TierChanged {
			s.emitter.TierChanged(sender.UserID, string(sender.TierBefore), string(sender.Tier))
		}
	case StatusRejected:
		s.emitter.DepositConfiscated(eff.NotificationID, sender.UserID, eff.Confiscated)
		if sender.BanIssued {
			s.emitter.BanIssued(sender.UserID, common.FormatDateTime(sender.BanExpiresAt))
		}
	}
}

// Details возвращает уведомление и производный флаг «окно голосования открыто».
func (s *Service) Details(ctx context.Context, id int64, now time.Time) (*Notification, bool, error) {
	n, err := s.store.Notification(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return n, n.WithinLifetime(now, s.cfg.BoardLifetime), nil
}

// Recent возвращает последние уведомления для отображения доски.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Notification, error) {
	return s.store.Recent(ctx, limit)
}

// AuditEscrow возвращает число пользователей с расхождением эскроу.
// Используется фоновым аудитом; ничего не мутирует.
func (s *Service) AuditEscrow(ctx context.Context) (int, error) {
	return s.store.CountEscrowMismatches(ctx)
}

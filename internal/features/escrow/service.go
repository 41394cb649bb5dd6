// Package escrow — service.go содержит бизнес-логику казны и леджера.
package escrow

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/signals"
)

// Store — операции хранилища, нужные сервису казны.
type Store interface {
	SystemFunds(ctx context.Context) (*SystemFunds, error)
	DepositOperating(ctx context.Context, amount int64) (int64, error)
	WithdrawOperating(ctx context.Context, amount int64) (int64, error)
	Grant(ctx context.Context, userID, amount int64) error
	History(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error)
}

// Service управляет казной и леджером.
type Service struct {
	store   Store
	emitter *signals.Emitter
}

// NewService создаёт сервис казны.
func NewService(store Store, emitter *signals.Emitter) *Service {
	return &Service{store: store, emitter: emitter}
}

// Funds возвращает состояние казны.
func (s *Service) Funds(ctx context.Context) (*SystemFunds, error) {
	return s.store.SystemFunds(ctx)
}

// Deposit вносит операционные средства (операция владельца).
func (s *Service) Deposit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	balance, err := s.store.DepositOperating(ctx, amount)
	if err != nil {
		return err
	}
	s.emitter.OperatingFundsMoved("deposit", amount, balance)
	return nil
}

// Withdraw выводит операционные средства (операция владельца).
// Вывод сверх остатка завершается common.ErrInsufficientFunds.
func (s *Service) Withdraw(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	balance, err := s.store.WithdrawOperating(ctx, amount)
	if err != nil {
		return err
	}
	s.emitter.OperatingFundsMoved("withdraw", amount, balance)
	return nil
}

// Grant выдаёт монеты участнику (операция владельца).
func (s *Service) Grant(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.store.Grant(ctx, userID, amount); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
	}).Info("Монеты выданы владельцем")
	return nil
}

// FormatHistory возвращает форматированную историю движений средств.
// Последние 10 записей леджера пользователя.
func (s *Service) FormatHistory(ctx context.Context, userID int64) (string, error) {
	entries, err := s.store.History(ctx, userID, 10)
	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return "📋 У вас пока нет движений средств", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d операций:\n\n", len(entries)))
	for i, e := range entries {
		sign := "+"
		switch e.EntryType {
		case EntryDepositStake, EntryTicketPurchase, EntryDepositConfiscate:
			sign = "-"
		}
		sb.WriteString(fmt.Sprintf("%d. %s | %s%d | %s\n",
			i+1,
			common.FormatDateTime(e.CreatedAt),
			sign,
			e.Amount,
			e.Description,
		))
	}
	return sb.String(), nil
}

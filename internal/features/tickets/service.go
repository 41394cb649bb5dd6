// Package tickets — service.go: бизнес-логика покупки билетов.
package tickets

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/signals"
)

// Store — операции хранилища билетов.
type Store interface {
	// Purchase атомарно списывает кредиты и создаёт запись о покупке.
	Purchase(ctx context.Context, userID int64, ticketType TicketType, price int64) (*Purchase, error)

	// History возвращает последние покупки пользователя.
	History(ctx context.Context, userID int64, limit int) ([]*Purchase, error)
}

// Service управляет покупкой билетов.
type Service struct {
	store   Store
	emitter *signals.Emitter
}

// NewService создаёт сервис билетов.
func NewService(store Store, emitter *signals.Emitter) *Service {
	return &Service{store: store, emitter: emitter}
}

// Purchase покупает билет указанного типа за кредиты.
// Цена берётся из фиксированного прайса на момент покупки.
func (s *Service) Purchase(ctx context.Context, userID int64, rawType string) (*Purchase, error) {
	ticketType, err := ParseTicketType(rawType)
	if err != nil {
		return nil, err
	}
	price, err := PriceFor(ticketType)
	if err != nil {
		return nil, err
	}

	p, err := s.store.Purchase(ctx, userID, ticketType, price)
	if err != nil {
		return nil, err
	}

	s.emitter.TicketPurchased(userID, string(ticketType), price)
	log.WithFields(log.Fields{
		"user_id": userID,
		"type":    ticketType,
		"price":   price,
	}).Info("Билет куплен")

	return p, nil
}

// History возвращает последние покупки пользователя.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Purchase, error) {
	return s.store.History(ctx, userID, limit)
}

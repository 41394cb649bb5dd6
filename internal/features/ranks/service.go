// Package ranks — service.go содержит логику таблицы лидеров.
// Вычисление уровня — чистая функция в tiers.go; зачисление в таблицу
// происходит атомарно внутри транзакций голосования (features/board),
// здесь — только чтение состава.
package ranks

import (
	"context"
)

// Service предоставляет доступ к таблице лидеров.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис таблицы лидеров.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Roster возвращает полный состав таблицы лидеров в порядке зачисления.
func (s *Service) Roster(ctx context.Context) ([]*LeaderboardEntry, error) {
	return s.repo.Roster(ctx)
}

// Size возвращает число участников таблицы.
func (s *Service) Size(ctx context.Context) (int, error) {
	return s.repo.Size(ctx)
}

// Package users — service.go содержит бизнес-логику реестра участников:
// ленивую регистрацию, запросы статистики и явный разбан.
package users

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/signals"
)

// Store — операции хранилища, нужные сервису участников.
// Реализуется *Repository (PostgreSQL) и фейком в тестах.
type Store interface {
	Ensure(ctx context.Context, userID int64, info UpdateInfo) error
	ByUserID(ctx context.Context, userID int64) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	ClearBan(ctx context.Context, userID int64) error
}

// Service управляет реестром участников.
type Service struct {
	store   Store
	emitter *signals.Emitter
}

// NewService создаёт сервис участников.
func NewService(store Store, emitter *signals.Emitter) *Service {
	return &Service{store: store, emitter: emitter}
}

// EnsureUser гарантирует, что пользователь есть в реестре.
// Вызывается при первом сообщении в чате — регистрация ленивая.
func (s *Service) EnsureUser(ctx context.Context, userID int64, username, firstName, lastName string) error {
	return s.store.Ensure(ctx, userID, UpdateInfo{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	})
}

// IsMember проверяет, зарегистрирован ли пользователь.
// Используется для валидации доступа к DM.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.store.Exists(ctx, userID)
}

// ByUserID возвращает участника по его Telegram user ID.
func (s *Service) ByUserID(ctx context.Context, userID int64) (*User, error) {
	return s.store.ByUserID(ctx, userID)
}

// ByUsername возвращает участника по @username (без @).
func (s *Service) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.store.ByUsername(ctx, username)
}

// Unban снимает бан по явному запросу самого пользователя.
// Предусловия: бан стоит и срок бана истёк. Автоматически бан НЕ снимается:
// кто не позвал разбан — остаётся помеченным забаненным и после истечения.
func (s *Service) Unban(ctx context.Context, userID int64, now time.Time) error {
	u, err := s.store.ByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsBanned {
		return common.ErrNotBanned
	}
	if !u.BanExpired(now) {
		return common.ErrBanNotExpired
	}

	if err := s.store.ClearBan(ctx, userID); err != nil {
		return err
	}

	s.emitter.BanLifted(userID)
	log.WithField("user_id", userID).Info("Бан снят по запросу пользователя")
	return nil
}

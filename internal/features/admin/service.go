// Package admin — service.go содержит логику аутентификации владельца
// и изменения настроек доски.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/config"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/signals"
)

// Store — операции хранилища, нужные сервису владельца.
type Store interface {
	Settings(ctx context.Context) (*Settings, error)
	UpdateRequirement(ctx context.Context, amount int64) error
	UpdateThresholds(ctx context.Context, t ranks.Thresholds) error
	CreateSession(ctx context.Context, session *Session) error
	GetActiveSession(ctx context.Context, userID int64) (*Session, error)
	DeactivateSession(ctx context.Context, userID int64) error
	LogAttempt(ctx context.Context, userID int64, success bool) error
	GetRecentAttempts(ctx context.Context, userID int64, period time.Duration) (int, error)
}

// Service управляет панелью владельца.
type Service struct {
	store   Store
	cfg     *config.Config
	emitter *signals.Emitter
}

// NewService создаёт сервис панели владельца.
func NewService(store Store, cfg *config.Config, emitter *signals.Emitter) *Service {
	return &Service{store: store, cfg: cfg, emitter: emitter}
}

// Settings возвращает текущие настройки доски.
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	return s.store.Settings(ctx)
}

// Authorize проверяет, что пользователь — владелец с активной сессией.
func (s *Service) Authorize(ctx context.Context, userID int64) error {
	if !s.cfg.IsOwner(userID) {
		return common.ErrNotOwner
	}
	if !s.HasActiveSession(ctx, userID) {
		return common.ErrSessionExpired
	}
	return nil
}

// VerifyPassword проверяет пароль владельца с использованием Argon2id.
// Включает защиту от brute-force: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	if !s.cfg.IsOwner(userID) {
		return common.ErrNotOwner
	}

	attempts, err := s.store.GetRecentAttempts(ctx, userID, 1*time.Hour)
	if err != nil {
		return err
	}
	if attempts >= 3 {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)

	if err := s.store.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Error("Ошибка записи попытки входа")
	}

	if !match {
		return common.ErrWrongPassword
	}

	// Создаём сессию (24 часа)
	token := generateSecureToken()
	session := &Session{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}

	return s.store.CreateSession(ctx, session)
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.store.GetActiveSession(ctx, userID)
	return err == nil && session != nil
}

// Logout деактивирует сессию.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.store.DeactivateSession(ctx, userID)
}

// SetDepositRequirement меняет размер залога. Только положительный.
func (s *Service) SetDepositRequirement(ctx context.Context, userID, amount int64) error {
	if err := s.Authorize(ctx, userID); err != nil {
		return err
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.store.UpdateRequirement(ctx, amount); err != nil {
		return err
	}
	s.emitter.RequirementChanged(amount)
	return nil
}

// SetThresholds меняет пороги уровней. Пороги должны строго возрастать.
func (s *Service) SetThresholds(ctx context.Context, userID int64, t ranks.Thresholds) error {
	if err := s.Authorize(ctx, userID); err != nil {
		return err
	}
	if t.Silver <= 0 || !t.Ascending() {
		return common.ErrThresholdsNotAscending
	}
	if err := s.store.UpdateThresholds(ctx, t); err != nil {
		return err
	}
	s.emitter.ThresholdsChanged(t.Silver, t.Gold, t.Platinum)
	return nil
}

// --- Криптографические утилиты ---

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует криптографически безопасный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

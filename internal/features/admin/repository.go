// Package admin — repository.go работает с таблицами board_settings,
// admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/board-bot/internal/features/ranks"
)

// Repository работает с таблицами панели владельца.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSettings создаёт строку настроек с начальными значениями из конфига,
// если её ещё нет. Существующая строка не перезаписывается.
func (r *Repository) EnsureSettings(ctx context.Context, defaults *Settings) error {
	query := `
		INSERT INTO board_settings (id, deposit_requirement, silver_threshold, gold_threshold, platinum_threshold)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		defaults.DepositRequirement,
		defaults.Thresholds.Silver, defaults.Thresholds.Gold, defaults.Thresholds.Platinum,
	)
	if err != nil {
		return fmt.Errorf("ошибка инициализации настроек: %w", err)
	}
	return nil
}

// Settings возвращает текущие настройки доски.
func (r *Repository) Settings(ctx context.Context) (*Settings, error) {
	query := `
		SELECT deposit_requirement, silver_threshold, gold_threshold, platinum_threshold, updated_at
		FROM board_settings WHERE id = 1
	`
	var s Settings
	err := r.db.QueryRow(ctx, query).Scan(
		&s.DepositRequirement,
		&s.Thresholds.Silver, &s.Thresholds.Gold, &s.Thresholds.Platinum,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("настройки доски не найдены: %w", err)
	}
	return &s, nil
}

// UpdateRequirement меняет размер залога.
func (r *Repository) UpdateRequirement(ctx context.Context, amount int64) error {
	query := `UPDATE board_settings SET deposit_requirement = $1, updated_at = NOW() WHERE id = 1`
	_, err := r.db.Exec(ctx, query, amount)
	if err != nil {
		return fmt.Errorf("ошибка изменения залога: %w", err)
	}
	return nil
}

// UpdateThresholds меняет пороги уровней.
// Строгое возрастание проверяет сервис до вызова.
func (r *Repository) UpdateThresholds(ctx context.Context, t ranks.Thresholds) error {
	query := `
		UPDATE board_settings
		SET silver_threshold = $1, gold_threshold = $2, platinum_threshold = $3, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.Exec(ctx, query, t.Silver, t.Gold, t.Platinum)
	if err != nil {
		return fmt.Errorf("ошибка изменения порогов: %w", err)
	}
	return nil
}

// CreateSession создаёт новую сессию владельца.
func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
	`
	_, err := r.db.Exec(ctx, query, session.UserID, session.SessionToken, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetActiveSession возвращает активную сессию пользователя.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64) (*Session, error) {
	query := `
		SELECT id, user_id, session_token, authenticated_at, expires_at, last_activity, is_active
		FROM admin_sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > NOW()
		ORDER BY authenticated_at DESC
		LIMIT 1
	`
	var s Session
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt,
		&s.ExpiresAt, &s.LastActivity, &s.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("активная сессия не найдена: %w", err)
	}
	return &s, nil
}

// DeactivateSession деактивирует сессию.
func (r *Repository) DeactivateSession(ctx context.Context, userID int64) error {
	query := `UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	query := `INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, userID, success)
	return err
}

// GetRecentAttempts возвращает количество неудачных попыток за указанный период.
func (r *Repository) GetRecentAttempts(ctx context.Context, userID int64, period time.Duration) (int, error) {
	since := time.Now().Add(-period)
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, userID, since).Scan(&count)
	return count, err
}

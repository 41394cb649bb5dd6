// Package users — repository.go отвечает за все операции с таблицей users в БД.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/board-bot/internal/common"
)

const userColumns = `id, user_id, username, first_name, last_name,
	       points, tier, notifications_sent, notifications_validated,
	       last_submission_at, consecutive_rejections, is_banned, ban_expires_at,
	       wallet, spendable, escrow_at_risk, created_at, updated_at`

// Repository работает с таблицей users.
type Repository struct {
	db *pgxpool.Pool
	// стартовый кошелёк нового участника
	startingWallet int64
}

// NewRepository создаёт репозиторий участников.
func NewRepository(db *pgxpool.Pool, startingWallet int64) *Repository {
	return &Repository{db: db, startingWallet: startingWallet}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.UserID, &u.Username, &u.FirstName, &u.LastName,
		&u.Points, &u.Tier, &u.NotificationsSent, &u.NotificationsValidated,
		&u.LastSubmissionAt, &u.ConsecutiveRejections, &u.IsBanned, &u.BanExpiresAt,
		&u.Wallet, &u.Spendable, &u.EscrowAtRisk, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Ensure гарантирует, что у пользователя есть запись.
// Новый участник получает стартовый кошелёк; у существующего обновляются
// только имя/username (репутация и балансы не трогаются).
func (r *Repository) Ensure(ctx context.Context, userID int64, info UpdateInfo) error {
	query := `
		INSERT INTO users (user_id, username, first_name, last_name, wallet)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		userID, info.Username, info.FirstName, info.LastName, r.startingWallet,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления участника: %w", err)
	}
	return nil
}

// ByUserID возвращает участника по Telegram user ID.
// Если не найден — common.ErrUserNotFound.
func (r *Repository) ByUserID(ctx context.Context, userID int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения участника (user_id=%d): %w", userID, err)
	}
	return u, nil
}

// ByUsername возвращает участника по @username (без @).
func (r *Repository) ByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения участника (username=%s): %w", username, err)
	}
	return u, nil
}

// ForUpdateTx читает строку пользователя под блокировкой FOR UPDATE
// внутри чужой транзакции. Используется транзакциями подачи и голосования
// (features/board): все поля пользователя меняются только под этой блокировкой.
func (r *Repository) ForUpdateTx(ctx context.Context, tx pgx.Tx, userID int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1 FOR UPDATE`
	u, err := scanUser(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки участника (user_id=%d): %w", userID, err)
	}
	return u, nil
}

// Exists проверяет, есть ли пользователь в базе.
func (r *Repository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}

// ClearBan снимает бан и обнуляет серию отклонений.
// Проверки предусловий (бан есть, срок истёк) делает сервис; здесь — под
// блокировкой строки перепроверяется, что бан всё ещё стоит.
func (r *Repository) ClearBan(ctx context.Context, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var banned bool
	err = tx.QueryRow(ctx,
		`SELECT is_banned FROM users WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&banned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("ошибка чтения участника: %w", err)
	}
	if !banned {
		return common.ErrNotBanned
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET is_banned = FALSE, ban_expires_at = NULL, consecutive_rejections = 0,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка снятия бана: %w", err)
	}

	return tx.Commit(ctx)
}

// Package ranks — repository.go выполняет операции с таблицей leaderboard.
package ranks

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей leaderboard.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий таблицы лидеров.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnrollTx зачисляет пользователя в таблицу лидеров внутри чужой транзакции.
// Вызывается из транзакций голосования, чтобы зачисление было атомарно
// с начислением очков. Уникальный индекс по user_id гарантирует
// «ровно один раз» — повторное зачисление тихо игнорируется.
func (r *Repository) EnrollTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO leaderboard (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка зачисления в таблицу лидеров: %w", err)
	}
	return nil
}

// Roster возвращает всех зачисленных в порядке зачисления.
func (r *Repository) Roster(ctx context.Context) ([]*LeaderboardEntry, error) {
	query := `
		SELECT id, user_id, enrolled_at
		FROM leaderboard
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы лидеров: %w", err)
	}
	defer rows.Close()

	var entries []*LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Size возвращает число зачисленных.
func (r *Repository) Size(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard`).Scan(&n)
	return n, err
}

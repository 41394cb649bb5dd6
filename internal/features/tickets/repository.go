// Package tickets — repository.go выполняет операции с таблицей ticket_purchases.
package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/features/escrow"
)

// Repository работает с покупками билетов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий билетов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Purchase атомарно списывает кредиты и создаёт запись о покупке.
// Строка пользователя блокируется FOR UPDATE; при нехватке кредитов —
// common.ErrInsufficientBalance без изменений состояния.
func (r *Repository) Purchase(ctx context.Context, userID int64, ticketType TicketType, price int64) (*Purchase, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var spendable int64
	err = tx.QueryRow(ctx,
		`SELECT spendable FROM users WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&spendable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения кредитов: %w", err)
	}
	if spendable < price {
		return nil, common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET spendable = spendable - $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, price)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания кредитов: %w", err)
	}

	p := &Purchase{UserID: userID, Type: ticketType, Price: price}
	err = tx.QueryRow(ctx, `
		INSERT INTO ticket_purchases (user_id, ticket_type, price)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, userID, ticketType, price).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания покупки: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger (user_id, amount, entry_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, price, escrow.EntryTicketPurchase,
		fmt.Sprintf("Покупка билета «%s»", ticketType.Title()))
	if err != nil {
		return nil, fmt.Errorf("ошибка записи леджера: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации покупки: %w", err)
	}
	return p, nil
}

// History возвращает последние покупки пользователя.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]*Purchase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, ticket_type, price, created_at
		FROM ticket_purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения покупок: %w", err)
	}
	defer rows.Close()

	var list []*Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.Type, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования покупки: %w", err)
		}
		list = append(list, &p)
	}
	return list, nil
}

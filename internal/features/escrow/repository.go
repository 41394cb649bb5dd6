// Package escrow — repository.go выполняет операции с таблицами ledger и system_funds.
// Все денежные операции выполняются в транзакциях БД для целостности данных.
package escrow

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/board-bot/internal/common"
)

// Repository предоставляет методы для работы с леджером и казной.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий эскроу.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SystemFunds возвращает текущее состояние казны.
func (r *Repository) SystemFunds(ctx context.Context) (*SystemFunds, error) {
	query := `SELECT operating, confiscated, updated_at FROM system_funds WHERE id = 1`
	var f SystemFunds
	err := r.db.QueryRow(ctx, query).Scan(&f.Operating, &f.Confiscated, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения казны: %w", err)
	}
	return &f, nil
}

// DepositOperating вносит операционные средства в казну.
func (r *Repository) DepositOperating(ctx context.Context, amount int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, `
		UPDATE system_funds
		SET operating = operating + $1, updated_at = NOW()
		WHERE id = 1
		RETURNING operating
	`, amount).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ошибка пополнения казны: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger (amount, entry_type, description)
		VALUES ($1, $2, $3)
	`, amount, EntryFundDeposit, "Взнос операционных средств")
	if err != nil {
		return 0, fmt.Errorf("ошибка записи леджера: %w", err)
	}

	return balance, tx.Commit(ctx)
}

// WithdrawOperating выводит операционные средства из казны.
// Вывод сверх остатка запрещён: строка казны блокируется FOR UPDATE,
// при нехватке — common.ErrInsufficientFunds без изменений состояния.
func (r *Repository) WithdrawOperating(ctx context.Context, amount int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var operating int64
	err = tx.QueryRow(ctx,
		`SELECT operating FROM system_funds WHERE id = 1 FOR UPDATE`,
	).Scan(&operating)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения казны: %w", err)
	}
	if operating < amount {
		return 0, common.ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx, `
		UPDATE system_funds
		SET operating = operating - $1, updated_at = NOW()
		WHERE id = 1
	`, amount)
	if err != nil {
		return 0, fmt.Errorf("ошибка вывода из казны: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger (amount, entry_type, description)
		VALUES ($1, $2, $3)
	`, amount, EntryFundWithdraw, "Вывод операционных средств")
	if err != nil {
		return 0, fmt.Errorf("ошибка записи леджера: %w", err)
	}

	return operating - amount, tx.Commit(ctx)
}

// Grant выдаёт монеты в кошелёк пользователя (операция владельца).
func (r *Repository) Grant(ctx context.Context, userID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE users
		SET wallet = wallet + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка начисления монет: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger (user_id, amount, entry_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, EntryOwnerGrant, fmt.Sprintf("Выдача %d монет владельцем", amount))
	if err != nil {
		return fmt.Errorf("ошибка записи леджера: %w", err)
	}

	return tx.Commit(ctx)
}

// History возвращает последние N записей леджера пользователя.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]*LedgerEntry, error) {
	query := `
		SELECT id, user_id, notification_id, amount, entry_type, description, created_at
		FROM ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения леджера: %w", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.NotificationID, &e.Amount, &e.EntryType, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи леджера: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// AppendTx пишет запись леджера внутри чужой транзакции.
// Используется транзакциями подачи и голосования (features/board),
// чтобы движение средств фиксировалось атомарно с самим событием.
func (r *Repository) AppendTx(ctx context.Context, tx pgx.Tx, e *LedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger (user_id, notification_id, amount, entry_type, description)
		VALUES ($1, $2, $3, $4, $5)
	`, e.UserID, e.NotificationID, e.Amount, e.EntryType, e.Description)
	if err != nil {
		return fmt.Errorf("ошибка записи леджера: %w", err)
	}
	return nil
}

// AddConfiscatedTx увеличивает конфискат казны внутри чужой транзакции.
func (r *Repository) AddConfiscatedTx(ctx context.Context, tx pgx.Tx, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE system_funds
		SET confiscated = confiscated + $1, updated_at = NOW()
		WHERE id = 1
	`, amount)
	if err != nil {
		return fmt.Errorf("ошибка зачисления конфиската: %w", err)
	}
	return nil
}

// Package board — repository.go выполняет операции с таблицами notifications
// и votes. Компонует Tx-помощники соседних репозиториев, чтобы голос, расчёт,
// леджер и таблица лидеров фиксировались одной транзакцией БД.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/features/escrow"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/users"
)

const notificationColumns = `id, sender_id, message, category, status,
	       validation_count, rejection_count, deposit_held, created_at, settled_at`

// Repository работает с таблицами доски.
type Repository struct {
	db     *pgxpool.Pool
	users  *users.Repository
	escrow *escrow.Repository
	ranks  *ranks.Repository
}

// NewRepository создаёт репозиторий доски.
func NewRepository(db *pgxpool.Pool, usersRepo *users.Repository, escrowRepo *escrow.Repository, ranksRepo *ranks.Repository) *Repository {
	return &Repository{db: db, users: usersRepo, escrow: escrowRepo, ranks: ranksRepo}
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.SenderID, &n.Message, &n.Category, &n.Status,
		&n.ValidationCount, &n.RejectionCount, &n.DepositHeld, &n.CreatedAt, &n.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Submit атомарно подаёт уведомление: под блокировкой строки отправителя
// перепроверяет предусловия, удерживает залог, ставит кулдаун и создаёт
// запись. Любая ошибка откатывает всё.
func (r *Repository) Submit(ctx context.Context, senderID int64, message string, category Category, payment int64, requirement int64, p Params, now time.Time) (*Notification, *SubmitEffects, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	sender, err := r.users.ForUpdateTx(ctx, tx, senderID)
	if err != nil {
		return nil, nil, err
	}

	eff, err := checkSubmit(sender, requirement, payment, p, now)
	if err != nil {
		return nil, nil, err
	}

	// Эффективно с кошелька уходит ровно залог: излишек возвращается сразу
	_, err = tx.Exec(ctx, `
		UPDATE users
		SET wallet = wallet - $2,
		    escrow_at_risk = escrow_at_risk + $2,
		    last_submission_at = $3,
		    notifications_sent = notifications_sent + 1,
		    updated_at = NOW()
		WHERE user_id = $1
	`, senderID, eff.Deposit, now)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка удержания залога: %w", err)
	}

	n := &Notification{
		SenderID:    senderID,
		Message:     message,
		Category:    category,
		Status:      StatusPending,
		DepositHeld: eff.Deposit,
		CreatedAt:   now,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO notifications (sender_id, message, category, status, deposit_held, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, n.SenderID, n.Message, n.Category, n.Status, n.DepositHeld, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка создания уведомления: %w", err)
	}

	if err := r.escrow.AppendTx(ctx, tx, &escrow.LedgerEntry{
		UserID:         &senderID,
		NotificationID: &n.ID,
		Amount:         eff.Deposit,
		EntryType:      escrow.EntryDepositStake,
		Description:    fmt.Sprintf("Залог за уведомление #%d", n.ID),
	}); err != nil {
		return nil, nil, err
	}
	if eff.Surplus > 0 {
		if err := r.escrow.AppendTx(ctx, tx, &escrow.LedgerEntry{
			UserID:         &senderID,
			NotificationID: &n.ID,
			Amount:         eff.Surplus,
			EntryType:      escrow.EntrySurplusRefund,
			Description:    fmt.Sprintf("Возврат излишка сверх залога за #%d", n.ID),
		}); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("ошибка фиксации подачи: %w", err)
	}
	return n, eff, nil
}

// CastVote атомарно применяет голос и, при пересечении порога, расчёт.
// Строка уведомления блокируется первой — все голоса по одному уведомлению
// сериализуются, и расчёт не может сработать дважды.
func (r *Repository) CastVote(ctx context.Context, id, voterID int64, verdict Verdict, p Params, now time.Time) (*VoteEffects, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := scanNotification(tx.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("ошибка чтения уведомления: %w", err)
	}

	var hasVoted bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM votes WHERE notification_id = $1 AND voter_id = $2)
	`, id, voterID).Scan(&hasVoted)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки голоса: %w", err)
	}

	if err := checkVote(n, voterID, hasVoted, p, now); err != nil {
		return nil, err
	}

	// Строки пользователей блокируем по возрастанию user_id,
	// чтобы встречные голоса не взаимоблокировались
	voter, sender, err := r.lockVoterAndSender(ctx, tx, voterID, n.SenderID)
	if err != nil {
		return nil, err
	}

	eff := buildVoteEffects(n, voter, sender, verdict, p, now)

	_, err = tx.Exec(ctx, `
		INSERT INTO votes (notification_id, voter_id, verdict, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, voterID, verdict, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи голоса: %w", err)
	}

	var settledAt *time.Time
	if eff.Settled {
		settledAt = &now
	}
	_, err = tx.Exec(ctx, `
		UPDATE notifications
		SET validation_count = $2, rejection_count = $3, status = $4, settled_at = $5
		WHERE id = $1
	`, id, eff.ValidationCount, eff.RejectionCount, eff.Status, settledAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления уведомления: %w", err)
	}

	if eff.Voter != nil {
		if err := r.applyUserEffectsTx(ctx, tx, eff.Voter); err != nil {
			return nil, err
		}
	}
	// Голосовавший зачисляется в таблицу лидеров при любом вердикте
	if err := r.ranks.EnrollTx(ctx, tx, voterID); err != nil {
		return nil, err
	}

	if eff.Settled {
		if err := r.applySettlementTx(ctx, tx, eff); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации голоса: %w", err)
	}
	return eff, nil
}

// lockVoterAndSender блокирует обе строки пользователей по возрастанию user_id.
func (r *Repository) lockVoterAndSender(ctx context.Context, tx pgx.Tx, voterID, senderID int64) (*users.User, *users.User, error) {
	first, second := voterID, senderID
	if first > second {
		first, second = second, first
	}
	a, err := r.users.ForUpdateTx(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := r.users.ForUpdateTx(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.UserID == voterID {
		return a, b, nil
	}
	return b, a, nil
}

// applyUserEffectsTx записывает абсолютные значения полей пользователя.
func (r *Repository) applyUserEffectsTx(ctx context.Context, tx pgx.Tx, ue *UserEffects) error {
	var banExpires *time.Time
	banned := ue.BanIssued
	if ue.BanIssued {
		expires := ue.BanExpiresAt
		banExpires = &expires
	}
	var err error
	if ue.BanIssued {
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET points = $2, tier = $3, notifications_validated = $4,
			    consecutive_rejections = $5, wallet = $6, spendable = $7,
			    escrow_at_risk = $8, is_banned = $9, ban_expires_at = $10,
			    updated_at = NOW()
			WHERE user_id = $1
		`, ue.UserID, ue.Points, ue.Tier, ue.NotificationsValidated,
			ue.ConsecutiveRejections, ue.Wallet, ue.Spendable,
			ue.EscrowAtRisk, banned, banExpires)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET points = $2, tier = $3, notifications_validated = $4,
			    consecutive_rejections = $5, wallet = $6, spendable = $7,
			    escrow_at_risk = $8, updated_at = NOW()
			WHERE user_id = $1
		`, ue.UserID, ue.Points, ue.Tier, ue.NotificationsValidated,
			ue.ConsecutiveRejections, ue.Wallet, ue.Spendable,
			ue.EscrowAtRisk)
	}
	if err != nil {
		return fmt.Errorf("ошибка применения эффектов пользователя: %w", err)
	}
	return nil
}

// applySettlementTx применяет эффекты расчёта: строку отправителя,
// леджер и казну.
func (r *Repository) applySettlementTx(ctx context.Context, tx pgx.Tx, eff *VoteEffects) error {
	if err := r.applyUserEffectsTx(ctx, tx, eff.Sender); err != nil {
		return err
	}

	senderID := eff.Sender.UserID
	switch eff.Status {
	case StatusValidated:
		// Очки отправителя изменились — он попадает в таблицу лидеров
		if err := r.ranks.EnrollTx(ctx, tx, senderID); err != nil {
			return err
		}
		if err := r.escrow.AppendTx(ctx, tx, &escrow.LedgerEntry{
			UserID:         &senderID,
			NotificationID: &eff.NotificationID,
			Amount:         eff.DepositReturned,
			EntryType:      escrow.EntryDepositReturn,
			Description:    fmt.Sprintf("Возврат залога за #%d", eff.NotificationID),
		}); err != nil {
			return err
		}
		if err := r.escrow.AppendTx(ctx, tx, &escrow.LedgerEntry{
			UserID:         &senderID,
			NotificationID: &eff.NotificationID,
			Amount:         eff.Reward,
			EntryType:      escrow.EntryReward,
			Description:    fmt.Sprintf("Награда за валидацию #%d", eff.NotificationID),
		}); err != nil {
			return err
		}

	case StatusRejected:
		if err := r.escrow.AppendTx(ctx, tx, &escrow.LedgerEntry{
			UserID:         &senderID,
			NotificationID: &eff.NotificationID,
			Amount:         eff.Confiscated,
			EntryType:      escrow.EntryDepositConfiscate,
			Description:    fmt.Sprintf("Конфискация залога за #%d", eff.NotificationID),
		}); err != nil {
			return err
		}
		if err := r.escrow.AddConfiscatedTx(ctx, tx, eff.Confiscated); err != nil {
			return err
		}
	}
	return nil
}

// Notification возвращает уведомление по id.
func (r *Repository) Notification(ctx context.Context, id int64) (*Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("ошибка чтения уведомления: %w", err)
	}
	return n, nil
}

// Recent возвращает последние уведомления (новые первыми).
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications ORDER BY id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения доски: %w", err)
	}
	defer rows.Close()

	var list []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования уведомления: %w", err)
		}
		list = append(list, n)
	}
	return list, nil
}

// CountEscrowMismatches возвращает число пользователей, у которых
// escrow_at_risk разошёлся с суммой залогов висящих уведомлений.
// При корректной работе всегда 0 — используется фоновым аудитом.
func (r *Repository) CountEscrowMismatches(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM (
			SELECT u.user_id
			FROM users u
			LEFT JOIN notifications n
			       ON n.sender_id = u.user_id AND n.status = 'pending'
			GROUP BY u.user_id, u.escrow_at_risk
			HAVING u.escrow_at_risk <> COALESCE(SUM(n.deposit_held), 0)
		) mismatches
	`
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка аудита эскроу: %w", err)
	}
	return count, nil
}

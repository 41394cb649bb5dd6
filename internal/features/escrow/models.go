// Package escrow ведёт денежный учёт доски: леджер движений монет/кредитов
// и единственную строку казны (операционные средства + конфискат).
// models.go описывает структуры леджера и казны.
package escrow

import "time"

// LedgerEntry — одна запись леджера.
// Каждое движение средств (залог, возврат, конфискация, награда, покупка,
// выдача владельцем) записывается сюда.
type LedgerEntry struct {
	ID             int64     `db:"id"`
	UserID         *int64    `db:"user_id"`         // nil для операций казны
	NotificationID *int64    `db:"notification_id"` // nil вне жизненного цикла уведомления
	Amount         int64     `db:"amount"`          // Всегда положительная
	EntryType      string    `db:"entry_type"`
	Description    string    `db:"description"`
	CreatedAt      time.Time `db:"created_at"`
}

// Допустимые типы записей леджера
const (
	EntryDepositStake      = "deposit_stake"      // Залог удержан при подаче
	EntrySurplusRefund     = "surplus_refund"     // Излишек сверх залога возвращён сразу
	EntryDepositReturn     = "deposit_return"     // Залог возвращён после валидации
	EntryDepositConfiscate = "deposit_confiscate" // Залог конфискован в казну
	EntryReward            = "reward"             // Награда кредитами за валидацию
	EntryTicketPurchase    = "ticket_purchase"    // Покупка билета за кредиты
	EntryOwnerGrant        = "owner_grant"        // Выдача монет владельцем
	EntryFundDeposit       = "fund_deposit"       // Взнос операционных средств
	EntryFundWithdraw      = "fund_withdraw"      // Вывод операционных средств
)

// SystemFunds — единственная строка казны.
// Operating пополняется/выводится владельцем; Confiscated — накопленный
// конфискат, пользователям не принадлежит и никому не начисляется.
type SystemFunds struct {
	Operating   int64     `db:"operating"`
	Confiscated int64     `db:"confiscated"`
	UpdatedAt   time.Time `db:"updated_at"`
}

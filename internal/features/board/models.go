// Package board реализует доску уведомлений: подачу с залогом, голосование
// и расчёт (возврат или конфискация залога, награды, баны).
// models.go описывает уведомления, голоса и категории.
package board

import (
	"strings"
	"time"

	"serotonyl.ru/board-bot/internal/common"
)

// Status — состояние уведомления. Переход односторонний:
// pending → validated ИЛИ pending → rejected, не более одного раза.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

// Verdict — тип голоса.
type Verdict string

const (
	VerdictValidate Verdict = "validate"
	VerdictReject   Verdict = "reject"
)

// Category — категория уведомления (закрытый список).
type Category string

const (
	CategoryNews   Category = "news"
	CategoryEvents Category = "events"
	CategoryHelp   Category = "help"
	CategoryMarket Category = "market"
	CategoryOther  Category = "other"
)

// Title возвращает русское название категории.
func (c Category) Title() string {
	switch c {
	case CategoryNews:
		return "новости"
	case CategoryEvents:
		return "события"
	case CategoryHelp:
		return "помощь"
	case CategoryMarket:
		return "барахолка"
	default:
		return "прочее"
	}
}

// ParseCategory принимает латинский тег или русское название категории.
// Неизвестный тег — common.ErrUnknownCategory.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "news", "новости":
		return CategoryNews, nil
	case "events", "события":
		return CategoryEvents, nil
	case "help", "помощь":
		return CategoryHelp, nil
	case "market", "барахолка":
		return CategoryMarket, nil
	case "other", "прочее":
		return CategoryOther, nil
	default:
		return "", common.ErrUnknownCategory
	}
}

// Notification — уведомление на доске.
// Создаётся со статусом pending; после создания меняются только счётчики
// голосов и статус. Никогда не удаляется.
type Notification struct {
	ID              int64      `db:"id"` // Монотонный порядковый id
	SenderID        int64      `db:"sender_id"`
	Message         string     `db:"message"` // Непрозрачный текст, не интерпретируется
	Category        Category   `db:"category"`
	Status          Status     `db:"status"`
	ValidationCount int        `db:"validation_count"` // Всегда == числу голосов validate
	RejectionCount  int        `db:"rejection_count"`  // Всегда == числу голосов reject
	DepositHeld     int64      `db:"deposit_held"`     // Залог, удержанный при подаче
	CreatedAt       time.Time  `db:"created_at"`
	SettledAt       *time.Time `db:"settled_at"` // Когда произошёл расчёт
}

// Terminal сообщает, завершено ли голосование (validated или rejected).
func (n *Notification) Terminal() bool {
	return n.Status != StatusPending
}

// WithinLifetime сообщает, принимаются ли ещё голоса по времени.
// Производное поле для запросов деталей: статус может быть pending,
// а окно голосования уже закрыто.
func (n *Notification) WithinLifetime(now time.Time, lifetime time.Duration) bool {
	return !now.After(n.CreatedAt.Add(lifetime))
}

// Vote — один голос по уведомлению.
// Уникальный индекс (notification_id, voter_id) гарантирует «ровно один голос
// на уведомление»; выбор неизменяем — переголосовать нельзя.
type Vote struct {
	ID             int64     `db:"id"`
	NotificationID int64     `db:"notification_id"`
	VoterID        int64     `db:"voter_id"`
	Verdict        Verdict   `db:"verdict"`
	CreatedAt      time.Time `db:"created_at"`
}

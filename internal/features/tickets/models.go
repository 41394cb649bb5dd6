// Package tickets реализует покупку билетов за кредиты наград.
// models.go описывает типы билетов и фиксированный прайс.
package tickets

import (
	"strings"
	"time"

	"serotonyl.ru/board-bot/internal/common"
)

// TicketType — тип билета (закрытый список).
type TicketType string

const (
	TicketStandard TicketType = "standard"
	TicketStudent  TicketType = "student"
	TicketMonthly  TicketType = "monthly"
)

// Title возвращает русское название типа билета.
func (t TicketType) Title() string {
	switch t {
	case TicketStandard:
		return "обычный"
	case TicketStudent:
		return "студенческий"
	default:
		return "месячный"
	}
}

// PriceFor возвращает цену билета в кредитах.
// Неизвестный тип — common.ErrUnknownTicketType.
func PriceFor(t TicketType) (int64, error) {
	switch t {
	case TicketStandard:
		return 10, nil
	case TicketStudent:
		return 7, nil
	case TicketMonthly:
		return 50, nil
	default:
		return 0, common.ErrUnknownTicketType
	}
}

// ParseTicketType принимает латинский тег или русское название типа.
func ParseTicketType(s string) (TicketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "обычный":
		return TicketStandard, nil
	case "student", "студенческий":
		return TicketStudent, nil
	case "monthly", "месячный":
		return TicketMonthly, nil
	default:
		return "", common.ErrUnknownTicketType
	}
}

// Purchase — запись о купленном билете.
type Purchase struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Type      TicketType `db:"ticket_type"`
	Price     int64      `db:"price"` // Цена на момент покупки
	CreatedAt time.Time  `db:"created_at"`
}

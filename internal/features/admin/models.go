// Package admin реализует панель владельца доски: парольную аутентификацию
// и управление настройками (залог, пороги уровней, казна).
// models.go описывает настройки доски и сессии.
package admin

import (
	"time"

	"serotonyl.ru/board-bot/internal/features/ranks"
)

// Settings — изменяемая конфигурация доски.
// Живёт единственной строкой в board_settings и меняется только командами
// владельца; каждая операция читает её из БД, а не из глобального состояния.
type Settings struct {
	DepositRequirement int64            `db:"deposit_requirement"`
	Thresholds         ranks.Thresholds // silver/gold/platinum пороги очков
	UpdatedAt          time.Time        `db:"updated_at"`
}

// Session — активная сессия владельца.
type Session struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

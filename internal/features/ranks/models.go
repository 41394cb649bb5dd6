// Package ranks — models.go описывает строку таблицы лидеров.
package ranks

import "time"

// LeaderboardEntry — запись таблицы лидеров.
// Порядок записей — порядок зачисления (не ранжирование): в таблицу попадает
// каждый, кто хоть раз голосовал или менял уровень, ровно один раз.
type LeaderboardEntry struct {
	ID         int64     `db:"id"`          // Порядковый номер зачисления
	UserID     int64     `db:"user_id"`     // Telegram user ID (уникальный)
	EnrolledAt time.Time `db:"enrolled_at"` // Когда зачислен
}

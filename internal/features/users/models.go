// Package users управляет реестром участников доски: репутацией, банами, балансами.
// models.go описывает структуры данных для работы с таблицей users.
package users

import (
	"time"

	"serotonyl.ru/board-bot/internal/features/ranks"
)

// User представляет участника доски в базе данных.
// Запись создаётся лениво при первом взаимодействии и никогда не удаляется.
type User struct {
	ID        int64  `db:"id"`         // Автоинкрементный ID записи в БД
	UserID    int64  `db:"user_id"`    // Telegram user ID (уникальный)
	Username  string `db:"username"`   // @username (может быть пустым)
	FirstName string `db:"first_name"` // Имя пользователя
	LastName  string `db:"last_name"`  // Фамилия (может быть пустой)

	// Репутация. Очки только растут: +1 за голос-подтверждение,
	// +2×награда за собственное валидированное уведомление.
	Points int64      `db:"points"`
	Tier   ranks.Tier `db:"tier"` // Всегда равен ranks.TierFor(Points, пороги)

	NotificationsSent      int64 `db:"notifications_sent"`
	NotificationsValidated int64 `db:"notifications_validated"`

	// Кулдаун: ставится только при успешной подаче.
	LastSubmissionAt *time.Time `db:"last_submission_at"`

	// Бан: липкий. Выставляется при BOARD_BAN_AFTER_REJECTIONS отклонённых
	// подряд, снимается ТОЛЬКО явным разбаном после истечения срока.
	ConsecutiveRejections int        `db:"consecutive_rejections"`
	IsBanned              bool       `db:"is_banned"`
	BanExpiresAt          *time.Time `db:"ban_expires_at"`

	// Балансы. Wallet — монеты (из них платятся залоги),
	// Spendable — кредиты наград (тратятся только на билеты),
	// EscrowAtRisk == Σ залогов по висящим (Pending) уведомлениям пользователя.
	Wallet       int64 `db:"wallet"`
	Spendable    int64 `db:"spendable"`
	EscrowAtRisk int64 `db:"escrow_at_risk"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

// BanExpired сообщает, истёк ли срок бана к моменту now.
// Флаг IsBanned при этом НЕ сбрасывается — бан липкий, снимается только разбаном.
func (u *User) BanExpired(now time.Time) bool {
	return u.BanExpiresAt != nil && !now.Before(*u.BanExpiresAt)
}

// CooldownOver сообщает, прошёл ли кулдаун с последней подачи.
func (u *User) CooldownOver(now time.Time, cooldown time.Duration) bool {
	if u.LastSubmissionAt == nil {
		return true
	}
	return !now.Before(u.LastSubmissionAt.Add(cooldown))
}

// UpdateInfo содержит данные для обновления информации о пользователе.
// Используется, когда имя/username пользователя могли измениться.
type UpdateInfo struct {
	Username  string
	FirstName string
	LastName  string
}

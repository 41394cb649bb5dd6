// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм и дат.
package common

import (
	"fmt"
	"math"
	"time"
)

// pluralForm выбирает форму слова по правилам русского языка.
//
// Правила:
//   - n%10==1 И n%100!=11 → единственное число (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → малое множественное (2, 3, 4, 22, ...)
//   - Остальные случаи → большое множественное (0, 5-20, 25-30, 100, ...)
func pluralForm(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
// Примеры:
//
//	PluralizeCoins(1)  → "монета"
//	PluralizeCoins(3)  → "монеты"
//	PluralizeCoins(5)  → "монет"
//	PluralizeCoins(21) → "монета"
func PluralizeCoins(n int64) string {
	return pluralForm(n, "монета", "монеты", "монет")
}

// PluralizeCredits возвращает правильную форму слова «кредит».
func PluralizeCredits(n int64) string {
	return pluralForm(n, "кредит", "кредита", "кредитов")
}

// PluralizePoints возвращает правильную форму слова «очко».
func PluralizePoints(n int64) string {
	return pluralForm(n, "очко", "очка", "очков")
}

// PluralizeVotes возвращает правильную форму слова «голос».
func PluralizeVotes(n int64) string {
	return pluralForm(n, "голос", "голоса", "голосов")
}

// FormatCoins форматирует сумму монет в читабельную строку.
// Пример: FormatCoins(150) → "150 монет"
func FormatCoins(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeCoins(n))
}

// FormatCredits форматирует сумму кредитов.
func FormatCredits(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeCredits(n))
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется для отображения дат подачи уведомлений и записей леджера.
func FormatDateTime(t time.Time) string {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

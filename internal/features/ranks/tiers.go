// Package ranks реализует уровни репутации и таблицу лидеров.
// tiers.go — чистые функции: вычисление уровня по очкам и таблица наград.
package ranks

// Tier — уровень репутации пользователя.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Title возвращает русское название уровня для отображения.
func (t Tier) Title() string {
	switch t {
	case TierSilver:
		return "Серебро"
	case TierGold:
		return "Золото"
	case TierPlatinum:
		return "Платина"
	default:
		return "Бронза"
	}
}

// Thresholds — пороги очков для повышения уровня.
// Бронза начинается с нуля, поэтому порога не имеет.
// Инвариант: Silver < Gold < Platinum (проверяется при изменении владельцем).
type Thresholds struct {
	Silver   int64
	Gold     int64
	Platinum int64
}

// Ascending проверяет, что пороги строго возрастают.
func (t Thresholds) Ascending() bool {
	return t.Silver < t.Gold && t.Gold < t.Platinum
}

// TierFor возвращает наивысший уровень, порог которого не превышает points.
func TierFor(points int64, t Thresholds) Tier {
	switch {
	case points >= t.Platinum:
		return TierPlatinum
	case points >= t.Gold:
		return TierGold
	case points >= t.Silver:
		return TierSilver
	default:
		return TierBronze
	}
}

// RewardFor возвращает награду (кредиты) за валидированное уведомление
// по уровню ОТПРАВИТЕЛЯ на момент расчёта. Очки начисляются как 2×награда.
func RewardFor(tier Tier) int64 {
	switch tier {
	case TierSilver:
		return 8
	case TierGold:
		return 12
	case TierPlatinum:
		return 20
	default:
		return 5
	}
}

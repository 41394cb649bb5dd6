// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
// Залог и пороги уровней здесь — только начальные значения: после первого
// запуска они живут в таблице board_settings и меняются командами владельца.
type Config struct {
	// --- Telegram ---
	OwnerIDsRaw      string  `envconfig:"OWNER_IDS" required:"true"`
	OwnerIDs         []int64 `envconfig:"-"` // заполним вручную
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ID чата, в котором работает доска (единственный разрешённый групповой чат)
	BoardChatID int64 `envconfig:"BOARD_CHAT_ID" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"board_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Board ---
	// Начальный размер залога (монеты), далее управляется владельцем
	BoardDepositRequirement int64 `envconfig:"BOARD_DEPOSIT_REQUIREMENT" default:"100"`
	// Минимальный интервал между подачами одного пользователя
	BoardCooldown time.Duration `envconfig:"BOARD_COOLDOWN" default:"1h"`
	// Срок жизни уведомления — после него голоса не принимаются
	BoardLifetime time.Duration `envconfig:"BOARD_LIFETIME" default:"168h"`
	// Сколько подтверждений нужно для валидации
	BoardValidationThreshold int `envconfig:"BOARD_VALIDATION_THRESHOLD" default:"5"`
	// Сколько отклонений нужно для реджекта
	BoardRejectionThreshold int `envconfig:"BOARD_REJECTION_THRESHOLD" default:"3"`
	// После скольких отклонённых подряд уведомлений выдаётся бан
	BoardBanAfterRejections int `envconfig:"BOARD_BAN_AFTER_REJECTIONS" default:"3"`
	// Длительность бана
	BoardBanDuration time.Duration `envconfig:"BOARD_BAN_DURATION" default:"72h"`

	// --- Tiers ---
	// Начальные пороги уровней (очки), далее управляются владельцем
	TierSilverThreshold   int64 `envconfig:"TIER_SILVER_THRESHOLD" default:"100"`
	TierGoldThreshold     int64 `envconfig:"TIER_GOLD_THRESHOLD" default:"500"`
	TierPlatinumThreshold int64 `envconfig:"TIER_PLATINUM_THRESHOLD" default:"2000"`

	// --- Economy ---
	// Стартовый кошелёк нового участника (монеты) — из него платятся залоги
	EconomyStartingWallet int64 `envconfig:"ECONOMY_STARTING_WALLET" default:"500"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureTicketsEnabled bool `envconfig:"FEATURE_TICKETS_ENABLED" default:"true"`
	FeatureDigestEnabled  bool `envconfig:"FEATURE_DIGEST_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.BoardChatID == 0 {
		return fmt.Errorf("BOARD_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.BoardDepositRequirement <= 0 {
		return fmt.Errorf("BOARD_DEPOSIT_REQUIREMENT должен быть > 0")
	}
	if c.BoardValidationThreshold <= 0 || c.BoardRejectionThreshold <= 0 {
		return fmt.Errorf("пороги голосов должны быть > 0")
	}
	if c.BoardBanAfterRejections <= 0 {
		return fmt.Errorf("BOARD_BAN_AFTER_REJECTIONS должен быть > 0")
	}
	if !(c.TierSilverThreshold < c.TierGoldThreshold && c.TierGoldThreshold < c.TierPlatinumThreshold) {
		return fmt.Errorf("пороги уровней должны строго возрастать")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.OwnerIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("OWNER_IDS parse: %w", err)
	}
	cfg.OwnerIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsOwner проверяет, входит ли пользователь в список владельцев доски.
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

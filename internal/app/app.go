// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/bot"
	"serotonyl.ru/board-bot/internal/bot/filters"
	"serotonyl.ru/board-bot/internal/config"
	"serotonyl.ru/board-bot/internal/db/postgres"
	"serotonyl.ru/board-bot/internal/features/admin"
	"serotonyl.ru/board-bot/internal/features/board"
	"serotonyl.ru/board-bot/internal/features/escrow"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/tickets"
	"serotonyl.ru/board-bot/internal/features/users"
	"serotonyl.ru/board-bot/internal/jobs"
	"serotonyl.ru/board-bot/internal/signals"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	userRepo := users.NewRepository(pool, cfg.EconomyStartingWallet)
	escrowRepo := escrow.NewRepository(pool)
	ranksRepo := ranks.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)
	boardRepo := board.NewRepository(pool, userRepo, escrowRepo, ranksRepo)
	ticketRepo := tickets.NewRepository(pool)

	// Начальные настройки доски из конфига (только при первом запуске)
	if err := adminRepo.EnsureSettings(ctx, &admin.Settings{
		DepositRequirement: cfg.BoardDepositRequirement,
		Thresholds: ranks.Thresholds{
			Silver:   cfg.TierSilverThreshold,
			Gold:     cfg.TierGoldThreshold,
			Platinum: cfg.TierPlatinumThreshold,
		},
	}); err != nil {
		return nil, fmt.Errorf("ошибка инициализации настроек доски: %w", err)
	}

	// === 4. Сервисы ===
	emitter := signals.New()
	userService := users.NewService(userRepo, emitter)
	escrowService := escrow.NewService(escrowRepo, emitter)
	ranksService := ranks.NewService(ranksRepo)
	adminService := admin.NewService(adminRepo, cfg, emitter)
	boardService := board.NewService(boardRepo, adminRepo, cfg, emitter)
	ticketService := tickets.NewService(ticketRepo, emitter)

	// === 5. Обработчики ===
	userHandler := users.NewHandler(userService, botAPI)
	boardHandler := board.NewHandler(boardService, botAPI)
	ticketHandler := tickets.NewHandler(ticketService, botAPI)
	adminHandler := admin.NewHandler(adminService, escrowService, userService, botAPI)

	// === 6. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.BoardChatID, userService, botAPI)

	// === 7. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		userService, userHandler,
		boardHandler,
		ticketHandler,
		escrowService,
		ranksService,
		adminHandler,
		chatFilter,
	)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(boardService, cfg.BoardChatID, cfg.FeatureDigestEnabled, b.SendMessageToChat)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Board},
		{3, migration003Escrow},
		{4, migration004Leaderboard},
		{5, migration005Settings},
		{6, migration006Admin},
		{7, migration007Tickets},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255),
    last_name VARCHAR(255),
    points BIGINT DEFAULT 0,
    tier VARCHAR(16) DEFAULT 'bronze',
    notifications_sent BIGINT DEFAULT 0,
    notifications_validated BIGINT DEFAULT 0,
    last_submission_at TIMESTAMP,
    consecutive_rejections INTEGER DEFAULT 0,
    is_banned BOOLEAN DEFAULT FALSE,
    ban_expires_at TIMESTAMP,
    wallet BIGINT DEFAULT 0,
    spendable BIGINT DEFAULT 0,
    escrow_at_risk BIGINT DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_user_id ON users(user_id);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

var migration002Board = `
CREATE TABLE IF NOT EXISTS notifications (
    id BIGSERIAL PRIMARY KEY,
    sender_id BIGINT NOT NULL REFERENCES users(user_id),
    message TEXT NOT NULL,
    category VARCHAR(32) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    validation_count INTEGER DEFAULT 0,
    rejection_count INTEGER DEFAULT 0,
    deposit_held BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    settled_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_sender ON notifications(sender_id);
CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);
CREATE TABLE IF NOT EXISTS votes (
    id BIGSERIAL PRIMARY KEY,
    notification_id BIGINT NOT NULL REFERENCES notifications(id),
    voter_id BIGINT NOT NULL REFERENCES users(user_id),
    verdict VARCHAR(16) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    UNIQUE(notification_id, voter_id)
);
CREATE INDEX IF NOT EXISTS idx_votes_notification ON votes(notification_id);
`

var migration003Escrow = `
CREATE TABLE IF NOT EXISTS ledger (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT REFERENCES users(user_id),
    notification_id BIGINT REFERENCES notifications(id),
    amount BIGINT NOT NULL,
    entry_type VARCHAR(32) NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger(user_id);
CREATE INDEX IF NOT EXISTS idx_ledger_created_at ON ledger(created_at DESC);
CREATE TABLE IF NOT EXISTS system_funds (
    id INTEGER PRIMARY KEY,
    operating BIGINT DEFAULT 0,
    confiscated BIGINT DEFAULT 0,
    updated_at TIMESTAMP DEFAULT NOW()
);
INSERT INTO system_funds (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

var migration004Leaderboard = `
CREATE TABLE IF NOT EXISTS leaderboard (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL REFERENCES users(user_id),
    enrolled_at TIMESTAMP DEFAULT NOW()
);
`

var migration005Settings = `
CREATE TABLE IF NOT EXISTS board_settings (
    id INTEGER PRIMARY KEY,
    deposit_requirement BIGINT NOT NULL,
    silver_threshold BIGINT NOT NULL,
    gold_threshold BIGINT NOT NULL,
    platinum_threshold BIGINT NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    last_activity TIMESTAMP DEFAULT NOW(),
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`

var migration007Tickets = `
CREATE TABLE IF NOT EXISTS ticket_purchases (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    ticket_type VARCHAR(32) NOT NULL,
    price BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ticket_purchases_user ON ticket_purchases(user_id);
`

// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go подключает обработчики фич и запускает polling.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/bot/filters"
	"serotonyl.ru/board-bot/internal/bot/middleware"
	"serotonyl.ru/board-bot/internal/config"
	"serotonyl.ru/board-bot/internal/features/admin"
	"serotonyl.ru/board-bot/internal/features/board"
	"serotonyl.ru/board-bot/internal/features/escrow"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/tickets"
	"serotonyl.ru/board-bot/internal/features/users"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	userHandler   *users.Handler
	boardHandler  *board.Handler
	ticketHandler *tickets.Handler
	escrowService *escrow.Service
	ranksService  *ranks.Service
	adminHandler  *admin.Handler

	userService *users.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	userService *users.Service,
	userHandler *users.Handler,
	boardHandler *board.Handler,
	ticketHandler *tickets.Handler,
	escrowService *escrow.Service,
	ranksService *ranks.Service,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		chatFilter:    chatFilter,
		rateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		userHandler:   userHandler,
		boardHandler:  boardHandler,
		ticketHandler: ticketHandler,
		escrowService: escrowService,
		ranksService:  ranksService,
		adminHandler:  adminHandler,
		userService:   userService,
		parser:        NewCommandParser(),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	// Новые участники чата доски сразу попадают в реестр
	if update.Message != nil && update.Message.NewChatMembers != nil {
		if update.Message.Chat != nil && update.Message.Chat.ID == b.cfg.BoardChatID {
			b.handleNewMembers(ctx, update.Message.NewChatMembers)
		}
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		return
	}

	message := update.Message

	middleware.LogMessage(message)

	// Проверяем доступ (BOARD_CHAT_ID или DM участника)
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	// Rate limiting
	if message.From != nil && !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// EnsureUser — ошибки нельзя игнорировать, иначе потом будет "оно не работает"
	if err := b.userService.EnsureUser(ctx, userID,
		message.From.UserName, message.From.FirstName, message.From.LastName,
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureUser failed")
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	b.routeCommand(ctx, chatID, userID, message.Chat.IsPrivate(), cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, isPrivate bool, cmd string, args []string) {
	switch cmd {
	case "start", "help", "помощь":
		b.sendMessage(chatID, helpText)

	// --- Доска ---
	case "подать":
		b.boardHandler.HandleSubmit(ctx, chatID, userID, args)
	case "за":
		b.boardHandler.HandleValidate(ctx, chatID, userID, args)
	case "против":
		b.boardHandler.HandleReject(ctx, chatID, userID, args)
	case "доска":
		b.boardHandler.HandleBoard(ctx, chatID)
	case "уведомление":
		b.boardHandler.HandleDetails(ctx, chatID, args)

	// --- Участники ---
	case "стата":
		b.userHandler.HandleStats(ctx, chatID, userID)
	case "баланс":
		b.userHandler.HandleBalance(ctx, chatID, userID)
	case "разбан":
		b.userHandler.HandleUnban(ctx, chatID, userID)
	case "транзакции":
		b.handleTransactions(ctx, chatID, userID)

	// --- Таблица лидеров ---
	case "лидеры":
		b.handleLeaderboard(ctx, chatID)

	// --- Билеты ---
	case "билет":
		if b.cfg.FeatureTicketsEnabled {
			b.ticketHandler.HandleBuy(ctx, chatID, userID, args)
		} else {
			b.sendMessage(chatID, "🎟 Покупка билетов временно отключена")
		}
	case "билеты":
		if b.cfg.FeatureTicketsEnabled {
			b.ticketHandler.HandleHistory(ctx, chatID, userID)
		}

	// --- Панель владельца (только в личке) ---
	case "login":
		if isPrivate {
			b.adminHandler.HandleLogin(ctx, chatID, userID, args)
		}
	case "logout":
		if isPrivate {
			b.adminHandler.HandleLogout(ctx, chatID, userID)
		}
	case "ставка":
		if isPrivate {
			b.adminHandler.HandleSetRequirement(ctx, chatID, userID, args)
		}
	case "пороги":
		if isPrivate {
			b.adminHandler.HandleSetThresholds(ctx, chatID, userID, args)
		}
	case "казна":
		if isPrivate {
			b.adminHandler.HandleFunds(ctx, chatID, userID)
		}
	case "внести":
		if isPrivate {
			b.adminHandler.HandleFundDeposit(ctx, chatID, userID, args)
		}
	case "вывести":
		if isPrivate {
			b.adminHandler.HandleFundWithdraw(ctx, chatID, userID, args)
		}
	case "выдать":
		if isPrivate {
			b.adminHandler.HandleGrant(ctx, chatID, userID, args)
		}
	}
}

// handleLeaderboard — команда !лидеры. Состав в порядке зачисления:
// позиции не пересортировываются и из таблицы никто не выбывает.
// Как и !транзакции, собирает данные двух фич, поэтому живёт здесь.
func (b *Bot) handleLeaderboard(ctx context.Context, chatID int64) {
	roster, err := b.ranksService.Roster(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения таблицы лидеров")
		b.sendMessage(chatID, "❌ Ошибка чтения таблицы лидеров")
		return
	}
	b.sendMessage(chatID, leaderboardText(ctx, roster, b.userService.ByUserID))
}

// leaderboardText форматирует состав таблицы лидеров.
// lookup может не найти участника (например, запись реестра отстала) —
// тогда показываем только его id.
func leaderboardText(ctx context.Context, roster []*ranks.LeaderboardEntry, lookup func(context.Context, int64) (*users.User, error)) string {
	if len(roster) == 0 {
		return "🏆 Таблица лидеров пока пуста"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 Таблица лидеров (%d)\n\n", len(roster)))
	for i, entry := range roster {
		name := fmt.Sprintf("id%d", entry.UserID)
		suffix := ""
		if u, err := lookup(ctx, entry.UserID); err == nil {
			name = u.DisplayName()
			suffix = fmt.Sprintf(" — %s, %d", u.Tier.Title(), u.Points)
		}
		sb.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, name, suffix))
	}
	return sb.String()
}

// handleTransactions — команда !транзакции. История движений средств.
func (b *Bot) handleTransactions(ctx context.Context, chatID, userID int64) {
	text, err := b.escrowService.FormatHistory(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения леджера")
		b.sendMessage(chatID, "❌ Ошибка чтения истории")
		return
	}
	b.sendMessage(chatID, text)
}

// handleNewMembers обрабатывает вступление новых участников.
func (b *Bot) handleNewMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if err := b.userService.EnsureUser(ctx, user.ID, user.UserName, user.FirstName, user.LastName); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("EnsureUser failed")
			continue
		}
		log.WithField("user", user.UserName).Info("Новый участник обработан")
	}
}

const helpText = `📌 Доска уведомлений

!подать <сумма> <категория> <текст> — подать уведомление под залог
!за <id> / !против <id> — проголосовать
!доска — последние уведомления
!уведомление <id> — подробности
!стата — ваша репутация
!баланс — монеты и кредиты
!транзакции — история средств
!лидеры — таблица лидеров
!билет <тип> / !билеты — билеты за кредиты
!разбан — снять истёкший бан

Владельцу (в личке): /login <пароль>, !ставка, !пороги, !казна, !внести, !вывести, !выдать`

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToChat отправляет сообщение в произвольный чат (для дайджеста).
func (b *Bot) SendMessageToChat(chatID int64, text string) {
	b.sendMessage(chatID, text)
}

// CommandParser парсит русские команды с префиксами !, . и /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}

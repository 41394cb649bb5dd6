// Package filters ограничивает, откуда бот принимает команды:
// чат доски и личные сообщения участников этого чата.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/features/users"
)

type ChatFilter struct {
	boardChatID int64
	userService *users.Service
	bot         *tgbotapi.BotAPI
}

func NewChatFilter(boardChatID int64, userService *users.Service, bot *tgbotapi.BotAPI) *ChatFilter {
	return &ChatFilter{
		boardChatID: boardChatID,
		userService: userService,
		bot:         bot,
	}
}

// CheckAccess решает, обрабатывать ли сообщение.
// Разрешены: чат доски и личка участника чата доски.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil || message.From == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat/from (сервисное сообщение?)")
		return false
	}
	if f.boardChatID == 0 {
		log.WithField("component", "ChatFilter").Error("boardChatID is 0 (ошибка конфига)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component":     "ChatFilter",
		"chat_id":       chatID,
		"chat_type":     message.Chat.Type,
		"user_id":       userID,
		"board_chat_id": f.boardChatID,
	})

	// 1) Чат доски
	if chatID == f.boardChatID {
		logger.Debug("allow: board chat")
		return true
	}

	// 2) Личка: сначала быстро по БД
	if message.Chat.IsPrivate() {
		isMember, err := f.userService.IsMember(ctx, userID)
		if err != nil {
			logger.WithError(err).Error("member check failed (db)")
			return false
		}
		if isMember {
			logger.Debug("allow: private (db member)")
			return true
		}

		// 2.1) БД не знает пользователя: проверяем членство через Telegram API
		cm, err := f.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID: f.boardChatID,
				UserID: userID,
			},
		})
		if err != nil {
			logger.WithError(err).Error("member check failed (telegram GetChatMember)")
			return false
		}

		switch cm.Status {
		case "creator", "administrator", "member", "restricted":
			if err := f.userService.EnsureUser(
				ctx, userID,
				message.From.UserName,
				message.From.FirstName,
				message.From.LastName,
			); err != nil {
				logger.WithError(err).Warn("failed to backfill user to DB (allowing anyway)")
			}
			logger.WithField("tg_status", cm.Status).Info("allow: private (telegram member, backfilled)")
			return true

		default:
			logger.WithField("tg_status", cm.Status).Info("deny: private (not a chat member)")
			msg := tgbotapi.NewMessage(chatID, "❌ Бот работает только для участников чата доски")
			if _, sendErr := f.bot.Send(msg); sendErr != nil {
				logger.WithError(sendErr).Warn("failed to send deny message")
			}
			return false
		}
	}

	// 3) Остальные чаты игнорируем
	logger.Info("deny: not board chat and not private")
	return false
}

// Package tickets — handlers.go обрабатывает команды !билет и !билеты.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
)

// Handler обрабатывает команды билетов.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBuy — команда !билет <тип>. Покупка билета за кредиты.
func (h *Handler) HandleBuy(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Формат: !билет <тип>\nТипы: обычный (10), студенческий (7), месячный (50)")
		return
	}

	p, err := h.service.Purchase(ctx, userID, args[0])
	switch {
	case err == nil:
		h.sendMessage(chatID, fmt.Sprintf(
			"🎟 Билет «%s» куплен за %s", p.Type.Title(), common.FormatCredits(p.Price),
		))
	case errors.Is(err, common.ErrUnknownTicketType):
		h.sendMessage(chatID, "❓ Неизвестный тип билета. Доступны: обычный, студенческий, месячный")
	case errors.Is(err, common.ErrInsufficientBalance):
		h.sendMessage(chatID, "💸 Недостаточно кредитов. Кредиты зарабатываются подтверждёнными уведомлениями")
	default:
		log.WithError(err).Error("Ошибка покупки билета")
		h.sendMessage(chatID, "❌ Ошибка покупки билета")
	}
}

// HandleHistory — команда !билеты. Последние покупки пользователя.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	list, err := h.service.History(ctx, userID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения покупок")
		h.sendMessage(chatID, "❌ Ошибка чтения покупок")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "🎟 У вас пока нет билетов")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎟 Ваши билеты\n\n")
	for _, p := range list {
		sb.WriteString(fmt.Sprintf("• %s — %s (%s)\n",
			p.Type.Title(), common.FormatCredits(p.Price), common.FormatDateTime(p.CreatedAt)))
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

// Package users — handlers.go обрабатывает команды !стата, !баланс и !разбан.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
)

// Handler обрабатывает команды реестра участников.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleStats — команда !стата. Показывает репутацию и счётчики пользователя.
func (h *Handler) HandleStats(ctx context.Context, chatID, userID int64) {
	u, err := h.service.ByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения статистики")
		h.sendMessage(chatID, "❌ Ошибка получения статистики")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Статистика %s\n\n", u.DisplayName()))
	sb.WriteString(fmt.Sprintf("🏅 Уровень: %s (%d %s)\n", u.Tier.Title(), u.Points, common.PluralizePoints(u.Points)))
	sb.WriteString(fmt.Sprintf("📨 Подано уведомлений: %d\n", u.NotificationsSent))
	sb.WriteString(fmt.Sprintf("✅ Подтверждено голосов: %d\n", u.NotificationsValidated))
	if u.IsBanned {
		until := "неизвестно"
		if u.BanExpiresAt != nil {
			until = common.FormatDateTime(*u.BanExpiresAt)
		}
		sb.WriteString(fmt.Sprintf("🚫 Бан до %s (снимается командой !разбан после истечения)\n", until))
	}
	if u.EscrowAtRisk > 0 {
		sb.WriteString(fmt.Sprintf("🔒 В залоге: %s\n", common.FormatCoins(u.EscrowAtRisk)))
	}

	h.sendMessage(chatID, sb.String())
}

// HandleBalance — команда !баланс. Кошелёк (монеты) и кредиты наград.
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	u, err := h.service.ByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Ошибка получения баланса")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf(
		"💰 Кошелёк: %s\n🎟 Кредиты: %s\n🔒 В залоге: %s",
		common.FormatCoins(u.Wallet),
		common.FormatCredits(u.Spendable),
		common.FormatCoins(u.EscrowAtRisk),
	))
}

// HandleUnban — команда !разбан. Только сам пользователь и только после срока.
func (h *Handler) HandleUnban(ctx context.Context, chatID, userID int64) {
	err := h.service.Unban(ctx, userID, time.Now().UTC())
	switch {
	case err == nil:
		h.sendMessage(chatID, "🔓 Бан снят, серия отклонений обнулена")
	case errors.Is(err, common.ErrNotBanned):
		h.sendMessage(chatID, "ℹ️ Вы не забанены")
	case errors.Is(err, common.ErrBanNotExpired):
		h.sendMessage(chatID, "⏳ Срок бана ещё не истёк")
	default:
		log.WithError(err).Error("Ошибка разбана")
		h.sendMessage(chatID, "❌ Ошибка разбана")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

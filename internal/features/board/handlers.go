// Package board — handlers.go обрабатывает команды доски:
// !подать, !за, !против, !доска, !уведомление.
package board

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
)

// Handler обрабатывает команды доски уведомлений.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleSubmit — команда !подать <сумма> <категория> <текст>.
// Сумма — сколько участник прикладывает к подаче; излишек сверх залога
// возвращается сразу.
func (h *Handler) HandleSubmit(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 3 {
		h.sendMessage(chatID, "Формат: !подать <сумма> <категория> <текст>\nКатегории: новости, события, помощь, барахолка, прочее")
		return
	}

	payment, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Сумма должна быть числом")
		return
	}
	category := args[1]
	message := strings.Join(args[2:], " ")

	n, err := h.service.Submit(ctx, userID, message, category, payment, time.Now().UTC())
	if err != nil {
		h.sendMessage(chatID, submitErrorText(err))
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"📌 Уведомление #%d подано в категорию «%s»\n🔒 Залог: %s\nГолосуйте: !за %d или !против %d",
		n.ID, n.Category.Title(), common.FormatCoins(n.DepositHeld), n.ID, n.ID,
	))
}

func submitErrorText(err error) string {
	switch {
	case errors.Is(err, common.ErrBanned):
		return "🚫 Вы забанены и не можете подавать уведомления"
	case errors.Is(err, common.ErrCooldownActive):
		return "⏳ Кулдаун ещё не прошёл, попробуйте позже"
	case errors.Is(err, common.ErrInsufficientDeposit):
		return "💸 Приложенной суммы не хватает на залог"
	case errors.Is(err, common.ErrUnknownCategory):
		return "❓ Неизвестная категория. Доступны: новости, события, помощь, барахолка, прочее"
	case errors.Is(err, common.ErrEmptyMessage):
		return "❌ Текст уведомления не может быть пустым"
	case errors.Is(err, common.ErrInvalidAmount):
		return "❌ Сумма должна быть положительной"
	default:
		log.WithError(err).Error("Ошибка подачи уведомления")
		return "❌ Ошибка подачи уведомления"
	}
}

// HandleValidate — команда !за <id>.
func (h *Handler) HandleValidate(ctx context.Context, chatID, userID int64, args []string) {
	h.handleVote(ctx, chatID, userID, args, VerdictValidate)
}

// HandleReject — команда !против <id>.
func (h *Handler) HandleReject(ctx context.Context, chatID, userID int64, args []string) {
	h.handleVote(ctx, chatID, userID, args, VerdictReject)
}

func (h *Handler) handleVote(ctx context.Context, chatID, userID int64, args []string, verdict Verdict) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Формат: !за <id> или !против <id>")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер уведомления должен быть числом")
		return
	}

	now := time.Now().UTC()
	var eff *VoteEffects
	if verdict == VerdictValidate {
		eff, err = h.service.Validate(ctx, userID, id, now)
	} else {
		eff, err = h.service.Reject(ctx, userID, id, now)
	}
	if err != nil {
		h.sendMessage(chatID, voteErrorText(err))
		return
	}

	h.sendMessage(chatID, voteResultText(eff))
}

func voteErrorText(err error) string {
	switch {
	case errors.Is(err, common.ErrNotificationNotFound):
		return "❓ Уведомление не найдено"
	case errors.Is(err, common.ErrNotificationExpired):
		return "⌛ Срок голосования по этому уведомлению истёк"
	case errors.Is(err, common.ErrAlreadySettled):
		return "ℹ️ Голосование по этому уведомлению уже завершено"
	case errors.Is(err, common.ErrAlreadyVoted):
		return "☝️ Вы уже голосовали по этому уведомлению"
	case errors.Is(err, common.ErrSelfVote):
		return "🙅 Нельзя голосовать за собственное уведомление"
	default:
		log.WithError(err).Error("Ошибка голосования")
		return "❌ Ошибка голосования"
	}
}

func voteResultText(eff *VoteEffects) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗳 Голос по #%d учтён (✅ %d / ❌ %d)\n",
		eff.NotificationID, eff.ValidationCount, eff.RejectionCount))

	if !eff.Settled {
		return sb.String()
	}

	switch eff.Status {
	case StatusValidated:
		sb.WriteString(fmt.Sprintf(
			"\n✅ Уведомление #%d подтверждено!\n💰 Отправителю возвращён залог %s и начислена награда %s",
			eff.NotificationID,
			common.FormatCoins(eff.DepositReturned),
			common.FormatCredits(eff.Reward),
		))
	case StatusRejected:
		sb.WriteString(fmt.Sprintf(
			"\n❌ Уведомление #%d отклонено, залог %s конфискован",
			eff.NotificationID, common.FormatCoins(eff.Confiscated),
		))
		if eff.Sender != nil && eff.Sender.BanIssued {
			sb.WriteString(fmt.Sprintf("\n🚫 Отправитель забанен до %s",
				common.FormatDateTime(eff.Sender.BanExpiresAt)))
		}
	}
	return sb.String()
}

// HandleBoard — команда !доска. Последние уведомления, новые первыми.
func (h *Handler) HandleBoard(ctx context.Context, chatID int64) {
	list, err := h.service.Recent(ctx, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения доски")
		h.sendMessage(chatID, "❌ Ошибка чтения доски")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "📋 Доска пуста")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Доска уведомлений\n\n")
	for _, n := range list {
		sb.WriteString(fmt.Sprintf("%s #%d [%s] %s\n",
			statusEmoji(n.Status), n.ID, n.Category.Title(), truncate(n.Message, 60)))
	}
	sb.WriteString("\nПодробнее: !уведомление <id>")
	h.sendMessage(chatID, sb.String())
}

// HandleDetails — команда !уведомление <id>.
func (h *Handler) HandleDetails(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Формат: !уведомление <id>")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Номер уведомления должен быть числом")
		return
	}

	n, open, err := h.service.Details(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrNotificationNotFound) {
			h.sendMessage(chatID, "❓ Уведомление не найдено")
			return
		}
		log.WithError(err).Error("Ошибка чтения уведомления")
		h.sendMessage(chatID, "❌ Ошибка чтения уведомления")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s Уведомление #%d\n\n", statusEmoji(n.Status), n.ID))
	sb.WriteString(fmt.Sprintf("📂 Категория: %s\n", n.Category.Title()))
	sb.WriteString(fmt.Sprintf("📝 %s\n\n", n.Message))
	sb.WriteString(fmt.Sprintf("✅ За: %d  ❌ Против: %d\n", n.ValidationCount, n.RejectionCount))
	sb.WriteString(fmt.Sprintf("🔒 Залог: %s\n", common.FormatCoins(n.DepositHeld)))
	sb.WriteString(fmt.Sprintf("🕒 Подано: %s\n", common.FormatDateTime(n.CreatedAt)))

	switch {
	case n.Terminal() && n.SettledAt != nil:
		sb.WriteString(fmt.Sprintf("🏁 Завершено: %s\n", common.FormatDateTime(*n.SettledAt)))
	case open:
		sb.WriteString(fmt.Sprintf("🗳 Голосование открыто: !за %d или !против %d\n", n.ID, n.ID))
	default:
		sb.WriteString("⌛ Срок голосования истёк\n")
	}

	h.sendMessage(chatID, sb.String())
}

func statusEmoji(s Status) string {
	switch s {
	case StatusValidated:
		return "✅"
	case StatusRejected:
		return "❌"
	default:
		return "⏳"
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

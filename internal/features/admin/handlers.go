// Package admin — handlers.go обрабатывает команды панели владельца.
// Все команды работают только в личных сообщениях и только для владельцев.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/common"
	"serotonyl.ru/board-bot/internal/features/escrow"
	"serotonyl.ru/board-bot/internal/features/ranks"
	"serotonyl.ru/board-bot/internal/features/users"
)

// Handler обрабатывает команды владельца.
type Handler struct {
	service *Service
	escrow  *escrow.Service
	users   *users.Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик панели владельца.
func NewHandler(service *Service, escrowSvc *escrow.Service, usersSvc *users.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, escrow: escrowSvc, users: usersSvc, bot: bot}
}

// HandleLogin — команда /login <пароль>. Открывает сессию владельца на 24 часа.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Формат: /login <пароль>")
		return
	}

	err := h.service.VerifyPassword(ctx, userID, strings.Join(args, " "))
	switch {
	case err == nil:
		h.sendMessage(chatID, "🔑 Сессия открыта на 24 часа")
	case errors.Is(err, common.ErrNotOwner):
		h.sendMessage(chatID, "🚫 Команда доступна только владельцу")
	case errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(chatID, "❌ Неверный пароль")
	case errors.Is(err, common.ErrTooManyAttempts):
		h.sendMessage(chatID, "⏳ Слишком много попыток, подождите час")
	default:
		log.WithError(err).Error("Ошибка входа владельца")
		h.sendMessage(chatID, "❌ Ошибка входа")
	}
}

// HandleLogout — команда /logout. Закрывает сессию.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода владельца")
		h.sendMessage(chatID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(chatID, "🔒 Сессия закрыта")
}

// HandleSetRequirement — команда !ставка <сумма>. Меняет размер залога.
// Висящие уведомления сохраняют залог, удержанный при подаче.
func (h *Handler) HandleSetRequirement(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "Формат: !ставка <сумма>")
		return
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Сумма должна быть числом")
		return
	}

	err = h.service.SetDepositRequirement(ctx, userID, amount)
	switch {
	case err == nil:
		h.sendMessage(chatID, fmt.Sprintf("⚙️ Залог теперь %s", common.FormatCoins(amount)))
	case errors.Is(err, common.ErrInvalidAmount):
		h.sendMessage(chatID, "❌ Залог должен быть положительным")
	default:
		h.replyAuthError(chatID, err, "Ошибка изменения залога")
	}
}

// HandleSetThresholds — команда !пороги <серебро> <золото> <платина>.
func (h *Handler) HandleSetThresholds(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 3 {
		h.sendMessage(chatID, "Формат: !пороги <серебро> <золото> <платина>")
		return
	}
	var vals [3]int64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			h.sendMessage(chatID, "❌ Пороги должны быть числами")
			return
		}
		vals[i] = v
	}

	t := ranks.Thresholds{Silver: vals[0], Gold: vals[1], Platinum: vals[2]}
	err := h.service.SetThresholds(ctx, userID, t)
	switch {
	case err == nil:
		h.sendMessage(chatID, fmt.Sprintf(
			"⚙️ Пороги уровней: серебро %d, золото %d, платина %d", t.Silver, t.Gold, t.Platinum))
	case errors.Is(err, common.ErrThresholdsNotAscending):
		h.sendMessage(chatID, "❌ Пороги должны строго возрастать и быть положительными")
	default:
		h.replyAuthError(chatID, err, "Ошибка изменения порогов")
	}
}

// HandleFunds — команда !казна. Показывает операционные средства и конфискат.
func (h *Handler) HandleFunds(ctx context.Context, chatID, userID int64) {
	if err := h.service.Authorize(ctx, userID); err != nil {
		h.replyAuthError(chatID, err, "Ошибка чтения казны")
		return
	}

	f, err := h.escrow.Funds(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения казны")
		h.sendMessage(chatID, "❌ Ошибка чтения казны")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf(
		"🏛 Казна\n\n💼 Операционные: %s\n🚫 Конфискат: %s\n🕒 Обновлено: %s",
		common.FormatCoins(f.Operating),
		common.FormatCoins(f.Confiscated),
		common.FormatDateTime(f.UpdatedAt),
	))
}

// HandleFundDeposit — команда !внести <сумма>.
func (h *Handler) HandleFundDeposit(ctx context.Context, chatID, userID int64, args []string) {
	amount, ok := h.parseAuthorizedAmount(ctx, chatID, userID, args, "Формат: !внести <сумма>")
	if !ok {
		return
	}
	if err := h.escrow.Deposit(ctx, amount); err != nil {
		log.WithError(err).Error("Ошибка взноса в казну")
		h.sendMessage(chatID, "❌ Ошибка взноса в казну")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("💼 Внесено %s", common.FormatCoins(amount)))
}

// HandleFundWithdraw — команда !вывести <сумма>.
// Конфискат выводу не подлежит, только операционные средства.
func (h *Handler) HandleFundWithdraw(ctx context.Context, chatID, userID int64, args []string) {
	amount, ok := h.parseAuthorizedAmount(ctx, chatID, userID, args, "Формат: !вывести <сумма>")
	if !ok {
		return
	}
	err := h.escrow.Withdraw(ctx, amount)
	switch {
	case err == nil:
		h.sendMessage(chatID, fmt.Sprintf("💼 Выведено %s", common.FormatCoins(amount)))
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(chatID, "💸 В казне недостаточно операционных средств")
	default:
		log.WithError(err).Error("Ошибка вывода из казны")
		h.sendMessage(chatID, "❌ Ошибка вывода из казны")
	}
}

// HandleGrant — команда !выдать <@username|id> <сумма>. Выдача монет участнику.
func (h *Handler) HandleGrant(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "Формат: !выдать <@username|id> <сумма>")
		return
	}
	if err := h.service.Authorize(ctx, userID); err != nil {
		h.replyAuthError(chatID, err, "Ошибка выдачи монет")
		return
	}

	target, err := h.resolveTarget(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			h.sendMessage(chatID, "❓ Участник не найден")
			return
		}
		log.WithError(err).Error("Ошибка поиска участника")
		h.sendMessage(chatID, "❌ Ошибка поиска участника")
		return
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ Сумма должна быть числом")
		return
	}

	err = h.escrow.Grant(ctx, target.UserID, amount)
	switch {
	case err == nil:
		h.sendMessage(chatID, fmt.Sprintf("💰 Выдано %s участнику %s",
			common.FormatCoins(amount), target.DisplayName()))
	case errors.Is(err, common.ErrInvalidAmount):
		h.sendMessage(chatID, "❌ Сумма должна быть положительной")
	default:
		log.WithError(err).Error("Ошибка выдачи монет")
		h.sendMessage(chatID, "❌ Ошибка выдачи монет")
	}
}

// resolveTarget принимает @username или числовой Telegram ID.
func (h *Handler) resolveTarget(ctx context.Context, arg string) (*users.User, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return h.users.ByUserID(ctx, id)
	}
	return h.users.ByUsername(ctx, strings.TrimPrefix(arg, "@"))
}

// parseAuthorizedAmount проверяет права владельца и парсит сумму из args[0].
func (h *Handler) parseAuthorizedAmount(ctx context.Context, chatID, userID int64, args []string, usage string) (int64, bool) {
	if len(args) < 1 {
		h.sendMessage(chatID, usage)
		return 0, false
	}
	if err := h.service.Authorize(ctx, userID); err != nil {
		h.replyAuthError(chatID, err, "Ошибка авторизации")
		return 0, false
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(chatID, "❌ Сумма должна быть положительным числом")
		return 0, false
	}
	return amount, true
}

func (h *Handler) replyAuthError(chatID int64, err error, logMsg string) {
	switch {
	case errors.Is(err, common.ErrNotOwner):
		h.sendMessage(chatID, "🚫 Команда доступна только владельцу")
	case errors.Is(err, common.ErrSessionExpired):
		h.sendMessage(chatID, "🔒 Сессия не открыта. Войдите: /login <пароль>")
	default:
		log.WithError(err).Error(logMsg)
		h.sendMessage(chatID, "❌ "+logMsg)
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

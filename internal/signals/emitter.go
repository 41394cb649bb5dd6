// Package signals эмитит наблюдаемые события доски для внешнего мониторинга.
// Каждое изменение состояния (подача, голос, расчёт, бан, покупка) выдаёт
// ровно один структурированный лог — внутри ничего не хранится.
package signals

import (
	log "github.com/sirupsen/logrus"
)

// Emitter выдаёт сигналы через logrus с фиксированным полем signal.
type Emitter struct{}

// New создаёт эмиттер сигналов.
func New() *Emitter {
	return &Emitter{}
}

func (e *Emitter) emit(name string, fields log.Fields) {
	fields["signal"] = name
	log.WithFields(fields).Info("Сигнал доски")
}

// SubmissionRecorded — уведомление принято и залог удержан.
func (e *Emitter) SubmissionRecorded(id, senderID, deposit int64, category string) {
	e.emit("submission_recorded", log.Fields{
		"notification_id": id,
		"sender_id":       senderID,
		"deposit":         deposit,
		"category":        category,
	})
}

// VoteRecorded — голос учтён (verdict: validate/reject).
func (e *Emitter) VoteRecorded(id, voterID int64, verdict string) {
	e.emit("vote_recorded", log.Fields{
		"notification_id": id,
		"voter_id":        voterID,
		"verdict":         verdict,
	})
}

// RewardIssued — отправителю начислена награда за валидацию.
func (e *Emitter) RewardIssued(id, senderID, reward int64, tier string) {
	e.emit("reward_issued", log.Fields{
		"notification_id": id,
		"sender_id":       senderID,
		"reward":          reward,
		"tier":            tier,
	})
}

// TierChanged — уровень пользователя изменился.
func (e *Emitter) TierChanged(userID int64, from, to string) {
	e.emit("tier_changed", log.Fields{
		"user_id": userID,
		"from":    from,
		"to":      to,
	})
}

// DepositReturned — залог возвращён отправителю.
func (e *Emitter) DepositReturned(id, senderID, amount int64) {
	e.emit("deposit_returned", log.Fields{
		"notification_id": id,
		"sender_id":       senderID,
		"amount":          amount,
	})
}

// DepositConfiscated — залог конфискован в казну.
func (e *Emitter) DepositConfiscated(id, senderID, amount int64) {
	e.emit("deposit_confiscated", log.Fields{
		"notification_id": id,
		"sender_id":       senderID,
		"amount":          amount,
	})
}

// BanIssued — пользователь забанен за отклонённые уведомления.
func (e *Emitter) BanIssued(userID int64, expiresAt string) {
	e.emit("ban_issued", log.Fields{
		"user_id":    userID,
		"expires_at": expiresAt,
	})
}

// BanLifted — пользователь снял бан после истечения срока.
func (e *Emitter) BanLifted(userID int64) {
	e.emit("ban_lifted", log.Fields{"user_id": userID})
}

// TicketPurchased — билет куплен за кредиты.
func (e *Emitter) TicketPurchased(userID int64, ticketType string, price int64) {
	e.emit("ticket_purchased", log.Fields{
		"user_id": userID,
		"type":    ticketType,
		"price":   price,
	})
}

// ThresholdsChanged — владелец изменил пороги уровней.
func (e *Emitter) ThresholdsChanged(silver, gold, platinum int64) {
	e.emit("thresholds_changed", log.Fields{
		"silver":   silver,
		"gold":     gold,
		"platinum": platinum,
	})
}

// RequirementChanged — владелец изменил размер залога.
func (e *Emitter) RequirementChanged(amount int64) {
	e.emit("requirement_changed", log.Fields{"amount": amount})
}

// OperatingFundsMoved — движение операционных средств казны (deposit/withdraw).
func (e *Emitter) OperatingFundsMoved(direction string, amount, balance int64) {
	e.emit("operating_funds_"+direction, log.Fields{
		"amount":  amount,
		"balance": balance,
	})
}

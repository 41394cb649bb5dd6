// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях доски объявлений.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки подачи уведомлений
var (
	// ErrBanned — отправитель забанен и не может подавать уведомления
	ErrBanned = errors.New("вы забанены и не можете подавать уведомления")
	// ErrCooldownActive — не прошёл кулдаун с прошлой подачи
	ErrCooldownActive = errors.New("слишком рано, подождите окончания кулдауна")
	// ErrInsufficientDeposit — приложенная сумма меньше требуемого залога
	ErrInsufficientDeposit = errors.New("недостаточно монет для залога")
	// ErrUnknownCategory — категория не из списка допустимых
	ErrUnknownCategory = errors.New("неизвестная категория уведомления")
	// ErrEmptyMessage — пустой текст уведомления
	ErrEmptyMessage = errors.New("текст уведомления не может быть пустым")
)

// Ошибки голосования
var (
	// ErrNotificationNotFound — уведомление с таким id не существует
	ErrNotificationNotFound = errors.New("уведомление не найдено")
	// ErrNotificationExpired — срок жизни уведомления истёк
	ErrNotificationExpired = errors.New("срок голосования по уведомлению истёк")
	// ErrAlreadyVoted — пользователь уже голосовал по этому уведомлению
	ErrAlreadyVoted = errors.New("вы уже голосовали по этому уведомлению")
	// ErrSelfVote — попытка голосовать за собственное уведомление
	ErrSelfVote = errors.New("нельзя голосовать за собственное уведомление")
	// ErrAlreadySettled — уведомление уже подтверждено или отклонено
	ErrAlreadySettled = errors.New("голосование по уведомлению уже завершено")
)

// Ошибки разбана
var (
	// ErrNotBanned — пользователь не забанен
	ErrNotBanned = errors.New("вы не забанены")
	// ErrBanNotExpired — срок бана ещё не истёк
	ErrBanNotExpired = errors.New("срок бана ещё не истёк")
)

// Ошибки билетов и балансов
var (
	// ErrUnknownTicketType — тип билета не из прайс-листа
	ErrUnknownTicketType = errors.New("неизвестный тип билета")
	// ErrInsufficientBalance — недостаточно кредитов на счёте
	ErrInsufficientBalance = errors.New("недостаточно кредитов на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки админки
var (
	// ErrNotOwner — пользователь не является владельцем доски
	ErrNotOwner = errors.New("у вас нет прав владельца")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
	// ErrThresholdsNotAscending — пороги уровней не строго возрастают
	ErrThresholdsNotAscending = errors.New("пороги уровней должны строго возрастать")
	// ErrInsufficientFunds — в казне недостаточно операционных средств
	ErrInsufficientFunds = errors.New("в казне недостаточно средств")
)

package models

import (
	"errors"
	"fmt"
)

// Ошибки валидации: ничего не сохраняется.
var (
	ErrInvalidTemplate = errors.New("invalid template")
	ErrEmptySchedule   = errors.New("template generates no occurrences")
)

// Ошибки конфликта состояния: повтор без изменения входных данных даст тот же результат.
var (
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrOccurrenceFull       = errors.New("occurrence is full")
	ErrOccurrenceStarted    = errors.New("occurrence already started")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrInsufficientBalance  = errors.New("insufficient session balance")
	ErrAlreadyCheckedIn     = errors.New("already checked in")
	ErrAlreadyStarted       = errors.New("class already started")
	ErrInvalidTransition    = errors.New("invalid registration status transition")
	ErrNotOwner             = errors.New("registration belongs to another member")
	ErrAbsenceNotDue        = errors.New("absence grace period has not elapsed")
	ErrHasDependents        = errors.New("template has registrations or checkins")
)

// Ошибки отсутствия.
var (
	ErrNotFound     = errors.New("not found")
	ErrCodeNotFound = errors.New("scan code not found")
)

// AlreadyCheckedInError повторное сканирование кода уже отмеченной записи.
// Содержит участника, чтобы на ресепшене было видно, кто уже прошёл.
type AlreadyCheckedInError struct {
	RegistrationID int64
	MemberID       int64
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("registration %d: member %d already checked in", e.RegistrationID, e.MemberID)
}

// Is позволяет сравнивать через errors.Is(err, ErrAlreadyCheckedIn).
func (e *AlreadyCheckedInError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}

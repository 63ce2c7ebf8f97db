package models

import "time"

// RegistrationStatus статус записи на занятие.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAbsent     RegistrationStatus = "absent"
)

// registrationTransitions допустимые переходы. Из финальных статусов переходов нет.
var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationRegistered: {RegistrationAttended, RegistrationCancelled, RegistrationAbsent},
}

// CanTransition сообщает, разрешён ли переход from -> to.
func CanTransition(from, to RegistrationStatus) bool {
	for _, s := range registrationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal true для attended, cancelled и absent.
func (s RegistrationStatus) Terminal() bool {
	return len(registrationTransitions[s]) == 0
}

// Registration запись участника на занятие.
// SubscriptionID абонемент, с которого списано занятие при записи.
type Registration struct {
	ID             int64              `json:"id"`
	MemberID       int64              `json:"member_id"`
	OccurrenceID   int64              `json:"occurrence_id"`
	SubscriptionID int64              `json:"subscription_id"`
	ScanCode       string             `json:"scan_code"`
	Status         RegistrationStatus `json:"status"`
	RegisteredAt   time.Time          `json:"registered_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Checkin факт прихода на занятие. Создаётся не больше одного раза на запись.
type Checkin struct {
	ID              int64     `json:"id"`
	RegistrationID  int64     `json:"registration_id"`
	MemberID        int64     `json:"member_id"`
	CheckedInAt     time.Time `json:"checked_in_at"`
	SessionConsumed bool      `json:"session_consumed"`
}

// AbsenceCandidate запись, которую сверка должна перевести в absent.
type AbsenceCandidate struct {
	RegistrationID int64
	OccurrenceID   int64
	MemberID       int64
	EndsAt         time.Time
}

// DummyCheckin тело запроса отметки посещения.
type DummyCheckin struct {
	Code string `json:"code" validate:"required"`
}

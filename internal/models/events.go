package models

import "time"

// EventType ключ маршрутизации события по записи.
type EventType string

const (
	EventBooked    EventType = "registration.booked"
	EventCancelled EventType = "registration.cancelled"
	EventAttended  EventType = "registration.attended"
	EventAbsent    EventType = "registration.absent"
)

// RegistrationEvent событие, публикуемое после фиксации перехода записи.
// SessionsDelta изменение баланса этим переходом: -1 списание, +1 возврат, 0 без изменений.
type RegistrationEvent struct {
	Type           EventType `json:"type"`
	RegistrationID int64     `json:"registration_id"`
	MemberID       int64     `json:"member_id"`
	OccurrenceID   int64     `json:"occurrence_id"`
	SessionsDelta  int       `json:"sessions_delta"`
	Refund         string    `json:"refund,omitempty"`
	At             time.Time `json:"at"`
}

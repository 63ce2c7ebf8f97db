package models

import "time"

// Occurrence конкретное занятие в конкретный день, на которое можно записаться.
// Вместимость копируется из шаблона при создании и дальше с ним не связана.
type Occurrence struct {
	ID               int64     `json:"id"`
	TemplateID       int64     `json:"template_id"`
	ClassID          int64     `json:"class_id"`
	TrainerID        int64     `json:"trainer_id"`
	Date             time.Time `json:"date"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	Capacity         int       `json:"capacity"`
	ParticipantCount int       `json:"participant_count"`
}

// SeatsLeft количество свободных мест.
func (o Occurrence) SeatsLeft() int {
	if o.ParticipantCount >= o.Capacity {
		return 0
	}
	return o.Capacity - o.ParticipantCount
}

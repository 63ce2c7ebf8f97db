// Package models содержит доменные структуры студии: шаблоны расписания,
// занятия, абонементы, записи и отметки посещения, а также типы запросов,
// приходящих из JSON.
package models

import (
	"fmt"
	"time"
)

// DateLayout формат календарной даты в запросах и ответах.
const DateLayout = "2006-01-02"

// Repetition вид повторения шаблона.
type Repetition string

const (
	RepeatOnce   Repetition = "once"
	RepeatDaily  Repetition = "daily"
	RepeatWeekly Repetition = "weekly"
)

// TimeOfDay время начала или окончания занятия в пределах суток.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay разбирает строку вида "08:00".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayFromMinutes собирает TimeOfDay из числа минут от полуночи.
func TimeOfDayFromMinutes(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// Minutes возвращает число минут от полуночи.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On возвращает момент времени t в календарный день date в часовом поясе loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

// ScheduleTemplate шаблон регулярного занятия, из которого генерируются Occurrence.
// Для RepeatOnce используется ScheduleDate, для остальных: диапазон [StartDate, EndDate].
// DayOfWeek задаётся только для RepeatWeekly: 0 = воскресенье, 6 = суббота.
type ScheduleTemplate struct {
	ID              int64
	ClassID         int64
	TrainerID       int64
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	Repetition      Repetition
	DayOfWeek       *time.Weekday
	StartDate       time.Time
	EndDate         time.Time
	ScheduleDate    time.Time
	MaxParticipants int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Class строка каталога занятий. Каталог ведётся вне этого сервиса, здесь нужна только вместимость зала.
type Class struct {
	ID       int64
	Name     string
	Capacity int
}

// DummyTemplate используется для приёма шаблона из JSON-запроса до валидации
// и преобразования в ScheduleTemplate. Даты приходят строками в формате 2006-01-02.
type DummyTemplate struct {
	ClassID         int64  `json:"class_id" validate:"required,gt=0"`
	TrainerID       int64  `json:"trainer_id" validate:"required,gt=0"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	Repetition      string `json:"repetition" validate:"required,oneof=once daily weekly"`
	DayOfWeek       *int   `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
	ScheduleDate    string `json:"schedule_date,omitempty"`
	MaxParticipants int    `json:"max_participants" validate:"required,gt=0"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

// Package schedule разворачивает шаблон расписания в список дат занятий.
// Пакет не обращается к хранилищу и не имеет побочных эффектов.
package schedule

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// Slot одно занятие, полученное из шаблона.
type Slot struct {
	Date     time.Time
	StartsAt time.Time
	EndsAt   time.Time
}

// Dates возвращает упорядоченный список календарных дат занятий шаблона.
// Пустой результат: ошибка models.ErrEmptySchedule.
func Dates(t models.ScheduleTemplate) ([]time.Time, error) {
	var dates []time.Time

	switch t.Repetition {
	case models.RepeatOnce:
		if t.ScheduleDate.IsZero() {
			return nil, fmt.Errorf("%w: schedule_date is required for once", models.ErrInvalidTemplate)
		}
		dates = []time.Time{civil(t.ScheduleDate)}
	case models.RepeatDaily:
		start, end := civil(t.StartDate), civil(t.EndDate)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	case models.RepeatWeekly:
		if t.DayOfWeek == nil {
			return nil, fmt.Errorf("%w: day_of_week is required for weekly", models.ErrInvalidTemplate)
		}
		start, end := civil(t.StartDate), civil(t.EndDate)
		offset := (int(*t.DayOfWeek) - int(start.Weekday()) + 7) % 7
		for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	default:
		return nil, fmt.Errorf("%w: unknown repetition %q", models.ErrInvalidTemplate, t.Repetition)
	}

	if len(dates) == 0 {
		return nil, models.ErrEmptySchedule
	}
	return dates, nil
}

// Expand разворачивает шаблон в слоты с моментами начала и окончания в часовом поясе студии.
func Expand(t models.ScheduleTemplate, loc *time.Location) ([]Slot, error) {
	if t.EndTime.Minutes() <= t.StartTime.Minutes() {
		return nil, fmt.Errorf("%w: end_time must be after start_time", models.ErrInvalidTemplate)
	}
	dates, err := Dates(t)
	if err != nil {
		return nil, err
	}
	slots := make([]Slot, 0, len(dates))
	for _, d := range dates {
		slots = append(slots, Slot{
			Date:     d,
			StartsAt: t.StartTime.On(d, loc),
			EndsAt:   t.EndTime.On(d, loc),
		})
	}
	return slots, nil
}

// Capacity вместимость занятия: меньшее из лимита шаблона и вместимости зала.
func Capacity(maxParticipants, classCapacity int) int {
	return min(maxParticipants, classCapacity)
}

// civil отбрасывает время суток, дата хранится как полночь UTC.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

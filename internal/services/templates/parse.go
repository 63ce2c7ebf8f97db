package templates

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// ParseTemplate проверяет и переводит тело запроса в ScheduleTemplate.
// Ошибки оборачивают models.ErrInvalidTemplate.
func ParseTemplate(req models.DummyTemplate) (*models.ScheduleTemplate, error) {
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start_time: %v", models.ErrInvalidTemplate, err)
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: end_time: %v", models.ErrInvalidTemplate, err)
	}

	t := &models.ScheduleTemplate{
		ClassID:         req.ClassID,
		TrainerID:       req.TrainerID,
		StartTime:       start,
		EndTime:         end,
		Repetition:      models.Repetition(req.Repetition),
		MaxParticipants: req.MaxParticipants,
		IsActive:        req.IsActive == nil || *req.IsActive,
	}

	switch t.Repetition {
	case models.RepeatOnce:
		if t.ScheduleDate, err = parseDate("schedule_date", req.ScheduleDate); err != nil {
			return nil, err
		}
	case models.RepeatDaily, models.RepeatWeekly:
		if t.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
			return nil, err
		}
		if t.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
			return nil, err
		}
		if t.Repetition == models.RepeatWeekly {
			if req.DayOfWeek == nil {
				return nil, fmt.Errorf("%w: day_of_week is required for weekly", models.ErrInvalidTemplate)
			}
			if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
				return nil, fmt.Errorf("%w: day_of_week must be in 0..6", models.ErrInvalidTemplate)
			}
			dow := time.Weekday(*req.DayOfWeek)
			t.DayOfWeek = &dow
		}
	default:
		return nil, fmt.Errorf("%w: unknown repetition %q", models.ErrInvalidTemplate, req.Repetition)
	}

	if t.MaxParticipants <= 0 {
		return nil, fmt.Errorf("%w: max_participants must be positive", models.ErrInvalidTemplate)
	}
	return t, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", models.ErrInvalidTemplate, field)
	}
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", models.ErrInvalidTemplate, field, err)
	}
	return d, nil
}

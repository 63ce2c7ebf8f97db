package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

func (t *tx) ClassByID(ctx context.Context, id int64) (*models.Class, error) {
	const op = "storage.ClassByID"
	var c models.Class
	err := t.tx.QueryRowContext(ctx, `SELECT id, name, capacity FROM classes WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Capacity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &c, nil
}

func (t *tx) CreateTemplate(ctx context.Context, tmpl *models.ScheduleTemplate) error {
	const op = "storage.CreateTemplate"
	query := `INSERT INTO schedule_templates (class_id, trainer_id, start_minute, end_minute, repetition,
				  day_of_week, start_date, end_date, schedule_date, max_participants, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  RETURNING id`
	err := t.tx.QueryRowContext(ctx, query, templateArgs(tmpl)...).Scan(&tmpl.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *tx) UpdateTemplate(ctx context.Context, tmpl *models.ScheduleTemplate) error {
	const op = "storage.UpdateTemplate"
	query := `UPDATE schedule_templates
			  SET class_id = $1, trainer_id = $2, start_minute = $3, end_minute = $4, repetition = $5,
				  day_of_week = $6, start_date = $7, end_date = $8, schedule_date = $9,
				  max_participants = $10, is_active = $11, created_at = $12, updated_at = $13
			  WHERE id = $14`
	res, err := t.tx.ExecContext(ctx, query, append(templateArgs(tmpl), tmpl.ID)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func templateArgs(tmpl *models.ScheduleTemplate) []any {
	var dow sql.NullInt16
	if tmpl.DayOfWeek != nil {
		dow = sql.NullInt16{Int16: int16(*tmpl.DayOfWeek), Valid: true}
	}
	return []any{
		tmpl.ClassID, tmpl.TrainerID, tmpl.StartTime.Minutes(), tmpl.EndTime.Minutes(), string(tmpl.Repetition),
		dow, nullDate(tmpl.StartDate), nullDate(tmpl.EndDate), nullDate(tmpl.ScheduleDate),
		tmpl.MaxParticipants, tmpl.IsActive, tmpl.CreatedAt, tmpl.UpdatedAt,
	}
}

// DeleteTemplate удаляет шаблон; занятия удаляются каскадом.
func (t *tx) DeleteTemplate(ctx context.Context, id int64) error {
	const op = "storage.DeleteTemplate"
	res, err := t.tx.ExecContext(ctx, `DELETE FROM schedule_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func (t *tx) TemplateByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	const op = "storage.TemplateByID"
	query := `SELECT id, class_id, trainer_id, start_minute, end_minute, repetition, day_of_week,
				  start_date, end_date, schedule_date, max_participants, is_active, created_at, updated_at
			  FROM schedule_templates WHERE id = $1`

	var (
		tmpl                          models.ScheduleTemplate
		startMin, endMin              int
		repetition                    string
		dow                           sql.NullInt16
		startDate, endDate, schedDate sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&tmpl.ID, &tmpl.ClassID, &tmpl.TrainerID, &startMin, &endMin,
		&repetition, &dow, &startDate, &endDate, &schedDate, &tmpl.MaxParticipants, &tmpl.IsActive,
		&tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	tmpl.StartTime = models.TimeOfDayFromMinutes(startMin)
	tmpl.EndTime = models.TimeOfDayFromMinutes(endMin)
	tmpl.Repetition = models.Repetition(repetition)
	if dow.Valid {
		d := time.Weekday(dow.Int16)
		tmpl.DayOfWeek = &d
	}
	tmpl.StartDate = startDate.Time
	tmpl.EndDate = endDate.Time
	tmpl.ScheduleDate = schedDate.Time
	return &tmpl, nil
}

// TemplateHasDependents true, если на любое занятие шаблона есть запись в любом статусе или отметка.
func (t *tx) TemplateHasDependents(ctx context.Context, templateID int64) (bool, error) {
	const op = "storage.TemplateHasDependents"
	query := `SELECT EXISTS (
				SELECT 1 FROM registrations r
				JOIN occurrences o ON o.id = r.occurrence_id
				WHERE o.template_id = $1
			  )`
	var has bool
	if err := t.tx.QueryRowContext(ctx, query, templateID).Scan(&has); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return has, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

const occurrenceColumns = `id, COALESCE(template_id, 0), class_id, trainer_id, occurrence_date, starts_at, ends_at,
	capacity, participant_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOccurrence(row rowScanner) (*models.Occurrence, error) {
	var o models.Occurrence
	err := row.Scan(&o.ID, &o.TemplateID, &o.ClassID, &o.TrainerID, &o.Date, &o.StartsAt, &o.EndsAt,
		&o.Capacity, &o.ParticipantCount)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOccurrences вставляет занятия и возвращает их идентификаторы в том же порядке.
func (t *tx) CreateOccurrences(ctx context.Context, occurrences []models.Occurrence) ([]int64, error) {
	const op = "storage.CreateOccurrences"

	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO occurrences
			(template_id, class_id, trainer_id, occurrence_date, starts_at, ends_at, capacity, participant_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(occurrences))
	for _, o := range occurrences {
		var id int64
		templateID := sql.NullInt64{Int64: o.TemplateID, Valid: o.TemplateID != 0}
		if err := stmt.QueryRowContext(ctx, templateID, o.ClassID, o.TrainerID, o.Date, o.StartsAt, o.EndsAt, o.Capacity).
			Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *tx) DeleteOccurrencesByTemplate(ctx context.Context, templateID int64) error {
	const op = "storage.DeleteOccurrencesByTemplate"
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM occurrences WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *tx) OccurrencesByTemplate(ctx context.Context, templateID int64) ([]models.Occurrence, error) {
	const op = "storage.OccurrencesByTemplate"
	rows, err := t.tx.QueryContext(ctx, `SELECT `+occurrenceColumns+`
		FROM occurrences WHERE template_id = $1 ORDER BY starts_at`, templateID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (t *tx) OccurrenceByID(ctx context.Context, id int64) (*models.Occurrence, error) {
	const op = "storage.OccurrenceByID"
	o, err := scanOccurrence(t.tx.QueryRowContext(ctx, `SELECT `+occurrenceColumns+` FROM occurrences WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return o, nil
}

// ReserveSeat занимает место условным UPDATE: из двух конкурентных вызовов за
// последнее место один получит models.ErrOccurrenceFull.
func (t *tx) ReserveSeat(ctx context.Context, occurrenceID int64) error {
	const op = "storage.ReserveSeat"
	res, err := t.tx.ExecContext(ctx, `UPDATE occurrences
		SET participant_count = participant_count + 1
		WHERE id = $1 AND participant_count < capacity`, occurrenceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return nil
	}

	ok, err := t.exists(ctx, "occurrences", occurrenceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrOccurrenceFull)
}

func (t *tx) ReleaseSeat(ctx context.Context, occurrenceID int64) error {
	const op = "storage.ReleaseSeat"
	res, err := t.tx.ExecContext(ctx, `UPDATE occurrences
		SET participant_count = GREATEST(participant_count - 1, 0)
		WHERE id = $1`, occurrenceID)
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

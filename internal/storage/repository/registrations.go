package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

const registrationColumns = `id, member_id, occurrence_id, subscription_id, scan_code, status, registered_at, updated_at`

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		r      models.Registration
		status string
	)
	err := row.Scan(&r.ID, &r.MemberID, &r.OccurrenceID, &r.SubscriptionID, &r.ScanCode, &status,
		&r.RegisteredAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = models.RegistrationStatus(status)
	return &r, nil
}

func (t *tx) HasRegistered(ctx context.Context, memberID, occurrenceID int64) (bool, error) {
	const op = "storage.HasRegistered"
	var has bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM registrations
		WHERE member_id = $1 AND occurrence_id = $2 AND status = 'registered'
	)`, memberID, occurrenceID).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return has, nil
}

// CreateRegistration вставляет запись. Частичный уникальный индекс по
// (member_id, occurrence_id) для registered ловит гонку двух одинаковых записей.
func (t *tx) CreateRegistration(ctx context.Context, r *models.Registration) error {
	const op = "storage.CreateRegistration"
	err := t.tx.QueryRowContext(ctx, `INSERT INTO registrations
			(member_id, occurrence_id, subscription_id, scan_code, status, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		r.MemberID, r.OccurrenceID, r.SubscriptionID, r.ScanCode, string(r.Status), r.RegisteredAt).Scan(&r.ID)
	if constraint, ok := uniqueConstraint(err); ok && constraint == activeRegistrationIndex {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyRegistered)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.UpdatedAt = r.RegisteredAt
	return nil
}

func (t *tx) RegistrationByID(ctx context.Context, id int64) (*models.Registration, error) {
	const op = "storage.RegistrationByID"
	r, err := scanRegistration(t.tx.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return r, nil
}

func (t *tx) RegistrationByCode(ctx context.Context, code string) (*models.Registration, error) {
	const op = "storage.RegistrationByCode"
	r, err := scanRegistration(t.tx.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE scan_code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return r, nil
}

// TransitionRegistration условный переход из registered. Если запись уже
// в другом статусе, возвращает models.ErrInvalidTransition.
func (t *tx) TransitionRegistration(ctx context.Context, id int64, to models.RegistrationStatus, at time.Time) error {
	const op = "storage.TransitionRegistration"
	if !models.CanTransition(models.RegistrationRegistered, to) {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidTransition)
	}

	res, err := t.tx.ExecContext(ctx, `UPDATE registrations
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'registered'`, id, string(to), at)
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

	ok, err := t.exists(ctx, "registrations", id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrInvalidTransition)
}

func (t *tx) AbsenceCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.AbsenceCandidate, error) {
	const op = "storage.AbsenceCandidates"
	rows, err := t.tx.QueryContext(ctx, `SELECT r.id, r.occurrence_id, r.member_id, o.ends_at
		FROM registrations r
		JOIN occurrences o ON o.id = r.occurrence_id
		LEFT JOIN checkins c ON c.registration_id = r.id
		WHERE r.status = 'registered' AND o.ends_at < $1 AND c.id IS NULL
		ORDER BY r.id
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.AbsenceCandidate
	for rows.Next() {
		var c models.AbsenceCandidate
		if err := rows.Scan(&c.RegistrationID, &c.OccurrenceID, &c.MemberID, &c.EndsAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (t *tx) CheckinByRegistration(ctx context.Context, registrationID int64) (*models.Checkin, error) {
	const op = "storage.CheckinByRegistration"
	var c models.Checkin
	err := t.tx.QueryRowContext(ctx, `SELECT id, registration_id, member_id, checked_in_at, session_consumed
		FROM checkins WHERE registration_id = $1`, registrationID).
		Scan(&c.ID, &c.RegistrationID, &c.MemberID, &c.CheckedInAt, &c.SessionConsumed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &c, nil
}

func (t *tx) CreateCheckin(ctx context.Context, c *models.Checkin) error {
	const op = "storage.CreateCheckin"
	err := t.tx.QueryRowContext(ctx, `INSERT INTO checkins (registration_id, member_id, checked_in_at, session_consumed)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, c.RegistrationID, c.MemberID, c.CheckedInAt, c.SessionConsumed).Scan(&c.ID)
	if constraint, ok := uniqueConstraint(err); ok && constraint == checkinRegistrationKey {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyCheckedIn)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// ActiveSubscription самый поздний по дате начала абонемент active; при равенстве дат больший id.
func (t *tx) ActiveSubscription(ctx context.Context, memberID int64) (*models.Subscription, error) {
	const op = "storage.ActiveSubscription"
	query := `SELECT id, member_id, plan_id, start_date, end_date, sessions_total, sessions_remaining, status
			  FROM subscriptions
			  WHERE member_id = $1 AND status = 'active'
			  ORDER BY start_date DESC, id DESC
			  LIMIT 1`

	var (
		sub    models.Subscription
		status string
	)
	err := t.tx.QueryRowContext(ctx, query, memberID).Scan(&sub.ID, &sub.MemberID, &sub.PlanID,
		&sub.StartDate, &sub.EndDate, &sub.SessionsTotal, &sub.SessionsRemaining, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNoActiveSubscription)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}

// DebitSessions списывает n занятий, только если их хватает.
func (t *tx) DebitSessions(ctx context.Context, subscriptionID int64, n int) (int, error) {
	const op = "storage.DebitSessions"
	var balance int
	err := t.tx.QueryRowContext(ctx, `UPDATE subscriptions
		SET sessions_remaining = sessions_remaining - $2
		WHERE id = $1 AND sessions_remaining >= $2
		RETURNING sessions_remaining`, subscriptionID, n).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := t.exists(ctx, "subscriptions", subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return 0, fmt.Errorf("%s: %w", op, models.ErrInsufficientBalance)
}

// CreditSessions возвращает n занятий. При capAtTotal остаток не поднимается выше
// sessions_total, но и не уменьшается, если уже был выше.
func (t *tx) CreditSessions(ctx context.Context, subscriptionID int64, n int, capAtTotal bool) (int, error) {
	const op = "storage.CreditSessions"
	var balance int
	err := t.tx.QueryRowContext(ctx, `UPDATE subscriptions
		SET sessions_remaining = CASE
			WHEN $3 THEN LEAST(sessions_remaining + $2, GREATEST(sessions_total, sessions_remaining))
			ELSE sessions_remaining + $2
		END
		WHERE id = $1
		RETURNING sessions_remaining`, subscriptionID, n, capAtTotal).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return balance, nil
}

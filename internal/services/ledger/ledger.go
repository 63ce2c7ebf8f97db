// Package ledger ведёт баланс занятий абонемента и отвечает за то, чтобы
// sessions_remaining никогда не уходил в минус. Ledger создаётся на время
// одной транзакции: списание и возврат фиксируются вместе с переходом статуса
// записи или не фиксируются вовсе.
package ledger

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// Store операции хранилища, которые нужны ledger.
type Store interface {
	ActiveSubscription(ctx context.Context, memberID int64) (*models.Subscription, error)
	DebitSessions(ctx context.Context, subscriptionID int64, n int) (int, error)
	CreditSessions(ctx context.Context, subscriptionID int64, n int, capAtTotal bool) (int, error)
}

// Ledger баланс занятий в рамках транзакции.
type Ledger struct {
	store      Store
	capRefunds bool
}

// Option настройка Ledger.
type Option func(*Ledger)

// WithRefundCap ограничивает возвраты исходным количеством занятий по тарифу.
func WithRefundCap(enabled bool) Option {
	return func(l *Ledger) { l.capRefunds = enabled }
}

// New создаёт Ledger поверх транзакции store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Debit списывает n занятий и возвращает новый остаток.
// Если остаток меньше n: models.ErrInsufficientBalance, баланс не меняется.
func (l *Ledger) Debit(ctx context.Context, subscriptionID int64, n int) (int, error) {
	const op = "ledger.Debit"
	if n <= 0 {
		return 0, fmt.Errorf("%s: amount must be positive, got %d", op, n)
	}
	balance, err := l.store.DebitSessions(ctx, subscriptionID, n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// Credit возвращает n занятий и возвращает новый остаток.
func (l *Ledger) Credit(ctx context.Context, subscriptionID int64, n int) (int, error) {
	const op = "ledger.Credit"
	if n <= 0 {
		return 0, fmt.Errorf("%s: amount must be positive, got %d", op, n)
	}
	balance, err := l.store.CreditSessions(ctx, subscriptionID, n, l.capRefunds)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// ActiveSubscriptionFor возвращает активный абонемент участника.
// Нет абонемента: models.ErrNoActiveSubscription; нулевой остаток ошибкой не считается,
// это решает вызывающий код.
func (l *Ledger) ActiveSubscriptionFor(ctx context.Context, memberID int64) (*models.Subscription, error) {
	const op = "ledger.ActiveSubscriptionFor"
	sub, err := l.store.ActiveSubscription(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

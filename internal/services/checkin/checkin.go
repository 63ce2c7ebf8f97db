// Package checkin проверяет код, отсканированный на ресепшене, и отмечает посещение.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/studio-scheduler/internal/lib/scancode"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/metrics"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/booking"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/ledger"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage"
)

// Attender переход записи в attended.
type Attender interface {
	Attend(ctx context.Context, registrationID int64) (*booking.AttendResult, error)
}

// Result результат успешной отметки.
type Result struct {
	Checkin  *models.Checkin `json:"checkin"`
	MemberID int64           `json:"member_id"`
	Balance  int             `json:"sessions_remaining"`
}

// Validator проверяет код и вызывает Attend.
type Validator struct {
	store            storage.TxRunner
	attender         Attender
	admitZeroBalance bool
	log              *slog.Logger
}

// New создаёт Validator. По умолчанию участник с нулевым остатком не проходит
// (models.ErrInsufficientBalance); admitZeroBalance снимает только эту проверку,
// активный абонемент нужен всегда.
func New(store storage.TxRunner, attender Attender, admitZeroBalance bool, log *slog.Logger) *Validator {
	return &Validator{
		store:            store,
		attender:         attender,
		admitZeroBalance: admitZeroBalance,
		log:              log,
	}
}

// CheckIn находит запись по коду и отмечает посещение.
//
// Коды отменённых записей и записей с неявкой не находятся (models.ErrCodeNotFound).
// Повторный скан отмеченной записи возвращает *models.AlreadyCheckedInError с участником.
func (v *Validator) CheckIn(ctx context.Context, code string) (*Result, error) {
	const op = "checkin.CheckIn"
	log := v.log.With(slog.String("op", op))

	res, err := v.checkIn(ctx, scancode.Normalize(code))
	metrics.CheckinsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		log.Info("check-in refused", slog.String("reason", metrics.Outcome(err)))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("member checked in", sl.Member(res.MemberID), slog.Int("balance", res.Balance))
	return res, nil
}

func (v *Validator) checkIn(ctx context.Context, code string) (*Result, error) {
	if code == "" {
		return nil, models.ErrCodeNotFound
	}

	var reg *models.Registration
	err := v.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		reg, err = tx.RegistrationByCode(ctx, code)
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrCodeNotFound
		}
		if err != nil {
			return err
		}

		switch reg.Status {
		case models.RegistrationAttended:
			return &models.AlreadyCheckedInError{RegistrationID: reg.ID, MemberID: reg.MemberID}
		case models.RegistrationCancelled, models.RegistrationAbsent:
			return models.ErrCodeNotFound
		}

		sub, err := ledger.New(tx).ActiveSubscriptionFor(ctx, reg.MemberID)
		if err != nil {
			return err
		}
		if sub.SessionsRemaining <= 0 && !v.admitZeroBalance {
			return models.ErrInsufficientBalance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attended, err := v.attender.Attend(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Checkin:  attended.Checkin,
		MemberID: reg.MemberID,
		Balance:  attended.Balance,
	}, nil
}

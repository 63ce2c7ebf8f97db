// Package booking машина состояний записи на занятие: запись, отмена,
// отметка посещения и неявка. Каждый переход выполняется одной транзакцией
// хранилища вместе с изменением баланса занятий; события и сброс кэша
// отправляются только после фиксации.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/studio-scheduler/internal/lib/clock"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/scancode"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/metrics"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/ledger"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage"
)

// Publisher отправляет доменные события.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// OccurrenceCache сбрасывает закэшированный список занятий шаблона.
type OccurrenceCache interface {
	InvalidateOccurrences(ctx context.Context, templateID int64) error
}

// Service переходы записи.
type Service struct {
	store  storage.TxRunner
	clock  clock.Clock
	policy Policy
	events Publisher
	cache  OccurrenceCache
	log    *slog.Logger
}

// Option настройка Service.
type Option func(*Service)

// WithPublisher публикует события после каждого зафиксированного перехода.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithCache сбрасывает кэш занятий при изменении числа участников.
func WithCache(c OccurrenceCache) Option {
	return func(s *Service) { s.cache = c }
}

// New создаёт Service.
func New(store storage.TxRunner, clk clock.Clock, policy Policy, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  clk,
		policy: policy,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookResult результат записи.
type BookResult struct {
	Registration *models.Registration `json:"registration"`
	Balance      int                  `json:"sessions_remaining"`
}

// CancelResult результат отмены.
type CancelResult struct {
	Registration *models.Registration `json:"registration"`
	Refund       RefundOutcome        `json:"refund"`
	Balance      int                  `json:"sessions_remaining"`
}

// AttendResult результат отметки посещения.
type AttendResult struct {
	Checkin *models.Checkin `json:"checkin"`
	Balance int             `json:"sessions_remaining"`
}

func (s *Service) ledger(tx storage.Tx) *ledger.Ledger {
	return ledger.New(tx, ledger.WithRefundCap(s.policy.CapRefunds))
}

// Book записывает участника на занятие и списывает одно занятие с активного абонемента.
func (s *Service) Book(ctx context.Context, memberID, occurrenceID int64) (*BookResult, error) {
	const op = "booking.Book"
	log := s.log.With(slog.String("op", op), sl.Member(memberID), sl.Occurrence(occurrenceID))

	now := s.clock.Now()
	var (
		res *BookResult
		occ *models.Occurrence
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		occ, err = tx.OccurrenceByID(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if !occ.StartsAt.After(now) {
			return models.ErrOccurrenceStarted
		}

		registered, err := tx.HasRegistered(ctx, memberID, occurrenceID)
		if err != nil {
			return err
		}
		if registered {
			return models.ErrAlreadyRegistered
		}

		led := s.ledger(tx)
		sub, err := led.ActiveSubscriptionFor(ctx, memberID)
		if err != nil {
			return err
		}
		if sub.SessionsRemaining <= 0 {
			return models.ErrInsufficientBalance
		}

		if err := tx.ReserveSeat(ctx, occurrenceID); err != nil {
			return err
		}

		reg := &models.Registration{
			MemberID:       memberID,
			OccurrenceID:   occurrenceID,
			SubscriptionID: sub.ID,
			ScanCode:       scancode.New(),
			Status:         models.RegistrationRegistered,
			RegisteredAt:   now,
		}
		if err := tx.CreateRegistration(ctx, reg); err != nil {
			return err
		}

		balance, err := led.Debit(ctx, sub.ID, 1)
		if err != nil {
			return err
		}
		res = &BookResult{Registration: reg, Balance: balance}
		return nil
	})
	metrics.BookingsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("registration booked", sl.Registration(res.Registration.ID), slog.Int("balance", res.Balance))
	s.afterCommit(ctx, log, occ.TemplateID, models.RegistrationEvent{
		Type:           models.EventBooked,
		RegistrationID: res.Registration.ID,
		MemberID:       memberID,
		OccurrenceID:   occurrenceID,
		SessionsDelta:  -1,
		At:             now,
	})
	return res, nil
}

// Cancel отменяет запись участника. Занятие возвращается на активный абонемент,
// если до начала остаётся не меньше окна возврата, иначе сгорает.
func (s *Service) Cancel(ctx context.Context, memberID, registrationID int64) (*CancelResult, error) {
	const op = "booking.Cancel"
	log := s.log.With(slog.String("op", op), sl.Member(memberID), sl.Registration(registrationID))

	now := s.clock.Now()
	var (
		res *CancelResult
		occ *models.Occurrence
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		reg, err := tx.RegistrationByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.MemberID != memberID {
			return models.ErrNotOwner
		}
		if reg.Status != models.RegistrationRegistered {
			return models.ErrInvalidTransition
		}

		occ, err = tx.OccurrenceByID(ctx, reg.OccurrenceID)
		if err != nil {
			return err
		}
		if !now.Before(occ.StartsAt) {
			return models.ErrAlreadyStarted
		}

		if err := tx.TransitionRegistration(ctx, reg.ID, models.RegistrationCancelled, now); err != nil {
			return err
		}
		if err := tx.ReleaseSeat(ctx, occ.ID); err != nil {
			return err
		}
		reg.Status = models.RegistrationCancelled
		reg.UpdatedAt = now
		res = &CancelResult{Registration: reg, Refund: RefundForfeited}

		led := s.ledger(tx)
		sub, err := led.ActiveSubscriptionFor(ctx, memberID)
		switch {
		case errors.Is(err, models.ErrNoActiveSubscription):
			res.Refund = RefundNoSubscription
			return nil
		case err != nil:
			return err
		}

		res.Balance = sub.SessionsRemaining
		if !s.policy.refundable(now, occ.StartsAt) {
			return nil
		}
		balance, err := led.Credit(ctx, sub.ID, 1)
		if err != nil {
			return err
		}
		res.Refund = RefundCredited
		res.Balance = balance
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.CancellationsTotal.WithLabelValues(string(res.Refund)).Inc()

	log.Info("registration cancelled", slog.String("refund", string(res.Refund)), slog.Int("balance", res.Balance))
	delta := 0
	if res.Refund == RefundCredited {
		delta = 1
	}
	s.afterCommit(ctx, log, occ.TemplateID, models.RegistrationEvent{
		Type:           models.EventCancelled,
		RegistrationID: registrationID,
		MemberID:       memberID,
		OccurrenceID:   occ.ID,
		SessionsDelta:  delta,
		Refund:         string(res.Refund),
		At:             now,
	})
	return res, nil
}

// Attend создаёт отметку посещения и переводит запись в attended.
// При Policy.ChargeOnAttend дополнительно списывает занятие с активного абонемента.
func (s *Service) Attend(ctx context.Context, registrationID int64) (*AttendResult, error) {
	const op = "booking.Attend"
	log := s.log.With(slog.String("op", op), sl.Registration(registrationID))

	now := s.clock.Now()
	var (
		res *AttendResult
		reg *models.Registration
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		reg, err = tx.RegistrationByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status == models.RegistrationAttended {
			return &models.AlreadyCheckedInError{RegistrationID: reg.ID, MemberID: reg.MemberID}
		}
		if reg.Status != models.RegistrationRegistered {
			return models.ErrInvalidTransition
		}
		if _, err := tx.CheckinByRegistration(ctx, reg.ID); err == nil {
			return &models.AlreadyCheckedInError{RegistrationID: reg.ID, MemberID: reg.MemberID}
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		led := s.ledger(tx)
		res = &AttendResult{}
		sub, err := led.ActiveSubscriptionFor(ctx, reg.MemberID)
		switch {
		case err == nil:
			res.Balance = sub.SessionsRemaining
		case errors.Is(err, models.ErrNoActiveSubscription) && !s.policy.ChargeOnAttend:
		default:
			return err
		}

		checkin := &models.Checkin{
			RegistrationID: reg.ID,
			MemberID:       reg.MemberID,
			CheckedInAt:    now,
		}
		if s.policy.ChargeOnAttend {
			balance, err := led.Debit(ctx, sub.ID, 1)
			if err != nil {
				return err
			}
			res.Balance = balance
			checkin.SessionConsumed = true
		}
		if err := tx.CreateCheckin(ctx, checkin); err != nil {
			return err
		}
		if err := tx.TransitionRegistration(ctx, reg.ID, models.RegistrationAttended, now); err != nil {
			return err
		}
		res.Checkin = checkin
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("registration attended", sl.Member(reg.MemberID), slog.Bool("session_consumed", res.Checkin.SessionConsumed))
	delta := 0
	if res.Checkin.SessionConsumed {
		delta = -1
	}
	s.publish(ctx, log, models.RegistrationEvent{
		Type:           models.EventAttended,
		RegistrationID: reg.ID,
		MemberID:       reg.MemberID,
		OccurrenceID:   reg.OccurrenceID,
		SessionsDelta:  delta,
		At:             now,
	})
	return res, nil
}

// MarkAbsent переводит запись в absent, если занятие закончилось больше
// Policy.AbsenceGrace назад и отметки посещения нет. При Policy.ChargeOnAbsent
// списывает занятие; если списывать нечего, запись всё равно становится absent.
func (s *Service) MarkAbsent(ctx context.Context, registrationID int64) error {
	const op = "booking.MarkAbsent"
	log := s.log.With(slog.String("op", op), sl.Registration(registrationID))

	now := s.clock.Now()
	var (
		reg   *models.Registration
		delta int
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		reg, err = tx.RegistrationByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status != models.RegistrationRegistered {
			return models.ErrInvalidTransition
		}
		occ, err := tx.OccurrenceByID(ctx, reg.OccurrenceID)
		if err != nil {
			return err
		}
		if !s.policy.absenceDue(now, occ.EndsAt) {
			return models.ErrAbsenceNotDue
		}
		if _, err := tx.CheckinByRegistration(ctx, reg.ID); err == nil {
			return &models.AlreadyCheckedInError{RegistrationID: reg.ID, MemberID: reg.MemberID}
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		if err := tx.TransitionRegistration(ctx, reg.ID, models.RegistrationAbsent, now); err != nil {
			return err
		}
		if !s.policy.ChargeOnAbsent {
			return nil
		}

		led := s.ledger(tx)
		sub, err := led.ActiveSubscriptionFor(ctx, reg.MemberID)
		if errors.Is(err, models.ErrNoActiveSubscription) {
			log.Warn("no active subscription to charge absence")
			return nil
		}
		if err != nil {
			return err
		}
		if sub.SessionsRemaining <= 0 {
			log.Warn("absence not charged, balance is empty", slog.Int64("subscription_id", sub.ID))
			return nil
		}
		if _, err := led.Debit(ctx, sub.ID, 1); err != nil {
			return err
		}
		delta = -1
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.AbsencesTotal.Inc()

	log.Info("registration marked absent", sl.Member(reg.MemberID))
	s.publish(ctx, log, models.RegistrationEvent{
		Type:           models.EventAbsent,
		RegistrationID: reg.ID,
		MemberID:       reg.MemberID,
		OccurrenceID:   reg.OccurrenceID,
		SessionsDelta:  delta,
		At:             now,
	})
	return nil
}

func (s *Service) afterCommit(ctx context.Context, log *slog.Logger, templateID int64, event models.RegistrationEvent) {
	if s.cache != nil && templateID != 0 {
		if err := s.cache.InvalidateOccurrences(ctx, templateID); err != nil {
			log.Warn("failed to invalidate occurrences cache", sl.Template(templateID), sl.Err(err))
		}
	}
	s.publish(ctx, log, event)
}

func (s *Service) publish(ctx context.Context, log *slog.Logger, event models.RegistrationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, string(event.Type), event); err != nil {
		log.Error("failed to publish event", slog.String("type", string(event.Type)), sl.Err(err))
	}
}

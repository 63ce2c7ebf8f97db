// Package storage описывает контракт хранилища студии. Все изменения состояния
// выполняются внутри одной короткой транзакции через TxRunner.InTx; реализация
// для PostgreSQL лежит в storage/repository, in-memory: в storage/memstore.
package storage

import (
	"context"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// TxRunner выполняет fn в транзакции. Если fn вернула ошибку, все изменения откатываются.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx операции хранилища в рамках одной транзакции.
//
// Методы, меняющие счётчики (ReserveSeat, DebitSessions, TransitionRegistration),
// реализуются условной записью и возвращают доменную ошибку, если условие не выполнено.
// Методы поиска возвращают models.ErrNotFound, если строки нет.
type Tx interface {
	ClassByID(ctx context.Context, id int64) (*models.Class, error)

	CreateTemplate(ctx context.Context, t *models.ScheduleTemplate) error
	UpdateTemplate(ctx context.Context, t *models.ScheduleTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
	TemplateByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
	// TemplateHasDependents true, если у любого занятия шаблона есть запись или отметка посещения.
	TemplateHasDependents(ctx context.Context, templateID int64) (bool, error)

	CreateOccurrences(ctx context.Context, occurrences []models.Occurrence) ([]int64, error)
	DeleteOccurrencesByTemplate(ctx context.Context, templateID int64) error
	OccurrencesByTemplate(ctx context.Context, templateID int64) ([]models.Occurrence, error)
	OccurrenceByID(ctx context.Context, id int64) (*models.Occurrence, error)
	// ReserveSeat увеличивает счётчик участников, только если он меньше вместимости,
	// иначе models.ErrOccurrenceFull.
	ReserveSeat(ctx context.Context, occurrenceID int64) error
	ReleaseSeat(ctx context.Context, occurrenceID int64) error

	// ActiveSubscription самый поздний по дате начала абонемент со статусом active,
	// иначе models.ErrNoActiveSubscription.
	ActiveSubscription(ctx context.Context, memberID int64) (*models.Subscription, error)
	// DebitSessions списывает n занятий, только если остаток >= n, иначе models.ErrInsufficientBalance.
	DebitSessions(ctx context.Context, subscriptionID int64, n int) (int, error)
	// CreditSessions возвращает n занятий. При capAtTotal остаток не превышает sessions_total.
	CreditSessions(ctx context.Context, subscriptionID int64, n int, capAtTotal bool) (int, error)

	// HasRegistered true, если у участника есть запись в статусе registered на занятие.
	HasRegistered(ctx context.Context, memberID, occurrenceID int64) (bool, error)
	// CreateRegistration сохраняет запись и проставляет ID. Дубликат активной записи: models.ErrAlreadyRegistered.
	CreateRegistration(ctx context.Context, r *models.Registration) error
	RegistrationByID(ctx context.Context, id int64) (*models.Registration, error)
	RegistrationByCode(ctx context.Context, code string) (*models.Registration, error)
	// TransitionRegistration переводит запись из registered в to,
	// иначе models.ErrInvalidTransition.
	TransitionRegistration(ctx context.Context, id int64, to models.RegistrationStatus, at time.Time) error
	// AbsenceCandidates записи registered без отметки, чьё занятие закончилось раньше cutoff.
	AbsenceCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.AbsenceCandidate, error)

	CheckinByRegistration(ctx context.Context, registrationID int64) (*models.Checkin, error)
	// CreateCheckin сохраняет отметку; повторная отметка той же записи: models.ErrAlreadyCheckedIn.
	CreateCheckin(ctx context.Context, c *models.Checkin) error
}

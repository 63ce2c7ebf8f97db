// Package metrics счётчики Prometheus для записи, отмены, посещений и сверки.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

var (
	// BookingsTotal попытки записи по результату.
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "bookings_total",
		Help:      "Booking attempts by outcome.",
	}, []string{"outcome"})

	// CancellationsTotal отмены по исходу возврата.
	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "cancellations_total",
		Help:      "Cancellations by refund outcome.",
	}, []string{"refund"})

	// CheckinsTotal попытки отметки посещения по результату.
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "checkins_total",
		Help:      "Check-in attempts by outcome.",
	}, []string{"outcome"})

	// AbsencesTotal записи, переведённые сверкой в absent.
	AbsencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studio",
		Name:      "absences_total",
		Help:      "Registrations marked absent by the reconciliation sweep.",
	})

	// SweepDuration длительность одного прохода сверки.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studio",
		Name:      "reconcile_sweep_duration_seconds",
		Help:      "Duration of a reconciliation sweep.",
		Buckets:   prometheus.DefBuckets,
	})
)

var outcomes = []struct {
	err   error
	label string
}{
	{models.ErrNotFound, "not_found"},
	{models.ErrCodeNotFound, "code_not_found"},
	{models.ErrAlreadyRegistered, "already_registered"},
	{models.ErrOccurrenceFull, "occurrence_full"},
	{models.ErrOccurrenceStarted, "occurrence_started"},
	{models.ErrNoActiveSubscription, "no_active_subscription"},
	{models.ErrInsufficientBalance, "insufficient_balance"},
	{models.ErrAlreadyCheckedIn, "already_checked_in"},
	{models.ErrAlreadyStarted, "already_started"},
	{models.ErrInvalidTransition, "invalid_transition"},
	{models.ErrNotOwner, "not_owner"},
}

// Outcome метка результата операции для err.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}

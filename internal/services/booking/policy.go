package booking

import "time"

// Policy правила студии для переходов записи.
//
// Базовое списание одно занятие при записи. ChargeOnAttend и ChargeOnAbsent
// включают дополнительное списание при отметке посещения и при неявке.
type Policy struct {
	RefundWindow   time.Duration
	AbsenceGrace   time.Duration
	ChargeOnAttend bool
	ChargeOnAbsent bool
	CapRefunds     bool
}

// DefaultPolicy возврат при отмене не позже чем за 24 часа, неявка через час после конца занятия.
func DefaultPolicy() Policy {
	return Policy{
		RefundWindow: 24 * time.Hour,
		AbsenceGrace: time.Hour,
	}
}

// RefundOutcome исход возврата занятия при отмене.
type RefundOutcome string

const (
	RefundCredited       RefundOutcome = "refunded"
	RefundForfeited      RefundOutcome = "forfeited"
	RefundNoSubscription RefundOutcome = "no_subscription"
)

// refundable true, если now не позже startsAt - window.
func (p Policy) refundable(now, startsAt time.Time) bool {
	return !now.After(startsAt.Add(-p.RefundWindow))
}

// absenceDue true, если с конца занятия прошло больше периода ожидания.
func (p Policy) absenceDue(now, endsAt time.Time) bool {
	return endsAt.Add(p.AbsenceGrace).Before(now)
}

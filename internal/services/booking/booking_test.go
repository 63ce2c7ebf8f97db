package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/studio-scheduler/internal/lib/clock"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage/memstore"
)

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	args := m.Called(ctx, routingKey, message)
	return args.Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) InvalidateOccurrences(ctx context.Context, templateID int64) error {
	args := m.Called(ctx, templateID)
	return args.Error(0)
}

var classStart = time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC)

type fixture struct {
	store *memstore.Store
	clock *clock.Manual
	svc   *Service
	occ   models.Occurrence
	sub   models.Subscription
}

func newFixture(t *testing.T, policy Policy, opts ...Option) *fixture {
	t.Helper()
	store := memstore.New()
	clk := clock.NewManual(classStart.Add(-72 * time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	occ := store.PutOccurrence(models.Occurrence{
		TemplateID: 1,
		ClassID:    1,
		Date:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		StartsAt:   classStart,
		EndsAt:     classStart.Add(time.Hour),
		Capacity:   10,
	})
	sub := store.PutSubscription(models.Subscription{
		MemberID:          100,
		PlanID:            1,
		StartDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		SessionsTotal:     5,
		SessionsRemaining: 5,
		Status:            models.SubscriptionActive,
	})

	return &fixture{
		store: store,
		clock: clk,
		svc:   New(store, clk, policy, logger, opts...),
		occ:   occ,
		sub:   sub,
	}
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	sub, ok := f.store.Subscription(f.sub.ID)
	require.True(t, ok)
	return sub.SessionsRemaining
}

func (f *fixture) participants(t *testing.T) int {
	t.Helper()
	occ, ok := f.store.Occurrence(f.occ.ID)
	require.True(t, ok)
	return occ.ParticipantCount
}

func (f *fixture) book(t *testing.T) *models.Registration {
	t.Helper()
	res, err := f.svc.Book(context.Background(), f.sub.MemberID, f.occ.ID)
	require.NoError(t, err)
	return res.Registration
}

func TestBook_Success(t *testing.T) {
	pub := new(PublisherMock)
	cache := new(CacheMock)
	pub.On("Publish", mock.Anything, string(models.EventBooked), mock.MatchedBy(func(e models.RegistrationEvent) bool {
		return e.MemberID == 100 && e.SessionsDelta == -1
	})).Return(nil).Once()
	cache.On("InvalidateOccurrences", mock.Anything, int64(1)).Return(nil).Once()

	f := newFixture(t, DefaultPolicy(), WithPublisher(pub), WithCache(cache))

	res, err := f.svc.Book(context.Background(), f.sub.MemberID, f.occ.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationRegistered, res.Registration.Status)
	assert.Equal(t, f.sub.ID, res.Registration.SubscriptionID)
	assert.Len(t, res.Registration.ScanCode, 32)
	assert.Equal(t, 4, res.Balance)
	assert.Equal(t, 4, f.balance(t))
	assert.Equal(t, 1, f.participants(t))

	pub.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestBook_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture) (memberID, occurrenceID int64)
		wantErr error
	}{
		{
			name: "занятие не найдено",
			setup: func(f *fixture) (int64, int64) {
				return f.sub.MemberID, 9999
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "занятие уже началось",
			setup: func(f *fixture) (int64, int64) {
				f.clock.Set(classStart)
				return f.sub.MemberID, f.occ.ID
			},
			wantErr: models.ErrOccurrenceStarted,
		},
		{
			name: "нет активного абонемента",
			setup: func(f *fixture) (int64, int64) {
				return 200, f.occ.ID
			},
			wantErr: models.ErrNoActiveSubscription,
		},
		{
			name: "нулевой баланс",
			setup: func(f *fixture) (int64, int64) {
				sub := f.sub
				sub.SessionsRemaining = 0
				f.store.PutSubscription(sub)
				return f.sub.MemberID, f.occ.ID
			},
			wantErr: models.ErrInsufficientBalance,
		},
		{
			name: "мест нет",
			setup: func(f *fixture) (int64, int64) {
				occ := f.occ
				occ.ParticipantCount = occ.Capacity
				f.store.PutOccurrence(occ)
				return f.sub.MemberID, f.occ.ID
			},
			wantErr: models.ErrOccurrenceFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultPolicy())
			before := f.balance(t)
			memberID, occurrenceID := tt.setup(f)

			_, err := f.svc.Book(context.Background(), memberID, occurrenceID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			sub, _ := f.store.Subscription(f.sub.ID)
			if tt.wantErr != models.ErrInsufficientBalance {
				assert.Equal(t, before, sub.SessionsRemaining)
			}
		})
	}
}

func TestBook_AlreadyRegistered(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.book(t)

	_, err := f.svc.Book(context.Background(), f.sub.MemberID, f.occ.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyRegistered)
	assert.Equal(t, 4, f.balance(t))
	assert.Equal(t, 1, f.participants(t))
}

func TestBook_RebookAfterCancel(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	reg := f.book(t)

	_, err := f.svc.Cancel(context.Background(), f.sub.MemberID, reg.ID)
	require.NoError(t, err)

	again := f.book(t)
	assert.NotEqual(t, reg.ID, again.ID)
	assert.NotEqual(t, reg.ScanCode, again.ScanCode)
}

func TestBook_ConcurrentLastSeats(t *testing.T) {
	const (
		capacity = 3
		members  = 12
	)
	f := newFixture(t, DefaultPolicy())
	occ := f.occ
	occ.Capacity = capacity
	f.store.PutOccurrence(occ)

	for i := range members {
		f.store.PutSubscription(models.Subscription{
			MemberID:          int64(1000 + i),
			StartDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			SessionsTotal:     1,
			SessionsRemaining: 1,
			Status:            models.SubscriptionActive,
		})
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		full    int
	)
	for i := range members {
		wg.Add(1)
		go func(memberID int64) {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), memberID, occ.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, models.ErrOccurrenceFull):
				full++
			}
		}(int64(1000 + i))
	}
	wg.Wait()

	assert.Equal(t, capacity, success)
	assert.Equal(t, members-capacity, full)
	assert.Equal(t, capacity, f.participants(t))
}

func TestBook_ConcurrentLastSession(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	sub := f.sub
	sub.SessionsRemaining = 1
	f.store.PutSubscription(sub)

	const classes = 5
	ids := make([]int64, 0, classes)
	for i := range classes {
		o := f.store.PutOccurrence(models.Occurrence{
			TemplateID: 2,
			StartsAt:   classStart.Add(time.Duration(i) * 24 * time.Hour),
			EndsAt:     classStart.Add(time.Duration(i)*24*time.Hour + time.Hour),
			Capacity:   10,
		})
		ids = append(ids, o.ID)
	}

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(occurrenceID int64) {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), f.sub.MemberID, occurrenceID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, models.ErrInsufficientBalance):
				insufficient++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, classes-1, insufficient)
	assert.Equal(t, 0, f.balance(t))
}

func TestBook_ConcurrentSeatsAndSessions(t *testing.T) {
	const (
		capacity = 3
		paid     = 5
		empty    = 3
		extra    = 4
	)
	f := newFixture(t, DefaultPolicy())
	occ := f.occ
	occ.Capacity = capacity
	f.store.PutOccurrence(occ)

	// Участник фикстуры с двумя занятиями на абонементе пробует четыре отдельных класса.
	sub := f.sub
	sub.SessionsRemaining = 2
	f.store.PutSubscription(sub)
	classes := make([]int64, 0, extra)
	for i := range extra {
		o := f.store.PutOccurrence(models.Occurrence{
			TemplateID: 3,
			StartsAt:   classStart.Add(time.Duration(i+1) * 24 * time.Hour),
			EndsAt:     classStart.Add(time.Duration(i+1)*24*time.Hour + time.Hour),
			Capacity:   1,
		})
		classes = append(classes, o.ID)
	}

	type attempt struct {
		memberID     int64
		occurrenceID int64
	}
	attempts := make([]attempt, 0, paid+empty+extra)
	for i := range paid + empty {
		remaining := 1
		if i >= paid {
			remaining = 0
		}
		memberID := int64(2000 + i)
		f.store.PutSubscription(models.Subscription{
			MemberID:          memberID,
			StartDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			SessionsTotal:     1,
			SessionsRemaining: remaining,
			Status:            models.SubscriptionActive,
		})
		attempts = append(attempts, attempt{memberID: memberID, occurrenceID: occ.ID})
	}
	for _, id := range classes {
		attempts = append(attempts, attempt{memberID: f.sub.MemberID, occurrenceID: id})
	}

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		full         int
		insufficient int
		other        []error
	)
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), a.memberID, a.occurrenceID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, models.ErrOccurrenceFull):
				full++
			case errors.Is(err, models.ErrInsufficientBalance):
				insufficient++
			default:
				other = append(other, err)
			}
		}(a)
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, capacity+2, success)
	assert.Equal(t, paid-capacity, full)
	assert.Equal(t, empty+extra-2, insufficient)
	assert.Equal(t, capacity, f.participants(t))
	assert.Equal(t, 0, f.balance(t))

	taken := 0
	for _, id := range classes {
		o, ok := f.store.Occurrence(id)
		require.True(t, ok)
		taken += o.ParticipantCount
	}
	assert.Equal(t, 2, taken)
}

func TestCancel_RefundWindow(t *testing.T) {
	tests := []struct {
		name        string
		cancelAt    time.Time
		wantRefund  RefundOutcome
		wantBalance int
	}{
		{
			name:        "больше чем за сутки",
			cancelAt:    time.Date(2024, 2, 9, 17, 59, 0, 0, time.UTC),
			wantRefund:  RefundCredited,
			wantBalance: 5,
		},
		{
			name:        "ровно за сутки",
			cancelAt:    time.Date(2024, 2, 9, 18, 0, 0, 0, time.UTC),
			wantRefund:  RefundCredited,
			wantBalance: 5,
		},
		{
			name:        "меньше чем за сутки",
			cancelAt:    time.Date(2024, 2, 9, 18, 1, 0, 0, time.UTC),
			wantRefund:  RefundForfeited,
			wantBalance: 4,
		},
		{
			name:        "за минуту до начала",
			cancelAt:    classStart.Add(-time.Minute),
			wantRefund:  RefundForfeited,
			wantBalance: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultPolicy())
			reg := f.book(t)
			require.Equal(t, 4, f.balance(t))

			f.clock.Set(tt.cancelAt)
			res, err := f.svc.Cancel(context.Background(), f.sub.MemberID, reg.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantRefund, res.Refund)
			assert.Equal(t, tt.wantBalance, res.Balance)
			assert.Equal(t, tt.wantBalance, f.balance(t))
			assert.Equal(t, models.RegistrationCancelled, res.Registration.Status)
			assert.Equal(t, 0, f.participants(t))

			stored, _ := f.store.Registration(reg.ID)
			assert.Equal(t, models.RegistrationCancelled, stored.Status)
		})
	}
}

func TestCancel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture) (memberID, registrationID int64)
		wantErr error
	}{
		{
			name: "запись не найдена",
			setup: func(_ *testing.T, f *fixture) (int64, int64) {
				return f.sub.MemberID, 9999
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "чужая запись",
			setup: func(t *testing.T, f *fixture) (int64, int64) {
				return 200, f.book(t).ID
			},
			wantErr: models.ErrNotOwner,
		},
		{
			name: "повторная отмена",
			setup: func(t *testing.T, f *fixture) (int64, int64) {
				reg := f.book(t)
				_, err := f.svc.Cancel(context.Background(), f.sub.MemberID, reg.ID)
				require.NoError(t, err)
				return f.sub.MemberID, reg.ID
			},
			wantErr: models.ErrInvalidTransition,
		},
		{
			name: "занятие уже началось",
			setup: func(t *testing.T, f *fixture) (int64, int64) {
				reg := f.book(t)
				f.clock.Set(classStart)
				return f.sub.MemberID, reg.ID
			},
			wantErr: models.ErrAlreadyStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultPolicy())
			memberID, registrationID := tt.setup(t, f)
			before := f.balance(t)

			_, err := f.svc.Cancel(context.Background(), memberID, registrationID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.balance(t))
		})
	}
}

func TestCancel_NoActiveSubscription(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	reg := f.book(t)

	sub := f.sub
	sub.SessionsRemaining = 4
	sub.Status = models.SubscriptionExpired
	f.store.PutSubscription(sub)

	res, err := f.svc.Cancel(context.Background(), f.sub.MemberID, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, RefundNoSubscription, res.Refund)
	assert.Equal(t, 4, f.balance(t))
	assert.Equal(t, 0, f.participants(t))
}

func TestCancel_RefundCap(t *testing.T) {
	tests := []struct {
		name        string
		capRefunds  bool
		wantBalance int
	}{
		{name: "без ограничения", capRefunds: false, wantBalance: 6},
		{name: "с ограничением", capRefunds: true, wantBalance: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.CapRefunds = tt.capRefunds
			f := newFixture(t, policy)
			reg := f.book(t)

			sub := f.sub
			sub.SessionsRemaining = sub.SessionsTotal
			f.store.PutSubscription(sub)

			res, err := f.svc.Cancel(context.Background(), f.sub.MemberID, reg.ID)
			require.NoError(t, err)
			assert.Equal(t, RefundCredited, res.Refund)
			assert.Equal(t, tt.wantBalance, f.balance(t))
		})
	}
}

func TestAttend(t *testing.T) {
	tests := []struct {
		name         string
		chargeAttend bool
		wantBalance  int
	}{
		{name: "списание только при записи", chargeAttend: false, wantBalance: 4},
		{name: "списание при посещении", chargeAttend: true, wantBalance: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.ChargeOnAttend = tt.chargeAttend
			f := newFixture(t, policy)
			reg := f.book(t)

			f.clock.Set(classStart.Add(-10 * time.Minute))
			res, err := f.svc.Attend(context.Background(), reg.ID)
			require.NoError(t, err)

			assert.Equal(t, reg.ID, res.Checkin.RegistrationID)
			assert.Equal(t, tt.chargeAttend, res.Checkin.SessionConsumed)
			assert.Equal(t, tt.wantBalance, res.Balance)
			assert.Equal(t, tt.wantBalance, f.balance(t))

			stored, _ := f.store.Registration(reg.ID)
			assert.Equal(t, models.RegistrationAttended, stored.Status)
			assert.Equal(t, 1, f.store.Checkins())
		})
	}
}

func TestAttend_Twice(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	reg := f.book(t)

	_, err := f.svc.Attend(context.Background(), reg.ID)
	require.NoError(t, err)

	_, err = f.svc.Attend(context.Background(), reg.ID)
	require.ErrorIs(t, err, models.ErrAlreadyCheckedIn)

	var already *models.AlreadyCheckedInError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, f.sub.MemberID, already.MemberID)
	assert.Equal(t, 1, f.store.Checkins())
}

func TestAttend_ChargeWithEmptyBalanceRollsBack(t *testing.T) {
	policy := DefaultPolicy()
	policy.ChargeOnAttend = true
	f := newFixture(t, policy)
	reg := f.book(t)

	sub := f.sub
	sub.SessionsRemaining = 0
	f.store.PutSubscription(sub)

	_, err := f.svc.Attend(context.Background(), reg.ID)
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	stored, _ := f.store.Registration(reg.ID)
	assert.Equal(t, models.RegistrationRegistered, stored.Status)
	assert.Equal(t, 0, f.store.Checkins())
}

func TestMarkAbsent(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	reg := f.book(t)

	f.clock.Set(f.occ.EndsAt.Add(30 * time.Minute))
	err := f.svc.MarkAbsent(context.Background(), reg.ID)
	require.ErrorIs(t, err, models.ErrAbsenceNotDue)

	f.clock.Set(f.occ.EndsAt.Add(time.Hour))
	err = f.svc.MarkAbsent(context.Background(), reg.ID)
	require.ErrorIs(t, err, models.ErrAbsenceNotDue)

	f.clock.Set(f.occ.EndsAt.Add(time.Hour + time.Minute))
	require.NoError(t, f.svc.MarkAbsent(context.Background(), reg.ID))

	stored, _ := f.store.Registration(reg.ID)
	assert.Equal(t, models.RegistrationAbsent, stored.Status)
	assert.Equal(t, 4, f.balance(t))

	err = f.svc.MarkAbsent(context.Background(), reg.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestMarkAbsent_ChargePolicy(t *testing.T) {
	tests := []struct {
		name        string
		remaining   int
		wantBalance int
	}{
		{name: "списывается занятие", remaining: 3, wantBalance: 2},
		{name: "пустой баланс не мешает неявке", remaining: 0, wantBalance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.ChargeOnAbsent = true
			f := newFixture(t, policy)
			reg := f.book(t)

			sub := f.sub
			sub.SessionsRemaining = tt.remaining
			f.store.PutSubscription(sub)

			f.clock.Set(f.occ.EndsAt.Add(2 * time.Hour))
			require.NoError(t, f.svc.MarkAbsent(context.Background(), reg.ID))

			stored, _ := f.store.Registration(reg.ID)
			assert.Equal(t, models.RegistrationAbsent, stored.Status)
			assert.Equal(t, tt.wantBalance, f.balance(t))
		})
	}
}

func TestMarkAbsent_AfterAttend(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	reg := f.book(t)
	_, err := f.svc.Attend(context.Background(), reg.ID)
	require.NoError(t, err)

	f.clock.Set(f.occ.EndsAt.Add(2 * time.Hour))
	err = f.svc.MarkAbsent(context.Background(), reg.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestPublishFailureKeepsTransition(t *testing.T) {
	pub := new(PublisherMock)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	f := newFixture(t, DefaultPolicy(), WithPublisher(pub))
	reg := f.book(t)

	stored, ok := f.store.Registration(reg.ID)
	require.True(t, ok)
	assert.Equal(t, models.RegistrationRegistered, stored.Status)
	assert.Equal(t, 4, f.balance(t))
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

// Package memstore реализует storage.TxRunner в памяти. Транзакции
// сериализуются одним мьютексом и откатываются восстановлением снимка
// состояния. Используется в тестах сервисов и для локального запуска без базы.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage"
)

type state struct {
	seq           int64
	classes       map[int64]models.Class
	templates     map[int64]models.ScheduleTemplate
	occurrences   map[int64]models.Occurrence
	subscriptions map[int64]models.Subscription
	registrations map[int64]models.Registration
	checkins      map[int64]models.Checkin // по registration_id
}

func newState() *state {
	return &state{
		classes:       make(map[int64]models.Class),
		templates:     make(map[int64]models.ScheduleTemplate),
		occurrences:   make(map[int64]models.Occurrence),
		subscriptions: make(map[int64]models.Subscription),
		registrations: make(map[int64]models.Registration),
		checkins:      make(map[int64]models.Checkin),
	}
}

func (s *state) clone() *state {
	return &state{
		seq:           s.seq,
		classes:       maps.Clone(s.classes),
		templates:     maps.Clone(s.templates),
		occurrences:   maps.Clone(s.occurrences),
		subscriptions: maps.Clone(s.subscriptions),
		registrations: maps.Clone(s.registrations),
		checkins:      maps.Clone(s.checkins),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store хранилище в памяти.
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ storage.TxRunner = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{state: newState()}
}

// InTx выполняет fn под эксклюзивной блокировкой; при ошибке состояние откатывается.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&tx{s: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// PutClass добавляет строку каталога занятий.
func (s *Store) PutClass(c models.Class) models.Class {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.state.nextID()
	}
	s.state.classes[c.ID] = c
	return c
}

// PutSubscription добавляет абонемент.
func (s *Store) PutSubscription(sub models.Subscription) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = s.state.nextID()
	}
	s.state.subscriptions[sub.ID] = sub
	return sub
}

// PutOccurrence добавляет занятие без шаблона.
func (s *Store) PutOccurrence(o models.Occurrence) models.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.state.nextID()
	}
	s.state.occurrences[o.ID] = o
	return o
}

// Subscription возвращает копию абонемента.
func (s *Store) Subscription(id int64) (models.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.state.subscriptions[id]
	return sub, ok
}

// Occurrence возвращает копию занятия.
func (s *Store) Occurrence(id int64) (models.Occurrence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.occurrences[id]
	return o, ok
}

// Registration возвращает копию записи.
func (s *Store) Registration(id int64) (models.Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.registrations[id]
	return r, ok
}

// Checkins количество отметок посещения.
func (s *Store) Checkins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.checkins)
}

type tx struct {
	s *state
}

func (t *tx) ClassByID(_ context.Context, id int64) (*models.Class, error) {
	c, ok := t.s.classes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (t *tx) CreateTemplate(_ context.Context, tmpl *models.ScheduleTemplate) error {
	tmpl.ID = t.s.nextID()
	t.s.templates[tmpl.ID] = *tmpl
	return nil
}

func (t *tx) UpdateTemplate(_ context.Context, tmpl *models.ScheduleTemplate) error {
	if _, ok := t.s.templates[tmpl.ID]; !ok {
		return models.ErrNotFound
	}
	t.s.templates[tmpl.ID] = *tmpl
	return nil
}

func (t *tx) DeleteTemplate(_ context.Context, id int64) error {
	if _, ok := t.s.templates[id]; !ok {
		return models.ErrNotFound
	}
	delete(t.s.templates, id)
	for oid, o := range t.s.occurrences {
		if o.TemplateID == id {
			delete(t.s.occurrences, oid)
		}
	}
	return nil
}

func (t *tx) TemplateByID(_ context.Context, id int64) (*models.ScheduleTemplate, error) {
	tmpl, ok := t.s.templates[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &tmpl, nil
}

func (t *tx) TemplateHasDependents(_ context.Context, templateID int64) (bool, error) {
	for _, r := range t.s.registrations {
		if o, ok := t.s.occurrences[r.OccurrenceID]; ok && o.TemplateID == templateID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CreateOccurrences(_ context.Context, occurrences []models.Occurrence) ([]int64, error) {
	ids := make([]int64, 0, len(occurrences))
	for _, o := range occurrences {
		o.ID = t.s.nextID()
		t.s.occurrences[o.ID] = o
		ids = append(ids, o.ID)
	}
	return ids, nil
}

func (t *tx) DeleteOccurrencesByTemplate(_ context.Context, templateID int64) error {
	for id, o := range t.s.occurrences {
		if o.TemplateID == templateID {
			delete(t.s.occurrences, id)
		}
	}
	return nil
}

func (t *tx) OccurrencesByTemplate(_ context.Context, templateID int64) ([]models.Occurrence, error) {
	var out []models.Occurrence
	for _, o := range t.s.occurrences {
		if o.TemplateID == templateID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (t *tx) OccurrenceByID(_ context.Context, id int64) (*models.Occurrence, error) {
	o, ok := t.s.occurrences[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &o, nil
}

func (t *tx) ReserveSeat(_ context.Context, occurrenceID int64) error {
	o, ok := t.s.occurrences[occurrenceID]
	if !ok {
		return models.ErrNotFound
	}
	if o.SeatsLeft() == 0 {
		return models.ErrOccurrenceFull
	}
	o.ParticipantCount++
	t.s.occurrences[occurrenceID] = o
	return nil
}

func (t *tx) ReleaseSeat(_ context.Context, occurrenceID int64) error {
	o, ok := t.s.occurrences[occurrenceID]
	if !ok {
		return models.ErrNotFound
	}
	if o.ParticipantCount > 0 {
		o.ParticipantCount--
	}
	t.s.occurrences[occurrenceID] = o
	return nil
}

func (t *tx) ActiveSubscription(_ context.Context, memberID int64) (*models.Subscription, error) {
	var best *models.Subscription
	for _, sub := range t.s.subscriptions {
		if sub.MemberID != memberID || sub.Status != models.SubscriptionActive {
			continue
		}
		if best == nil || sub.StartDate.After(best.StartDate) ||
			(sub.StartDate.Equal(best.StartDate) && sub.ID > best.ID) {
			sub := sub
			best = &sub
		}
	}
	if best == nil {
		return nil, models.ErrNoActiveSubscription
	}
	return best, nil
}

func (t *tx) DebitSessions(_ context.Context, subscriptionID int64, n int) (int, error) {
	sub, ok := t.s.subscriptions[subscriptionID]
	if !ok {
		return 0, models.ErrNotFound
	}
	if sub.SessionsRemaining < n {
		return 0, models.ErrInsufficientBalance
	}
	sub.SessionsRemaining -= n
	t.s.subscriptions[subscriptionID] = sub
	return sub.SessionsRemaining, nil
}

func (t *tx) CreditSessions(_ context.Context, subscriptionID int64, n int, capAtTotal bool) (int, error) {
	sub, ok := t.s.subscriptions[subscriptionID]
	if !ok {
		return 0, models.ErrNotFound
	}
	sub.SessionsRemaining += n
	if capAtTotal && sub.SessionsRemaining > sub.SessionsTotal {
		sub.SessionsRemaining = max(sub.SessionsTotal, sub.SessionsRemaining-n)
	}
	t.s.subscriptions[subscriptionID] = sub
	return sub.SessionsRemaining, nil
}

func (t *tx) HasRegistered(_ context.Context, memberID, occurrenceID int64) (bool, error) {
	for _, r := range t.s.registrations {
		if r.MemberID == memberID && r.OccurrenceID == occurrenceID && r.Status == models.RegistrationRegistered {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CreateRegistration(ctx context.Context, r *models.Registration) error {
	exists, _ := t.HasRegistered(ctx, r.MemberID, r.OccurrenceID)
	if exists {
		return models.ErrAlreadyRegistered
	}
	r.ID = t.s.nextID()
	r.UpdatedAt = r.RegisteredAt
	t.s.registrations[r.ID] = *r
	return nil
}

func (t *tx) RegistrationByID(_ context.Context, id int64) (*models.Registration, error) {
	r, ok := t.s.registrations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (t *tx) RegistrationByCode(_ context.Context, code string) (*models.Registration, error) {
	for _, r := range t.s.registrations {
		if r.ScanCode == code {
			return &r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (t *tx) TransitionRegistration(_ context.Context, id int64, to models.RegistrationStatus, at time.Time) error {
	r, ok := t.s.registrations[id]
	if !ok {
		return models.ErrNotFound
	}
	if !models.CanTransition(r.Status, to) {
		return models.ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = at
	t.s.registrations[id] = r
	return nil
}

func (t *tx) AbsenceCandidates(_ context.Context, cutoff time.Time, limit int) ([]models.AbsenceCandidate, error) {
	var out []models.AbsenceCandidate
	for _, r := range t.s.registrations {
		if r.Status != models.RegistrationRegistered {
			continue
		}
		if _, checked := t.s.checkins[r.ID]; checked {
			continue
		}
		o, ok := t.s.occurrences[r.OccurrenceID]
		if !ok || !o.EndsAt.Before(cutoff) {
			continue
		}
		out = append(out, models.AbsenceCandidate{
			RegistrationID: r.ID, OccurrenceID: o.ID, MemberID: r.MemberID, EndsAt: o.EndsAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationID < out[j].RegistrationID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) CheckinByRegistration(_ context.Context, registrationID int64) (*models.Checkin, error) {
	c, ok := t.s.checkins[registrationID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (t *tx) CreateCheckin(_ context.Context, c *models.Checkin) error {
	if _, ok := t.s.checkins[c.RegistrationID]; ok {
		return models.ErrAlreadyCheckedIn
	}
	c.ID = t.s.nextID()
	t.s.checkins[c.RegistrationID] = *c
	return nil
}

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/studio-scheduler/internal/migrations"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// TestDataFactory создаёт строки, которые в этом сервисе только читаются.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateClass создаёт зал каталога.
func (f *TestDataFactory) CreateClass(t *testing.T, name string, capacity int) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO classes (name, capacity) VALUES ($1, $2) RETURNING id`,
		name, capacity).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateSubscription создаёт абонемент участника.
func (f *TestDataFactory) CreateSubscription(t *testing.T, memberID int64, startDate time.Time, sessions int, status models.SubscriptionStatus) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(member_id, plan_id, start_date, end_date, sessions_total, sessions_remaining, status)
		VALUES ($1, 1, $2, $3, $4, $4, $5) RETURNING id`,
		memberID, startDate, startDate.AddDate(0, 3, 0), sessions, string(status)).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateOccurrence создаёт занятие без шаблона.
func (f *TestDataFactory) CreateOccurrence(t *testing.T, startsAt time.Time, capacity int) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO occurrences
		(class_id, trainer_id, occurrence_date, starts_at, ends_at, capacity)
		VALUES (1, 1, $1, $2, $3, $4) RETURNING id`,
		startsAt.Truncate(24*time.Hour), startsAt, startsAt.Add(time.Hour), capacity).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// Balance остаток занятий абонемента.
func (v *TestVerification) Balance(t *testing.T, subscriptionID int64) int {
	var n int
	err := v.storage.DB.QueryRow(`SELECT sessions_remaining FROM subscriptions WHERE id = $1`, subscriptionID).Scan(&n)
	require.NoError(t, err)
	return n
}

// Participants счётчик участников занятия.
func (v *TestVerification) Participants(t *testing.T, occurrenceID int64) int {
	var n int
	err := v.storage.DB.QueryRow(`SELECT participant_count FROM occurrences WHERE id = $1`, occurrenceID).Scan(&n)
	require.NoError(t, err)
	return n
}

// RegistrationStatus статус записи.
func (v *TestVerification) RegistrationStatus(t *testing.T, registrationID int64) models.RegistrationStatus {
	var status string
	err := v.storage.DB.QueryRow(`SELECT status FROM registrations WHERE id = $1`, registrationID).Scan(&status)
	require.NoError(t, err)
	return models.RegistrationStatus(status)
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr)
	require.NoError(t, err, "failed to create storage")

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

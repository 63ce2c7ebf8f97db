// Package repository реализует storage.TxRunner поверх PostgreSQL (драйвер pgx
// через database/sql). Счётчики мест и баланс занятий меняются условными
// UPDATE, поэтому транзакциям достаточно уровня READ COMMITTED.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage"
)

const (
	uniqueViolation         = "23505"
	activeRegistrationIndex = "uq_registrations_member_occurrence_active"
	checkinRegistrationKey  = "checkins_registration_id_key"
)

// Storage соединение с PostgreSQL.
type Storage struct {
	DB *sql.DB
}

var _ storage.TxRunner = (*Storage)(nil)

// New открывает пул соединений и проверяет доступность базы.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(storage *Storage) error {
	return storage.Ready(context.Background())
}

// Ready проверяет соединение и наличие таблицы registrations.
func (s *Storage) Ready(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'registrations'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check registrations table: %w", err)
	}
	if !exists {
		return errors.New("required table registrations missing")
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// InTx открывает транзакцию, выполняет fn и фиксирует её. Ошибка fn или
// отмена ctx откатывают все изменения.
func (s *Storage) InTx(ctx context.Context, fn func(tx storage.Tx) error) (err error) {
	const op = "storage.InTx"

	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type tx struct {
	tx *sql.Tx
}

// exists проверяет наличие строки по id, чтобы отличить «нет строки» от «не выполнено условие».
func (t *tx) exists(ctx context.Context, table string, id int64) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&ok)
	return ok, err
}

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func nullDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

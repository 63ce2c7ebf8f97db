// Package reconciler переводит в absent записи, по которым занятие давно закончилось,
// а отметки посещения нет. Проход идемпотентен: повторный запуск ничего не находит.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/studio-scheduler/internal/lib/clock"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/metrics"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage"
)

// AbsenceMarker переход записи в absent.
type AbsenceMarker interface {
	MarkAbsent(ctx context.Context, registrationID int64) error
}

// Config параметры прохода.
type Config struct {
	Grace     time.Duration
	Workers   int
	BatchSize int
}

// Result итог прохода.
type Result struct {
	Scanned int `json:"scanned"`
	Marked  int `json:"marked"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Service сверка посещений.
type Service struct {
	store  storage.TxRunner
	marker AbsenceMarker
	clock  clock.Clock
	cfg    Config
	log    *slog.Logger
}

// New создаёт Service. Нулевые Workers и BatchSize заменяются на 1 и 100.
func New(store storage.TxRunner, marker AbsenceMarker, clk clock.Clock, cfg Config, log *slog.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Service{
		store:  store,
		marker: marker,
		clock:  clk,
		cfg:    cfg,
		log:    log,
	}
}

// Sweep выбирает кандидатов пачками и вызывает MarkAbsent не более чем в Workers потоков.
// Записи, изменённые параллельно (уже отмечены, отменены, ещё не истёк период ожидания),
// считаются пропущенными. Прочие ошибки по отдельным записям логируются и не прерывают проход.
func (s *Service) Sweep(ctx context.Context) (Result, error) {
	const op = "reconciler.Sweep"
	log := s.log.With(slog.String("op", op))
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	cutoff := s.clock.Now().Add(-s.cfg.Grace)
	var res Result
	for {
		batch, err := s.candidates(ctx, cutoff)
		if err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		if len(batch) == 0 {
			break
		}

		marked, skipped, failed := s.markBatch(ctx, log, batch)
		res.Scanned += len(batch)
		res.Marked += marked
		res.Skipped += skipped
		res.Failed += failed

		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		// Неудачные строки вернутся в следующей пачке, поэтому без новых отметок выходим.
		if marked == 0 || len(batch) < s.cfg.BatchSize {
			break
		}
	}

	if res.Scanned > 0 {
		log.Info("sweep finished",
			slog.Int("scanned", res.Scanned),
			slog.Int("marked", res.Marked),
			slog.Int("skipped", res.Skipped),
			slog.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (s *Service) candidates(ctx context.Context, cutoff time.Time) ([]models.AbsenceCandidate, error) {
	var batch []models.AbsenceCandidate
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		batch, err = tx.AbsenceCandidates(ctx, cutoff, s.cfg.BatchSize)
		return err
	})
	return batch, err
}

func (s *Service) markBatch(ctx context.Context, log *slog.Logger, batch []models.AbsenceCandidate) (marked, skipped, failed int) {
	var m, sk, f atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, c := range batch {
		g.Go(func() error {
			err := s.marker.MarkAbsent(gctx, c.RegistrationID)
			switch {
			case err == nil:
				m.Add(1)
			case errors.Is(err, models.ErrInvalidTransition),
				errors.Is(err, models.ErrAlreadyCheckedIn),
				errors.Is(err, models.ErrAbsenceNotDue):
				sk.Add(1)
			default:
				f.Add(1)
				log.Error("failed to mark absent", sl.Registration(c.RegistrationID), sl.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(m.Load()), int(sk.Load()), int(f.Load())
}

// Package templates ведёт шаблоны расписания и занятия, которые из них получены.
// Изменение и удаление шаблона запрещены, если на его занятия уже есть записи.
package templates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/studio-scheduler/internal/lib/clock"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/schedule"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage"
)

// Cache кэш списков занятий.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	InvalidateOccurrences(ctx context.Context, templateID int64) error
}

// KeyFunc ключ кэша для списка занятий шаблона.
type KeyFunc func(templateID int64) string

// Service шаблоны расписания.
type Service struct {
	store    storage.TxRunner
	cache    Cache
	cacheKey KeyFunc
	ttl      time.Duration
	loc      *time.Location
	clock    clock.Clock
	log      *slog.Logger
}

// New создаёт Service. cache может быть nil, тогда списки читаются из хранилища.
func New(store storage.TxRunner, cache Cache, cacheKey KeyFunc, ttl time.Duration, loc *time.Location, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		cacheKey: cacheKey,
		ttl:      ttl,
		loc:      loc,
		clock:    clk,
		log:      log,
	}
}

// Result созданный или изменённый шаблон и идентификаторы его занятий.
type Result struct {
	TemplateID    int64   `json:"template_id"`
	OccurrenceIDs []int64 `json:"occurrence_ids"`
}

// Create сохраняет шаблон и все его занятия одной транзакцией.
func (s *Service) Create(ctx context.Context, req models.DummyTemplate) (*Result, error) {
	const op = "templates.Create"

	tmpl, err := ParseTemplate(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	slots, err := schedule.Expand(*tmpl, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()
	tmpl.CreatedAt, tmpl.UpdatedAt = now, now

	res := &Result{}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		class, err := tx.ClassByID(ctx, tmpl.ClassID)
		if err != nil {
			return fmt.Errorf("class %d: %w", tmpl.ClassID, err)
		}
		if err := tx.CreateTemplate(ctx, tmpl); err != nil {
			return err
		}
		res.TemplateID = tmpl.ID
		res.OccurrenceIDs, err = tx.CreateOccurrences(ctx, occurrences(tmpl, class, slots))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("template created",
		sl.Template(res.TemplateID),
		slog.Int("occurrences", len(res.OccurrenceIDs)),
	)
	return res, nil
}

// Update заменяет шаблон и пересоздаёт его занятия. Если на занятия шаблона
// уже есть записи, возвращает models.ErrHasDependents и ничего не меняет.
func (s *Service) Update(ctx context.Context, id int64, req models.DummyTemplate) (*Result, error) {
	const op = "templates.Update"

	tmpl, err := ParseTemplate(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	slots, err := schedule.Expand(*tmpl, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &Result{TemplateID: id}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		current, err := tx.TemplateByID(ctx, id)
		if err != nil {
			return err
		}
		if err := guard(ctx, tx, id); err != nil {
			return err
		}
		class, err := tx.ClassByID(ctx, tmpl.ClassID)
		if err != nil {
			return fmt.Errorf("class %d: %w", tmpl.ClassID, err)
		}

		tmpl.ID = id
		tmpl.CreatedAt = current.CreatedAt
		tmpl.UpdatedAt = s.clock.Now()
		if err := tx.UpdateTemplate(ctx, tmpl); err != nil {
			return err
		}
		if err := tx.DeleteOccurrencesByTemplate(ctx, id); err != nil {
			return err
		}
		res.OccurrenceIDs, err = tx.CreateOccurrences(ctx, occurrences(tmpl, class, slots))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, id)
	s.log.Info("template updated", sl.Template(id), slog.Int("occurrences", len(res.OccurrenceIDs)))
	return res, nil
}

// Remove удаляет шаблон вместе с занятиями. Охраняется так же, как Update.
func (s *Service) Remove(ctx context.Context, id int64) error {
	const op = "templates.Remove"

	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.TemplateByID(ctx, id); err != nil {
			return err
		}
		if err := guard(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteTemplate(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, id)
	s.log.Info("template removed", sl.Template(id))
	return nil
}

// Occurrences список занятий шаблона по времени начала.
func (s *Service) Occurrences(ctx context.Context, templateID int64) ([]models.Occurrence, error) {
	const op = "templates.Occurrences"

	var key string
	if s.cache != nil {
		key = s.cacheKey(templateID)
		var cached []models.Occurrence
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	var result []models.Occurrence
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.TemplateByID(ctx, templateID); err != nil {
			return err
		}
		var err error
		result, err = tx.OccurrencesByTemplate(ctx, templateID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if result == nil {
		result = []models.Occurrence{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			s.log.Warn("failed to add to cache", slog.String("key", key), sl.Err(err))
		}
	}
	return result, nil
}

func guard(ctx context.Context, tx storage.Tx, templateID int64) error {
	has, err := tx.TemplateHasDependents(ctx, templateID)
	if err != nil {
		return err
	}
	if has {
		return models.ErrHasDependents
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, templateID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOccurrences(ctx, templateID); err != nil {
		s.log.Warn("failed to invalidate cache", sl.Template(templateID), sl.Err(err))
	}
}

func occurrences(tmpl *models.ScheduleTemplate, class *models.Class, slots []schedule.Slot) []models.Occurrence {
	capacity := schedule.Capacity(tmpl.MaxParticipants, class.Capacity)
	out := make([]models.Occurrence, 0, len(slots))
	for _, slot := range slots {
		out = append(out, models.Occurrence{
			TemplateID: tmpl.ID,
			ClassID:    tmpl.ClassID,
			TrainerID:  tmpl.TrainerID,
			Date:       slot.Date,
			StartsAt:   slot.StartsAt,
			EndsAt:     slot.EndsAt,
			Capacity:   capacity,
		})
	}
	return out
}


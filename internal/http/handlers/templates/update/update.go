// Package update обработчик изменения шаблона расписания.
package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/templates"
)

// Handler обрабатывает PUT /api/v1/templates/{id}.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service заменяет шаблон и пересоздаёт занятия.
type Service interface {
	Update(ctx context.Context, id int64, req models.DummyTemplate) (*templates.Result, error)
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменить шаблон расписания
// @Description Заменяет шаблон и пересобирает будущие занятия без записей
// @Tags Templates
// @Accept  json
// @Produce  json
// @Param id path int true "ID шаблона"
// @Param request body models.DummyTemplate true "Новые данные шаблона"
// @Success 200 {object} response.Response "Шаблон и идентификаторы занятий"
// @Failure 400 {object} response.Response "Некорректный ID или JSON"
// @Failure 404 {object} response.Response "Шаблон не найден"
// @Failure 409 {object} response.Response "Конфликт с существующими записями"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Router /templates/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.templates.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req models.DummyTemplate
	if err = render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err = h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		render.Status(r, http.StatusUnprocessableEntity)
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	res, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		log.Error("failed to update template", sl.Err(err), sl.Template(id))
		status, msg := response.StatusFor(err, "could not update template")
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("template updated", sl.Template(id), slog.Int("occurrences", len(res.OccurrenceIDs)))
	render.JSON(w, r, response.OKWithData(res))
}

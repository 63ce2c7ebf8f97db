// Package create обработчик создания шаблона расписания.
package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/templates"
)

// Handler обрабатывает POST /api/v1/templates.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service создаёт шаблон вместе с занятиями.
type Service interface {
	Create(ctx context.Context, req models.DummyTemplate) (*templates.Result, error)
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
// @Summary Создать шаблон расписания
// @Description Сохраняет шаблон и разворачивает его в занятия на весь период
// @Tags Templates
// @Accept  json
// @Produce  json
// @Param request body models.DummyTemplate true "Данные шаблона"
// @Success 201 {object} response.Response "Шаблон и идентификаторы занятий"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.Response "Внутренняя ошибка"
// @Router /templates [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.templates.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyTemplate
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
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

	res, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create template", sl.Err(err))
		status, msg := response.StatusFor(err, "could not create template")
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("template created",
		sl.Template(res.TemplateID),
		slog.Int("occurrences", len(res.OccurrenceIDs)),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}

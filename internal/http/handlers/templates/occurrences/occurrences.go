// Package occurrences обработчик списка занятий шаблона.
package occurrences

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Occurrences(ctx context.Context, templateID int64) ([]models.Occurrence, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список занятий шаблона
// @Tags Templates
// @Produce  json
// @Param id path int true "ID шаблона"
// @Success 200 {object} response.Response "Занятия по возрастанию даты"
// @Failure 400 {object} response.Response "Некорректный ID"
// @Failure 404 {object} response.Response "Шаблон не найден"
// @Router /templates/{id}/occurrences [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.templates.occurrences"

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

	list, err := h.service.Occurrences(r.Context(), id)
	if err != nil {
		log.Error("failed to list occurrences", sl.Err(err), sl.Template(id))
		status, msg := response.StatusFor(err, "could not list occurrences")
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(list))
}

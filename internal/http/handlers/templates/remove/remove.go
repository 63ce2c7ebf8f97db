// Package remove обработчик удаления шаблона расписания.
package remove

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
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Remove(ctx context.Context, id int64) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить шаблон расписания
// @Description Удаляет шаблон и его будущие занятия без записей
// @Tags Templates
// @Produce  json
// @Param id path int true "ID шаблона"
// @Success 200 {object} response.Response "ID удалённого шаблона"
// @Failure 400 {object} response.Response "Некорректный ID"
// @Failure 404 {object} response.Response "Шаблон не найден"
// @Failure 409 {object} response.Response "У занятий есть записи"
// @Router /templates/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.templates.remove"

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

	if err = h.service.Remove(r.Context(), id); err != nil {
		log.Error("failed to remove template", sl.Err(err), sl.Template(id))
		status, msg := response.StatusFor(err, "could not remove template")
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("template removed", sl.Template(id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"template_id": id,
	}))
}

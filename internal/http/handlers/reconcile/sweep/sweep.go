// Package sweep обработчик ручного запуска сверки неявок.
package sweep

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/reconciler"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Sweep(ctx context.Context) (reconciler.Result, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Запустить сверку посещений
// @Description Отмечает пропуски по прошедшим занятиям вне расписания cron
// @Tags Reconcile
// @Produce  json
// @Success 200 {object} response.Response "Итог прохода"
// @Failure 500 {object} response.Response "Проход прерван, в data частичный итог"
// @Router /reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.sweep"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.Sweep(r.Context())
	if err != nil {
		log.Error("sweep failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithData("sweep interrupted", res))
		return
	}

	log.Info("sweep finished", slog.Int("marked", res.Marked), slog.Int("skipped", res.Skipped))
	render.JSON(w, r, response.OKWithData(res))
}

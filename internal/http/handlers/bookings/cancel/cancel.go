// Package cancel обработчик отмены записи.
package cancel

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/booking"
)

// Handler обрабатывает DELETE /api/v1/bookings/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service отменяет запись участника.
type Service interface {
	Cancel(ctx context.Context, memberID, registrationID int64) (*booking.CancelResult, error)
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить запись
// @Description Отменяет запись участника, при раннем отказе возвращает занятие на абонемент
// @Tags Bookings
// @Produce  json
// @Security MemberID
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response "Запись, исход возврата и остаток"
// @Failure 400 {object} response.Response "Некорректный ID"
// @Failure 401 {object} response.Response "Нет участника"
// @Failure 403 {object} response.Response "Чужая запись"
// @Failure 404 {object} response.Response "Запись не найдена"
// @Failure 409 {object} response.Response "Запись уже не активна"
// @Router /bookings/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bookings.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	memberID, ok := middlewarectx.MemberID(r.Context())
	if !ok {
		log.Error("member not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	registrationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	res, err := h.service.Cancel(r.Context(), memberID, registrationID)
	if err != nil {
		log.Warn("cancellation rejected", sl.Err(err),
			sl.Member(memberID),
			sl.Registration(registrationID),
		)
		status, msg := response.StatusFor(err, "could not cancel registration")
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}

// Package book обработчик записи участника на занятие.
package book

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

// Handler обрабатывает POST /api/v1/occurrences/{id}/bookings.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service записывает участника на занятие.
type Service interface {
	Book(ctx context.Context, memberID, occurrenceID int64) (*booking.BookResult, error)
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Записаться на занятие
// @Description Занимает место и списывает занятие с активного абонемента участника
// @Tags Bookings
// @Produce  json
// @Security MemberID
// @Param id path int true "ID занятия"
// @Success 201 {object} response.Response "Запись и остаток занятий"
// @Failure 400 {object} response.Response "Некорректный ID"
// @Failure 401 {object} response.Response "Нет участника"
// @Failure 404 {object} response.Response "Занятие не найдено"
// @Failure 409 {object} response.Response "Мест нет, уже записан или не хватает занятий"
// @Router /occurrences/{id}/bookings [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bookings.book"

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

	occurrenceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	res, err := h.service.Book(r.Context(), memberID, occurrenceID)
	if err != nil {
		log.Warn("booking rejected", sl.Err(err),
			sl.Member(memberID),
			sl.Occurrence(occurrenceID),
		)
		status, msg := response.StatusFor(err, "could not book occurrence")
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}

// Package scan обработчик отметки посещения по коду.
package scan

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
	"github.com/magabrotheeeer/studio-scheduler/internal/services/checkin"
)

// Handler обрабатывает POST /api/v1/checkins.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service отмечает посещение по отсканированному коду.
type Service interface {
	CheckIn(ctx context.Context, code string) (*checkin.Result, error)
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
// @Summary Отметить вход по коду
// @Description Проверяет код участника на входе и отмечает посещение
// @Tags Checkins
// @Accept  json
// @Produce  json
// @Param request body models.DummyCheckin true "Код участника"
// @Success 200 {object} response.Response "Отметка и остаток занятий"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 404 {object} response.Response "Код не найден"
// @Failure 409 {object} response.Response "Уже отмечен или нет занятий на абонементе"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Router /checkins [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkins.scan"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCheckin
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

	res, err := h.service.CheckIn(r.Context(), req.Code)
	if err != nil {
		status, msg := response.StatusFor(err, "could not check in")
		render.Status(r, status)

		var already *models.AlreadyCheckedInError
		if errors.As(err, &already) {
			log.Info("code scanned twice", sl.Member(already.MemberID))
			render.JSON(w, r, response.ErrorWithData(msg, map[string]any{
				"member_id":       already.MemberID,
				"registration_id": already.RegistrationID,
			}))
			return
		}

		log.Warn("check-in rejected", sl.Err(err))
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("checked in",
		sl.Member(res.MemberID),
		slog.Int("sessions_remaining", res.Balance),
	)
	render.JSON(w, r, response.OKWithData(res))
}

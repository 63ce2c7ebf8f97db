// Package response формирует JSON-ответы HTTP-обработчиков в едином формате
// и переводит доменные ошибки в HTTP-статусы.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

const (
	// StatusOK: значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError: значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ErrorWithData ошибка с дополнительными данными, например участником при повторном скане.
func ErrorWithData(msg string, data any) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
		Data:   data,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "gt", "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), minimum(err)))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

func minimum(err validator.FieldError) string {
	if err.ActualTag() == "gt" {
		return "greater than " + err.Param()
	}
	return err.Param()
}

var statuses = []struct {
	err    error
	status int
}{
	{models.ErrInvalidTemplate, http.StatusUnprocessableEntity},
	{models.ErrEmptySchedule, http.StatusUnprocessableEntity},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrCodeNotFound, http.StatusNotFound},
	{models.ErrNotOwner, http.StatusForbidden},
	{models.ErrHasDependents, http.StatusConflict},
	{models.ErrAlreadyRegistered, http.StatusConflict},
	{models.ErrOccurrenceFull, http.StatusConflict},
	{models.ErrOccurrenceStarted, http.StatusConflict},
	{models.ErrNoActiveSubscription, http.StatusConflict},
	{models.ErrInsufficientBalance, http.StatusConflict},
	{models.ErrAlreadyCheckedIn, http.StatusConflict},
	{models.ErrAlreadyStarted, http.StatusConflict},
	{models.ErrInvalidTransition, http.StatusConflict},
	{models.ErrAbsenceNotDue, http.StatusConflict},
}

// StatusFor HTTP-статус и текст ответа для ошибки сервиса. Неизвестные ошибки
// наружу не показываются: 500 и fallback. Для ошибок валидации в ответ
// попадает и уточнение после sentinel-ошибки.
func StatusFor(err error, fallback string) (int, string) {
	for _, s := range statuses {
		if !errors.Is(err, s.err) {
			continue
		}
		if s.status == http.StatusUnprocessableEntity {
			msg := err.Error()
			if i := strings.Index(msg, s.err.Error()); i >= 0 {
				return s.status, msg[i:]
			}
		}
		return s.status, s.err.Error()
	}
	return http.StatusInternalServerError, fallback
}

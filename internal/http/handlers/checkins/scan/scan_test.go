package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/studio-scheduler/internal/models"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/checkin"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CheckIn(ctx context.Context, code string) (*checkin.Result, error) {
	args := m.Called(ctx, code)
	if res := args.Get(0); res != nil {
		return res.(*checkin.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestScanHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	checkedIn := time.Date(2024, 2, 10, 17, 55, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная отметка",
			requestBody: models.DummyCheckin{Code: "K7Q2M9"},
			setupMock: func(m *MockService) {
				m.On("CheckIn", mock.Anything, "K7Q2M9").Return(&checkin.Result{
					Checkin:  &models.Checkin{ID: 1, RegistrationID: 3, MemberID: 100, CheckedInAt: checkedIn},
					MemberID: 100,
					Balance:  4,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"member_id":100,"sessions_remaining":4`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "code",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"failed to decode request"}`,
		},
		{
			name:           "пустой код",
			requestBody:    models.DummyCheckin{},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Code is a required field"}`,
		},
		{
			name:        "код не найден",
			requestBody: models.DummyCheckin{Code: "NOPE"},
			setupMock: func(m *MockService) {
				m.On("CheckIn", mock.Anything, "NOPE").
					Return(nil, fmt.Errorf("checkin.CheckIn: %w", models.ErrCodeNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"scan code not found"}`,
		},
		{
			name:        "повторное сканирование",
			requestBody: models.DummyCheckin{Code: "K7Q2M9"},
			setupMock: func(m *MockService) {
				m.On("CheckIn", mock.Anything, "K7Q2M9").
					Return(nil, fmt.Errorf("checkin.CheckIn: %w", &models.AlreadyCheckedInError{RegistrationID: 3, MemberID: 100}))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"already checked in","data":{"member_id":100,"registration_id":3}}`,
		},
		{
			name:        "баланс исчерпан",
			requestBody: models.DummyCheckin{Code: "K7Q2M9"},
			setupMock: func(m *MockService) {
				m.On("CheckIn", mock.Anything, "K7Q2M9").
					Return(nil, fmt.Errorf("checkin.CheckIn: %w", models.ErrInsufficientBalance))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"insufficient session balance"}`,
		},
		{
			name:        "ошибка хранилища",
			requestBody: models.DummyCheckin{Code: "K7Q2M9"},
			setupMock: func(m *MockService) {
				m.On("CheckIn", mock.Anything, "K7Q2M9").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not check in"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			var body []byte
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			New(logger, mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

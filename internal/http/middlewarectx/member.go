// Package middlewarectx HTTP middleware: идентификатор участника из заголовка
// и общий лимит запросов.
//
// Аутентификация выполняется снаружи сервиса; шлюз передаёт уже проверенного
// участника в заголовке X-Member-ID.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// Member ключ идентификатора участника в контексте.
const Member Key = "member_id"

// MemberHeader заголовок с идентификатором участника.
const MemberHeader = "X-Member-ID"

// MemberMiddleware кладёт участника из X-Member-ID в контекст. Без заголовка
// или с нечисловым значением отвечает 401.
func MemberMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.MemberMiddleware"

			memberID, err := strconv.ParseInt(r.Header.Get(MemberHeader), 10, 64)
			if err != nil || memberID <= 0 {
				log.With(
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				).Warn("missing or invalid member header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid "+MemberHeader+" header"))
				return
			}

			ctx := context.WithValue(r.Context(), Member, memberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MemberID участник из контекста запроса.
func MemberID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(Member).(int64)
	return id, ok && id > 0
}

// WithMember кладёт участника в контекст.
func WithMember(ctx context.Context, memberID int64) context.Context {
	return context.WithValue(ctx, Member, memberID)
}

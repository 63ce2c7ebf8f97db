package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/response"
)

var limiter = rate.NewLimiter(20, 40)

// SetRateLimit задаёт общий лимит запросов в секунду и размер всплеска.
func SetRateLimit(rps float64, burst int) {
	limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimitMiddleware отвечает 429, если общий лимит запросов исчерпан.
func RateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

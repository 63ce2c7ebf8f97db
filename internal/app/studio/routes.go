package studio

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/studio-scheduler/docs"

	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/bookings/book"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/bookings/cancel"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/checkins/scan"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/health"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/reconcile/sweep"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/templates/create"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/templates/occurrences"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/templates/remove"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/handlers/templates/update"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/middlewarectx"
)

// Services сервисы, на которые опираются маршруты.
type Services struct {
	Templates interface {
		create.Service
		update.Service
		remove.Service
		occurrences.Service
	}
	Booking interface {
		book.Service
		cancel.Service
	}
	Checkin    scan.Service
	Reconciler sweep.Service
	Health     health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, svc.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger))

		// Администрирование расписания и ресепшен
		r.Post("/templates", create.New(logger, svc.Templates).ServeHTTP)
		r.Put("/templates/{id}", update.New(logger, svc.Templates).ServeHTTP)
		r.Delete("/templates/{id}", remove.New(logger, svc.Templates).ServeHTTP)
		r.Get("/templates/{id}/occurrences", occurrences.New(logger, svc.Templates).ServeHTTP)
		r.Post("/checkins", scan.New(logger, svc.Checkin).ServeHTTP)
		r.Post("/reconcile", sweep.New(logger, svc.Reconciler).ServeHTTP)

		// Действия участника, идентификатор приходит от шлюза
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.MemberMiddleware(logger))
			r.Post("/occurrences/{id}/bookings", book.New(logger, svc.Booking).ServeHTTP)
			r.Delete("/bookings/{id}", cancel.New(logger, svc.Booking).ServeHTTP)
		})
	})
}

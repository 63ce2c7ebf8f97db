// Package studio HTTP API расписания и записей на занятия.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/studio-scheduler/internal/app"
	"github.com/magabrotheeeer/studio-scheduler/internal/cache"
	"github.com/magabrotheeeer/studio-scheduler/internal/config"
	"github.com/magabrotheeeer/studio-scheduler/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studio-scheduler/internal/migrations"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/checkin"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/reconciler"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/templates"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	deps   *app.Deps
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loc, err := cfg.StudioLocation()
	if err != nil {
		return nil, err
	}

	deps, err := app.NewDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(deps.Storage.DB, cfg.MigrationsPath); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := migrations.Version(deps.Storage.DB, cfg.MigrationsPath); err == nil {
		logger.Info("database schema ready", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}

	var (
		templateCache templates.Cache
		cacheTTL      time.Duration
	)
	if deps.Cache != nil {
		templateCache = deps.Cache
		cacheTTL = deps.Cache.TTL()
	}
	templateService := templates.New(deps.Storage, templateCache, cache.OccurrencesKey, cacheTTL, loc, deps.Clock, logger)
	checkinService := checkin.New(deps.Storage, deps.Booking, cfg.AdmitZeroBalance, logger)
	reconcilerService := reconciler.New(deps.Storage, deps.Booking, deps.Clock, reconciler.Config{
		Grace:     cfg.AbsenceGrace,
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
	}, logger)

	middlewarectx.SetRateLimit(cfg.RateLimit, cfg.RateBurst)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Templates:  templateService,
		Booking:    deps.Booking,
		Checkin:    checkinService,
		Reconciler: reconcilerService,
		Health:     deps.Storage,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		deps:   deps,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.deps.Close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.deps.Close()
		return err
	}
}

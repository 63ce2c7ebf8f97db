// Package reconciler процесс периодической сверки неявок.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/studio-scheduler/internal/app"
	"github.com/magabrotheeeer/studio-scheduler/internal/config"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	reconcilerservice "github.com/magabrotheeeer/studio-scheduler/internal/services/reconciler"
)

// sweepTimeout ограничивает один проход, чтобы зависший проход не копил запуски.
const sweepTimeout = 4 * time.Minute

// Sweeper проход сверки.
type Sweeper interface {
	Sweep(ctx context.Context) (reconcilerservice.Result, error)
}

// App представляет приложение сверки.
type App struct {
	cron    *cron.Cron
	sweeper Sweeper
	metrics *http.Server
	deps    *app.Deps
	logger  *slog.Logger
}

// New подключается к базе и брокеру и регистрирует задачу сверки по расписанию из конфига.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := app.NewDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err = app.WaitForDB(ctx, deps.Storage, 10, 3*time.Second); err != nil {
		deps.Close()
		return nil, err
	}

	sweeper := reconcilerservice.New(deps.Storage, deps.Booking, deps.Clock, reconcilerservice.Config{
		Grace:     cfg.AbsenceGrace,
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
	}, logger)

	c, err := newCron(cfg.CronSchedule, sweeper, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &App{
		cron:    c,
		sweeper: sweeper,
		metrics: &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}, nil
}

func newCron(spec string, sweeper Sweeper, logger *slog.Logger) (*cron.Cron, error) {
	cronLogger := cronLog{logger: logger}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger)), cron.WithLogger(cronLogger))
	if _, err := c.AddFunc(spec, func() { runSweep(context.Background(), sweeper, logger) }); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return c, nil
}

func runSweep(ctx context.Context, sweeper Sweeper, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	res, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("sweep failed", sl.Err(err), slog.Int("marked", res.Marked))
		return
	}
	logger.Debug("sweep done", slog.Int("scanned", res.Scanned), slog.Int("marked", res.Marked))
}

// Run выполняет сверку сразу и затем по расписанию до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metrics.Addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", sl.Err(err))
		}
	}()

	runSweep(ctx, a.sweeper, a.logger)
	a.cron.Start()

	<-ctx.Done()

	a.logger.Info("shutting down reconciler")
	stopCtx := a.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(sweepTimeout):
		a.logger.Warn("running sweep did not finish in time")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.metrics.Shutdown(shutdownCtx)
	a.deps.Close()
	return err
}

// cronLog пишет сообщения cron в slog.
type cronLog struct {
	logger *slog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{sl.Err(err)}, keysAndValues...)...)
}

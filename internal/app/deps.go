// Package app общие зависимости процессов студии: база, кэш, брокер и сервис записей.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/studio-scheduler/internal/cache"
	"github.com/magabrotheeeer/studio-scheduler/internal/config"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/clock"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/studio-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/studio-scheduler/internal/services/booking"
	"github.com/magabrotheeeer/studio-scheduler/internal/storage/repository"
)

// Deps подключения и сервис записей, общие для API и сверки.
// Cache и Publisher равны nil, если адрес redis или rabbitmq не задан.
type Deps struct {
	Storage   *repository.Storage
	Cache     *cache.Cache
	Publisher *rabbitmq.Publisher
	Booking   *booking.Service
	Clock     clock.Clock

	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// Policy правила списаний и возвратов из конфига.
func Policy(cfg config.Studio) booking.Policy {
	return booking.Policy{
		RefundWindow:   cfg.RefundWindow,
		AbsenceGrace:   cfg.AbsenceGrace,
		ChargeOnAttend: cfg.ChargeOnAttend,
		ChargeOnAbsent: cfg.ChargeOnAbsent,
		CapRefunds:     cfg.CapRefunds,
	}
}

// WaitForDB ждёт, пока база станет доступна и миграции будут применены.
func WaitForDB(ctx context.Context, db *repository.Storage, attempts int, delay time.Duration) error {
	var err error
	for range attempts {
		if err = db.Ready(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// NewDeps подключается к базе, redis и rabbitmq и собирает сервис записей.
// При ошибке уже открытые подключения закрываются.
func NewDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	d := &Deps{
		Clock:  clock.Real{},
		logger: logger,
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	d.Storage = db

	var opts []booking.Option

	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		d.Cache = c
		opts = append(opts, booking.WithCache(c))
	} else {
		logger.Warn("redis address is empty, occurrence cache disabled")
	}

	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		d.conn = conn

		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.StudioExchange, rabbitmq.GetRegistrationQueues())
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		d.ch = ch
		d.Publisher = rabbitmq.NewPublisher(ch, rabbitmq.StudioExchange)
		opts = append(opts, booking.WithPublisher(d.Publisher))
	} else {
		logger.Warn("rabbitmq url is empty, registration events disabled")
	}

	d.Booking = booking.New(db, d.Clock, Policy(cfg.Studio), logger, opts...)
	return d, nil
}

// Close закрывает все открытые подключения.
func (d *Deps) Close() {
	if d.ch != nil {
		if err := d.ch.Close(); err != nil {
			d.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if d.Storage != nil {
		if err := d.Storage.Close(); err != nil {
			d.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}

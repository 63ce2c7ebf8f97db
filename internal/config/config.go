// Package config предоставляет структуры и функции для парсинга и загрузки конфига студии.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	Studio                  `yaml:"studio"`
	Reconciler              `yaml:"reconciler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"20"`
	RateBurst   int           `yaml:"rate_burst" env-default:"40"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

// RabbitMQ настройки брокера для публикации событий по записям.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Studio бизнес-правила студии: часовой пояс, окно возврата, период ожидания и политика списаний.
type Studio struct {
	Location       string        `yaml:"location" env:"STUDIO_LOCATION" env-default:"UTC"`
	RefundWindow   time.Duration `yaml:"refund_window" env-default:"24h"`
	AbsenceGrace   time.Duration `yaml:"absence_grace" env-default:"1h"`
	ChargeOnAttend bool          `yaml:"charge_on_attend"`
	ChargeOnAbsent bool          `yaml:"charge_on_absent"`
	CapRefunds     bool          `yaml:"cap_refunds"`

	// AdmitZeroBalance пускать по коду участника с нулевым остатком.
	AdmitZeroBalance bool `yaml:"admit_zero_balance"`
}

// Reconciler настройки фоновой сверки неявок.
type Reconciler struct {
	CronSchedule string `yaml:"cron_schedule" env:"RECONCILER_CRON" env-default:"*/5 * * * *"`
	Workers      int    `yaml:"workers" env-default:"4"`
	BatchSize    int    `yaml:"batch_size" env-default:"500"`

	// MetricsAddress адрес /metrics процесса сверки.
	MetricsAddress string `yaml:"metrics_address" env:"RECONCILER_METRICS_ADDRESS" env-default:":9091"`
}

// Load читает конфиг из файла по пути path, переменные окружения имеют приоритет.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if _, err := cfg.StudioLocation(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH, при ошибке завершает процесс.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// StudioLocation возвращает часовой пояс студии.
func (c *Config) StudioLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid studio location %q: %w", c.Location, err)
	}
	return loc, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"Studio:\n"+
			"  Location: %s\n"+
			"  RefundWindow: %s\n"+
			"  AbsenceGrace: %s\n"+
			"  ChargeOnAttend: %t\n"+
			"  ChargeOnAbsent: %t\n"+
			"Reconciler:\n"+
			"  CronSchedule: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.Location,
		c.RefundWindow,
		c.AbsenceGrace,
		c.ChargeOnAttend,
		c.ChargeOnAbsent,
		c.CronSchedule,
	)
}

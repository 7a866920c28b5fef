package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	APIPort string `env:"API_PORT" envDefault:"5000"`

	JWTKey          string        `env:"JWT_SECRET"`
	AthleteTokenTTL time.Duration `env:"ATHLETE_TOKEN_TTL" envDefault:"24h"`
	AdminTokenTTL   time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`
	AdminEmail      string        `env:"ADMIN_EMAIL"`
	AdminPassword   string        `env:"ADMIN_PASSWORD"`
	LoginPerMinute  int           `env:"LOGIN_RATE_PER_MINUTE" envDefault:"20"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBURL      string `env:"DB_URL"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"trackmeet"`
	DBSslMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"trackmeet.db"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	EventsCache   time.Duration `env:"EVENTS_CACHE_TTL" envDefault:"30s"`

	ResultsQueueName  string `env:"RESULTS_QUEUE_NAME" envDefault:"results_announcements"`
	ResultsWebhookURL string `env:"RESULTS_WEBHOOK_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase is Load for commands that only touch the database, such as migrations.
func LoadDatabase() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTKey) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AdminEmail == "" || c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required"))
	}
	if err := c.validateDatabase(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) validateDatabase() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	if c.DBURL != "" {
		return c.DBURL
	}
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
}

// Package config reads process settings from the environment, optionally
// seeded from .env files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/mohammadpnp/member-import/internal/infrastructure/notify"
	"github.com/mohammadpnp/member-import/internal/infrastructure/spreadsheet"
)

const Production = "production"

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

type ImportOptions struct {
	MaxFileSizeMB     int           `env:"IMPORT_MAX_FILE_SIZE_MB" envDefault:"10"`
	MaxRows           int           `env:"IMPORT_MAX_ROWS" envDefault:"1000"`
	AllowedExtensions []string      `env:"IMPORT_ALLOWED_EXTENSIONS" envDefault:"xlsx,xls,csv" envSeparator:","`
	ResolveWorkers    int           `env:"IMPORT_RESOLVE_WORKERS" envDefault:"8"`
	PreviewTTL        time.Duration `env:"IMPORT_PREVIEW_TTL" envDefault:"24h"`
	UploadDir         string        `env:"IMPORT_UPLOAD_DIR" envDefault:"./uploads"`
}

func (o ImportOptions) Validate() error {
	if o.MaxFileSizeMB <= 0 {
		return fmt.Errorf("IMPORT_MAX_FILE_SIZE_MB must be positive, got %d", o.MaxFileSizeMB)
	}
	if o.MaxRows <= 0 {
		return fmt.Errorf("IMPORT_MAX_ROWS must be positive, got %d", o.MaxRows)
	}
	if len(o.AllowedExtensions) == 0 {
		return fmt.Errorf("IMPORT_ALLOWED_EXTENSIONS must list at least one extension")
	}
	for _, ext := range o.AllowedExtensions {
		switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")) {
		case "xlsx", "xls", "csv":
		default:
			return fmt.Errorf("IMPORT_ALLOWED_EXTENSIONS has unsupported extension %q", ext)
		}
	}
	if o.ResolveWorkers <= 0 || o.ResolveWorkers > 64 {
		return fmt.Errorf("IMPORT_RESOLVE_WORKERS must be between 1 and 64, got %d", o.ResolveWorkers)
	}
	if o.PreviewTTL <= 0 {
		return fmt.Errorf("IMPORT_PREVIEW_TTL must be positive, got %s", o.PreviewTTL)
	}
	return nil
}

// Limits converts the options into what the spreadsheet reader enforces.
func (o ImportOptions) Limits() spreadsheet.Limits {
	exts := make([]string, 0, len(o.AllowedExtensions))
	for _, ext := range o.AllowedExtensions {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	return spreadsheet.Limits{
		MaxFileSizeBytes:  int64(o.MaxFileSizeMB) << 20,
		MaxRows:           o.MaxRows,
		AllowedExtensions: exts,
	}
}

type ActivationOptions struct {
	TokenTTL time.Duration `env:"ACTIVATION_TOKEN_TTL" envDefault:"72h"`
}

type RedisOptions struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type MailerOptions struct {
	Provider      string   `env:"MAILER_PROVIDER" envDefault:"log"`
	RedisList     string   `env:"MAILER_REDIS_LIST"`
	KafkaBrokers  []string `env:"MAILER_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"MAILER_KAFKA_TOPIC"`
	RabbitMQURI   string   `env:"MAILER_RABBITMQ_URI"`
	RabbitMQQueue string   `env:"MAILER_RABBITMQ_QUEUE"`
}

// RateLimitOptions guards the public activation endpoint.
type RateLimitOptions struct {
	Enabled bool   `env:"ACTIVATION_RATE_LIMIT_ENABLED" envDefault:"true"`
	Rate    string `env:"ACTIVATION_RATE_LIMIT" envDefault:"20-M"`
}

type Configuration struct {
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	DatabaseURL      string `env:"DATABASE_URL"`
	Port             string `env:"PORT" envDefault:"8080"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	BodyLimit        string `env:"HTTP_BODY_LIMIT" envDefault:"12M"`
	AutoMigrate      bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	Import     ImportOptions
	Activation ActivationOptions
	Redis      RedisOptions
	Mailer     MailerOptions
	RateLimit  RateLimitOptions
}

// LoadEnv loads the env files that exist and reports how many it found.
// Values already set in the environment win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads the configuration from envFiles and the environment.
func Load(envFiles ...string) (*Configuration, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}
	if c.Activation.TokenTTL <= 0 {
		return fmt.Errorf("ACTIVATION_TOKEN_TTL must be positive, got %s", c.Activation.TokenTTL)
	}
	if c.RateLimit.Enabled {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit.Rate); err != nil {
			return fmt.Errorf("ACTIVATION_RATE_LIMIT: %w", err)
		}
	}

	switch strings.ToLower(c.Mailer.Provider) {
	case notify.ProviderLog:
	case notify.ProviderRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when MAILER_PROVIDER is redis")
		}
	case notify.ProviderKafka:
		if len(c.Mailer.KafkaBrokers) == 0 {
			return fmt.Errorf("MAILER_KAFKA_BROKERS is required when MAILER_PROVIDER is kafka")
		}
	case notify.ProviderRabbitMQ:
		if c.Mailer.RabbitMQURI == "" {
			return fmt.Errorf("MAILER_RABBITMQ_URI is required when MAILER_PROVIDER is rabbitmq")
		}
	default:
		return fmt.Errorf("MAILER_PROVIDER must be one of %v, got %q", notify.SupportedProviders(), c.Mailer.Provider)
	}
	return nil
}

// NotifyConfig is the mailer factory's view of the configuration.
func (c *Configuration) NotifyConfig() notify.Config {
	return notify.Config{
		Provider:      c.Mailer.Provider,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		RedisList:     c.Mailer.RedisList,
		KafkaBrokers:  c.Mailer.KafkaBrokers,
		KafkaTopic:    c.Mailer.KafkaTopic,
		RabbitMQURI:   c.Mailer.RabbitMQURI,
		RabbitMQQueue: c.Mailer.RabbitMQQueue,
	}
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger builds the process logger: JSON in production, text otherwise.
func (c *Configuration) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(c.LogrusLogLevel())
	if c.GoAppEnvironment == Production {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

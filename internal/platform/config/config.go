package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage and notification drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"

	NotifyNone  = "none"
	NotifyKafka = "kafka"
	NotifyAsynq = "asynq"
)

// DevReviewerSigningKey is the well-known key used when INTAKE_DEV_MODE is
// set. It is rejected outside dev mode.
const DevReviewerSigningKey = "dev-secret-key-change-in-production"

const minSigningKeyLen = 32

// Server captures everything main needs to wire the service.
type Server struct {
	Addr            string        `env:"INTAKE_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"INTAKE_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"INTAKE_LOG_FORMAT"       envDefault:"json"`
	RequestTimeout  time.Duration `env:"INTAKE_REQUEST_TIMEOUT"  envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"INTAKE_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	StoreDriver     string `env:"INTAKE_STORE_DRIVER"     envDefault:"memory"`
	QuestionsDriver string `env:"INTAKE_QUESTIONS_DRIVER" envDefault:"memory"`
	QuestionsFile   string `env:"INTAKE_QUESTIONS_FILE"`
	WorkflowFile    string `env:"INTAKE_WORKFLOW_FILE"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"INTAKE_TRUSTED_PROXIES" envSeparator:","`

	// DevMode allows the well-known reviewer signing key for local runs.
	DevMode bool `env:"INTAKE_DEV_MODE" envDefault:"false"`

	// ReviewerSigningKey verifies clinician bearer tokens on the review endpoint.
	ReviewerSigningKey string `env:"INTAKE_REVIEWER_SIGNING_KEY"`
	ReviewerIssuer     string `env:"INTAKE_REVIEWER_ISSUER"      envDefault:"intake"`

	Postgres  PostgresConfig
	Redis     RedisConfig
	Notify    NotifyConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// PostgresConfig configures the database pool.
type PostgresConfig struct {
	URL             string        `env:"INTAKE_DATABASE_URL"`
	MaxOpenConns    int           `env:"INTAKE_DATABASE_MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"INTAKE_DATABASE_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"INTAKE_DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"INTAKE_DATABASE_MIGRATE"           envDefault:"true"`
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	URL          string        `env:"INTAKE_REDIS_URL"`
	PoolSize     int           `env:"INTAKE_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"INTAKE_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"INTAKE_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"INTAKE_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"INTAKE_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	KeyTTL       time.Duration `env:"INTAKE_REDIS_KEY_TTL"        envDefault:"0s"`
}

// NotifyConfig selects and configures the review notification channel.
type NotifyConfig struct {
	Driver           string        `env:"INTAKE_NOTIFY_DRIVER"            envDefault:"none"`
	Timeout          time.Duration `env:"INTAKE_NOTIFY_TIMEOUT"           envDefault:"3s"`
	FailureThreshold int           `env:"INTAKE_NOTIFY_FAILURE_THRESHOLD" envDefault:"5"`
	SuccessThreshold int           `env:"INTAKE_NOTIFY_SUCCESS_THRESHOLD" envDefault:"1"`
	Cooldown         time.Duration `env:"INTAKE_NOTIFY_COOLDOWN"          envDefault:"30s"`

	KafkaBrokers  []string `env:"INTAKE_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"INTAKE_KAFKA_TOPIC"   envDefault:"consultation-submitted"`
	KafkaClientID string   `env:"INTAKE_KAFKA_CLIENT_ID" envDefault:"intake"`

	AsynqRedisAddr string `env:"INTAKE_ASYNQ_REDIS_ADDR" envDefault:"localhost:6379"`
	AsynqQueue     string `env:"INTAKE_ASYNQ_QUEUE"      envDefault:"reviews"`
	AsynqMaxRetry  int    `env:"INTAKE_ASYNQ_MAX_RETRY"  envDefault:"3"`
}

// RateLimitConfig bounds submissions per client IP.
type RateLimitConfig struct {
	Enabled bool    `env:"INTAKE_RATE_LIMIT_ENABLED" envDefault:"true"`
	RPS     float64 `env:"INTAKE_RATE_LIMIT_RPS"     envDefault:"5"`
	Burst   int     `env:"INTAKE_RATE_LIMIT_BURST"   envDefault:"10"`
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"INTAKE_OTLP_ENDPOINT"`
	Insecure    bool   `env:"INTAKE_OTLP_INSECURE" envDefault:"true"`
	ServiceName string `env:"INTAKE_SERVICE_NAME"  envDefault:"intake"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DevMode && cfg.ReviewerSigningKey == "" {
		cfg.ReviewerSigningKey = DevReviewerSigningKey
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks driver selections and their required settings.
func (c Server) Validate() error {
	if !slices.Contains([]string{DriverMemory, DriverPostgres, DriverRedis}, c.StoreDriver) {
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}
	if !slices.Contains([]string{DriverMemory, DriverPostgres}, c.QuestionsDriver) {
		return fmt.Errorf("unsupported questions driver %q", c.QuestionsDriver)
	}
	if (c.StoreDriver == DriverPostgres || c.QuestionsDriver == DriverPostgres) && c.Postgres.URL == "" {
		return errors.New("INTAKE_DATABASE_URL is required for the postgres driver")
	}
	if c.StoreDriver == DriverRedis && c.Redis.URL == "" {
		return errors.New("INTAKE_REDIS_URL is required for the redis driver")
	}
	switch c.Notify.Driver {
	case NotifyNone, NotifyAsynq:
	case NotifyKafka:
		if len(c.Notify.KafkaBrokers) == 0 {
			return errors.New("INTAKE_KAFKA_BROKERS is required for the kafka notifier")
		}
	default:
		return fmt.Errorf("unsupported notify driver %q", c.Notify.Driver)
	}
	if !c.DevMode {
		switch {
		case c.ReviewerSigningKey == "":
			return errors.New("INTAKE_REVIEWER_SIGNING_KEY is required unless INTAKE_DEV_MODE is set")
		case c.ReviewerSigningKey == DevReviewerSigningKey:
			return errors.New("INTAKE_REVIEWER_SIGNING_KEY must not be the development key")
		case len(c.ReviewerSigningKey) < minSigningKeyLen:
			return fmt.Errorf("INTAKE_REVIEWER_SIGNING_KEY must be at least %d bytes", minSigningKeyLen)
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate limit RPS and burst must be positive")
	}
	return nil
}

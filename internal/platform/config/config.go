package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// VerificationDelayUnits is the fixed number of time units between proof
// submission and verification becoming due.
const VerificationDelayUnits = 7

// Server captures process level configuration.
type Server struct {
	Addr        string `env:"TRUSTCHAIN_ADDR" envDefault:":8080"`
	Environment string `env:"TRUSTCHAIN_ENV" envDefault:"development"`
	LogLevel    string `env:"TRUSTCHAIN_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"TRUSTCHAIN_LOG_FORMAT" envDefault:"json"`

	// DatabaseURL selects the postgres stores; empty keeps everything in memory.
	DatabaseURL string `env:"DATABASE_URL"`

	Redis RedisConfig
	Kafka KafkaConfig

	Lifecycle Lifecycle

	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"trustchain"`
	JWTAudience   string `env:"JWT_AUDIENCE" envDefault:"trustchain-admin"`

	DocumentBucket string `env:"DOCUMENT_BUCKET"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	MaxUploadBytes int64  `env:"TRUSTCHAIN_MAX_UPLOAD_BYTES" envDefault:"10485760"`

	SeedDemo bool `env:"TRUSTCHAIN_SEED_DEMO" envDefault:"false"`

	// OTelEndpoint is the OTLP/HTTP collector URL; empty disables tracing export.
	OTelEndpoint string `env:"TRUSTCHAIN_OTEL_ENDPOINT"`
}

// Lifecycle holds the funding lifecycle rules.
type Lifecycle struct {
	AdminFeeRate decimal.Decimal `env:"TRUSTCHAIN_ADMIN_FEE_RATE" envDefault:"0.05"`
	// TimeUnit is the length of one verification time unit.
	TimeUnit time.Duration `env:"TRUSTCHAIN_TIME_UNIT" envDefault:"1s"`
	// SweepInterval enables the background verification sweep; zero disables it.
	SweepInterval time.Duration `env:"TRUSTCHAIN_SWEEP_INTERVAL" envDefault:"0s"`
}

// VerificationDelay is the wait between proof submission and verification.
func (l Lifecycle) VerificationDelay() time.Duration {
	return VerificationDelayUnits * l.TimeUnit
}

// RedisConfig configures the idempotency cache.
type RedisConfig struct {
	URL            string        `env:"REDIS_URL"`
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns   int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout    time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout    time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout   time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// KafkaConfig configures the ledger outbox relay.
type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	LedgerTopic  string        `env:"KAFKA_LEDGER_TOPIC" envDefault:"trustchain.ledger"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// Enabled reports whether the relay should run.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// FromEnv loads .env files when present, then parses the environment.
func FromEnv() (Server, error) {
	_ = godotenv.Load(".env", ".env.local")

	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects settings the lifecycle cannot run with.
func (c Server) Validate() error {
	rate := c.Lifecycle.AdminFeeRate
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("admin fee rate must be in [0, 1), got %s", rate)
	}
	if c.Lifecycle.TimeUnit <= 0 {
		return fmt.Errorf("time unit must be positive, got %s", c.Lifecycle.TimeUnit)
	}
	if c.Lifecycle.SweepInterval < 0 {
		return fmt.Errorf("sweep interval cannot be negative")
	}
	return nil
}

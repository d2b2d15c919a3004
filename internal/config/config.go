// Package config provides configuration structures and validation for the settlement services.
// Both binaries (storefront API and settlement worker) share one Config and differ only in the
// .env file they load and the sections they actually use.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration with settings for all components.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Settlement  SettlementConfig
	Gateway     GatewayConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	CallbackTopic     string // Verified gateway callbacks
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string

	HandlerMaxAttempts  int           // In-place attempts for a retryable settlement failure before parking
	HandlerRetryBackoff time.Duration // Multiplied by the attempt number
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	LockTimeout     time.Duration // Applied per transaction with SET LOCAL lock_timeout
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// SettlementConfig contains settlement engine tuning
type SettlementConfig struct {
	MinTopUpAmount decimal.Decimal
	MaxRetries     int
	RetryBackoff   time.Duration
	TopUpExpiry    time.Duration // PENDING top-ups older than this are swept to EXPIRED
	SweepInterval  time.Duration
}

// GatewayConfig contains payment gateway credentials and endpoints
type GatewayConfig struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	ReturnURL   string
	CancelURL   string
	Timeout     time.Duration
}

// AuthConfig contains bearer token verification settings
type AuthConfig struct {
	JWTSecret string
	Leeway    time.Duration
}

// RateLimitConfig contains request throttling settings
type RateLimitConfig struct {
	Backend    string // "memory" or "redis"
	Limit      int
	Window     time.Duration
	MaxEntries int // Upper bound on tracked keys for the memory backend
}

// CacheConfig contains item cache settings
type CacheConfig struct {
	Enabled bool
	ItemTTL time.Duration
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.CallbackTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_CALLBACK_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.HandlerMaxAttempts <= 0 {
		validationErrors = append(validationErrors, "KAFKA_HANDLER_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Kafka.HandlerRetryBackoff < 0 {
		validationErrors = append(validationErrors, "KAFKA_HANDLER_RETRY_BACKOFF must not be negative")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}
	if c.Postgres.LockTimeout <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_LOCK_TIMEOUT must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" && (c.RateLimit.Backend == "redis" || c.Cache.Enabled) {
		validationErrors = append(validationErrors, "REDIS_ADDR is required when the redis rate limiter or item cache is enabled")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Settlement config
	if !c.Settlement.MinTopUpAmount.IsPositive() {
		validationErrors = append(validationErrors, "TOPUP_MIN_AMOUNT must be greater than 0")
	}
	if c.Settlement.MaxRetries <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_MAX_RETRIES must be greater than 0")
	}
	if c.Settlement.RetryBackoff < 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_RETRY_BACKOFF must not be negative")
	}
	if c.Settlement.TopUpExpiry <= 0 {
		validationErrors = append(validationErrors, "TOPUP_EXPIRY must be greater than 0")
	}
	if c.Settlement.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "TOPUP_SWEEP_INTERVAL must be greater than 0")
	}

	// Validate Gateway config
	if c.Gateway.BaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.ChecksumKey == "" {
		validationErrors = append(validationErrors, "GATEWAY_CHECKSUM_KEY is required")
	}
	if c.Gateway.Timeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TIMEOUT must be greater than 0")
	}

	// Validate Auth config
	if c.Auth.JWTSecret == "" {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET is required")
	}

	// Validate RateLimit config
	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		validationErrors = append(validationErrors, "RATE_LIMIT_BACKEND must be one of: memory, redis")
	}
	if c.RateLimit.Limit <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_REQUESTS must be greater than 0")
	}
	if c.RateLimit.Window <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_WINDOW must be greater than 0")
	}
	if c.RateLimit.MaxEntries <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_MAX_ENTRIES must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

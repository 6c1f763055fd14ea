// Package config defines the global configuration structure for the GridWatch
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"gridwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the GridWatch service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require
// (Least Privilege principle).
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"gridwatch-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Ingest    IngestConfig
	Security  SecurityConfig
	Dashboard DashboardConfig
	Seed      SeedConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`     // Fail fast when pool exhausted
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections during failover
}

// CacheConfig holds Redis connection settings for the dashboard cache.
type CacheConfig struct {
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword SecretString  `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	DashboardTTL  time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"5m"`
}

// AuthMode selects how bearer tokens are verified.
type AuthMode string

const (
	// AuthModeIntrospect verifies tokens against the external identity
	// provider's introspection endpoint.
	AuthModeIntrospect AuthMode = "introspect"
	// AuthModeStatic accepts a single configured token. Only valid outside
	// prod; the loader rejects it for APP_ENV=prod.
	AuthModeStatic AuthMode = "static"
)

// AuthConfig holds identity provider settings for bearer-token verification.
type AuthConfig struct {
	Mode          AuthMode      `envconfig:"AUTH_MODE" default:"introspect" validate:"required,oneof=introspect static"`
	IntrospectURL string        `envconfig:"AUTH_INTROSPECT_URL" validate:"required_if=Mode introspect,omitempty,url"`
	ClientSecret  SecretString  `envconfig:"AUTH_CLIENT_SECRET"`
	StaticToken   SecretString  `envconfig:"AUTH_STATIC_TOKEN"`
	StaticRole    string        `envconfig:"AUTH_STATIC_ROLE" default:"admin"`
	CacheTTL      time.Duration `envconfig:"AUTH_CACHE_TTL" default:"60s"`
	Timeout       time.Duration `envconfig:"AUTH_TIMEOUT" default:"5s"`
}

// IngestConfig holds Kafka settings for the streaming reading consumer.
type IngestConfig struct {
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_READINGS_TOPIC" default:"gridwatch.readings"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"gridwatch-ingest"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DashboardConfig holds dashboard read-model tuning.
type DashboardConfig struct {
	RecentAlerts int `envconfig:"DASHBOARD_RECENT_ALERTS" default:"10"`
}

// SeedConfig gates the demo fixture endpoint. Seeding is refused for
// APP_ENV=prod regardless of this flag; the loader enforces it.
type SeedConfig struct {
	Enabled bool `envconfig:"SEED_ENABLED" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrEnvironmentGate indicates a setting that is forbidden in the current
	// environment (e.g., static auth or seeding in prod).
	ErrEnvironmentGate ConfigErrorType = "ENVIRONMENT_GATE"
)

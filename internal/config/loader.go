// loader.go implements the configuration loading lifecycle for GridWatch.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
//  6. Apply environment gates: static auth and seeding are refused in prod.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// prodEnv is the APP_ENV value for production deployments. Demo affordances
// (static auth, seeding) are rejected under it.
const prodEnv = "prod"

// LoadConfig loads and validates the GridWatch configuration.
//
// It performs the following steps in order:
//  1. Sets the process timezone to UTC.
//  2. Loads a .env file if present (non-fatal if missing).
//  3. Processes envconfig tags to populate the Config struct.
//  4. Populates Config.Build from linker-injected variables.
//  5. Validates the Config struct.
//  6. Enforces environment gates.
func LoadConfig() (*Config, error) {
	// Step 1: Enforce UTC timezone to prevent drift bugs.
	time.Local = time.UTC

	// Step 2: Load .env file (non-fatal if absent).
	// godotenv.Load() will silently succeed if no .env file exists in the
	// working directory. It does NOT override existing environment variables.
	_ = godotenv.Load()

	// Step 3: Process envconfig tags to populate the Config struct.
	// The empty prefix "" means envconfig will use the exact tag values
	// (e.g., envconfig:"APP_ENV" reads APP_ENV directly).
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	// Step 4: Populate build metadata from linker-injected variables.
	cfg.Build = NewBuildInfo()

	// Step 5: Validate the populated struct.
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	// Step 6: Environment gates.
	if err := cfg.checkEnvironmentGates(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkEnvironmentGates rejects demo-only settings under APP_ENV=prod.
// Static-token auth and the seed endpoint exist for local and staging use;
// a production process configured with either refuses to start.
func (c *Config) checkEnvironmentGates() error {
	if c.Environment != prodEnv {
		if c.Auth.Mode == AuthModeStatic && c.Auth.StaticToken.Unmask() == "" {
			return &ConfigError{
				Type:    ErrMissingEnv,
				Message: "AUTH_STATIC_TOKEN is required when AUTH_MODE=static",
			}
		}
		return nil
	}
	if c.Auth.Mode == AuthModeStatic {
		return &ConfigError{
			Type:    ErrEnvironmentGate,
			Message: "AUTH_MODE=static is not permitted when APP_ENV=prod",
		}
	}
	if c.Seed.Enabled {
		return &ConfigError{
			Type:    ErrEnvironmentGate,
			Message: "SEED_ENABLED is not permitted when APP_ENV=prod",
		}
	}
	return nil
}

// SeedAllowed reports whether the seed endpoint may be mounted: the flag must
// be on and the environment must not be prod.
func (c *Config) SeedAllowed() bool {
	return c.Seed.Enabled && c.Environment != prodEnv
}

// Package config defines the global configuration structure for the
// Courseboard scheduling service. Configuration is loaded once at process
// initialization and is immutable thereafter, following 12-Factor principles.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format fails the load; main treats
// that as fatal (fail fast).
package config

import (
	"time"

	"courseboard/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server    ServerConfig
	Database  DatabaseConfig
	Email     EmailConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// EmailConfig holds email delivery provider credentials and sender identity.
type EmailConfig struct {
	// Provider selects the delivery backend: "sendgrid" or "ses".
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"sendgrid" validate:"oneof=sendgrid ses"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	AWSRegion      string       `envconfig:"AWS_REGION" default:"us-east-1"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"noreply@courseboard.app"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Courseboard"`
	SendTimeout    time.Duration `envconfig:"EMAIL_SEND_TIMEOUT" default:"10s"`
}

// SchedulerConfig holds settings for the cron-triggered worker endpoints.
type SchedulerConfig struct {
	// CronSecret authenticates the external scheduler. The worker endpoints
	// return 500 when it is unset and 401 when the bearer token mismatches.
	CronSecret SecretString `envconfig:"CRON_SECRET"`

	// BatchLimit caps the number of items a single worker invocation
	// processes, bounding invocation duration under backlog.
	BatchLimit int `envconfig:"SCHEDULER_BATCH_LIMIT" default:"100"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

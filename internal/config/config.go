// Package config defines the global configuration structure for the Mergington
// activities service. Configuration is loaded once at process initialization
// and is immutable thereafter. It follows 12-Factor App principles by strictly
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

	"mergington/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of credentials.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the activities service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"mergington-activities"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Email         EmailConfig
	Queue         QueueConfig
	AWS           AWSConfig
	Scheduler     SchedulerConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PortalURL is the student-facing portal linked from notification emails
	// (no trailing slash).
	PortalURL string `envconfig:"PORTAL_URL" default:"http://localhost:8080" validate:"required,url"`
}

// EmailConfig holds email delivery provider credentials and sender identity.
// The API key is optional: when empty, the service runs with email delivery
// disabled and every dispatch resolves to a "not configured" outcome.
type EmailConfig struct {
	APIKey      SecretString  `envconfig:"MAIL_API_KEY"`
	FromAddress string        `envconfig:"MAIL_FROM_ADDRESS" default:"activities@mergington.edu"`
	FromName    string        `envconfig:"MAIL_FROM_NAME" default:"Mergington High School Activities"`
	Provider    string        `envconfig:"MAIL_PROVIDER" default:"sendgrid" validate:"oneof=sendgrid stub"`
	SendTimeout time.Duration `envconfig:"MAIL_SEND_TIMEOUT" default:"10s"`
}

// Configured reports whether real mail credentials are present.
func (e EmailConfig) Configured() bool {
	return e.APIKey.Unmask() != ""
}

// QueueConfig holds the async notification channel settings. Mode "inproc"
// runs a bounded in-process queue with a worker pool; mode "sqs" publishes
// requests to the SQS queue consumed by cmd/email-worker.
type QueueConfig struct {
	Mode            string        `envconfig:"QUEUE_MODE" default:"inproc" validate:"oneof=inproc sqs"`
	BufferSize      int           `envconfig:"QUEUE_BUFFER_SIZE" default:"256" validate:"min=1"`
	WorkerCount     int           `envconfig:"QUEUE_WORKER_COUNT" default:"4" validate:"min=1"`
	ShutdownTimeout time.Duration `envconfig:"QUEUE_SHUTDOWN_TIMEOUT" default:"15s"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
// Only consulted when QueueConfig.Mode is "sqs" or metrics are enabled.
type AWSConfig struct {
	Region            string `envconfig:"AWS_REGION" default:"us-east-1"`
	NotificationQueue string `envconfig:"SQS_NOTIFICATIONS"`

	// LocalStack support (empty in prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// SchedulerConfig holds the cadence for the periodic digest and reminder
// triggers. Times are wall-clock "HH:MM" in the school's timezone.
type SchedulerConfig struct {
	Enabled         bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	Timezone        string `envconfig:"SCHEDULER_TIMEZONE" default:"America/New_York"`
	DigestDay       string `envconfig:"DIGEST_DAY" default:"Monday"`
	DigestTime      string `envconfig:"DIGEST_TIME" default:"08:00"`
	DailyReminderAt string `envconfig:"REMINDER_TIME" default:"18:00"`
}

// SecurityConfig holds CORS settings for the browser-facing portal.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"MergingtonActivities"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
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
)

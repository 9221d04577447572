// Package config defines the relay configuration. It is loaded once per
// invocation and never modified afterwards.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
package config

import (
	"time"

	"zbxrelay/internal/types"
)

// SecretString is an alias for types.SecretString so secrets loaded here are
// redacted when logged.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Collector     CollectorConfig
	Reporting     ReportingConfig
	Observability ObservabilityConfig
	AWS           AWSConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// CollectorConfig describes the incident collector endpoint.
type CollectorConfig struct {
	Host     string        `envconfig:"COLLECTOR_HOST" default:"collectors.signifai.io" validate:"required,hostname_rfc1123"`
	Port     int           `envconfig:"COLLECTOR_PORT" default:"443" validate:"min=1,max=65535"`
	Path     string        `envconfig:"COLLECTOR_PATH" default:"/v1/incidents" validate:"required,startswith=/"`
	Timeout  time.Duration `envconfig:"COLLECTOR_TIMEOUT" default:"5s" validate:"gt=0"`
	Attempts int           `envconfig:"COLLECTOR_ATTEMPTS" default:"5" validate:"min=1"`

	// UserAgent defaults to zbxrelay/<version> when empty.
	UserAgent string `envconfig:"COLLECTOR_USER_AGENT"`

	// AuthKey is used when the auth key argument is empty. Resolvable from
	// SSM via COLLECTOR_AUTH_KEY_SSM_PARAM.
	AuthKey SecretString `envconfig:"COLLECTOR_AUTH_KEY"`

	// InsecureSkipVerify disables certificate checks. Only for test collectors.
	InsecureSkipVerify bool `envconfig:"COLLECTOR_INSECURE_SKIP_VERIFY" default:"false"`
}

// ReportingConfig holds crash-reporting settings. The API key itself is
// passed on the command line.
type ReportingConfig struct {
	ReleaseStage string `envconfig:"BUGSNAG_RELEASE_STAGE" default:"production"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"ZabbixRelay"`
}

// AWSConfig holds regional configuration shared by the SSM and CloudWatch clients.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into its
	// target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

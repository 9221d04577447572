package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

// testSecretProvider is a configurable mock for SSM resolution.
type testSecretProvider struct {
	values     map[string]string
	err        error
	calledWith []string
	callCount  int
}

func (p *testSecretProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	p.callCount++
	p.calledWith = append(p.calledWith, keys...)
	if p.err != nil {
		return nil, p.err
	}
	result := make(map[string]string)
	for _, k := range keys {
		if v, ok := p.values[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// configEnvVars lists every variable LoadConfig reads.
var configEnvVars = []string{
	"APP_ENV", "LOG_LEVEL",
	"COLLECTOR_HOST", "COLLECTOR_PORT", "COLLECTOR_PATH", "COLLECTOR_TIMEOUT",
	"COLLECTOR_ATTEMPTS", "COLLECTOR_USER_AGENT", "COLLECTOR_AUTH_KEY",
	"COLLECTOR_INSECURE_SKIP_VERIFY", "COLLECTOR_AUTH_KEY_SSM_PARAM",
	"BUGSNAG_RELEASE_STAGE", "METRICS_ENABLED", "METRIC_NAMESPACE",
	"AWS_REGION", "AWS_ENDPOINT_URL",
}

// clearConfigEnv unsets every config variable for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// testDeps returns OS-backed deps without .env loading.
func testDeps() loaderDeps {
	deps := defaultDeps()
	deps.dotenv = func() error { return nil }
	return deps
}

func loadForTest(t *testing.T, provider SecretProvider) (*Config, error) {
	t.Helper()
	return loadConfigWithDeps(provider, testDeps())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := loadForTest(t, nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Collector.Host != "collectors.signifai.io" {
		t.Errorf("Collector.Host = %q, want default", cfg.Collector.Host)
	}
	if cfg.Collector.Port != 443 {
		t.Errorf("Collector.Port = %d, want 443", cfg.Collector.Port)
	}
	if cfg.Collector.Path != "/v1/incidents" {
		t.Errorf("Collector.Path = %q, want /v1/incidents", cfg.Collector.Path)
	}
	if cfg.Collector.Timeout != 5*time.Second {
		t.Errorf("Collector.Timeout = %v, want 5s", cfg.Collector.Timeout)
	}
	if cfg.Collector.Attempts != 5 {
		t.Errorf("Collector.Attempts = %d, want 5", cfg.Collector.Attempts)
	}
	if cfg.Collector.UserAgent != "zbxrelay/dev" {
		t.Errorf("Collector.UserAgent = %q, want zbxrelay/dev", cfg.Collector.UserAgent)
	}
	if !cfg.Collector.AuthKey.IsEmpty() {
		t.Error("Collector.AuthKey should default to empty")
	}
	if cfg.Collector.InsecureSkipVerify {
		t.Error("Collector.InsecureSkipVerify should default to false")
	}
	if cfg.Reporting.ReleaseStage != "production" {
		t.Errorf("Reporting.ReleaseStage = %q, want production", cfg.Reporting.ReleaseStage)
	}
	if cfg.Observability.MetricsEnabled {
		t.Error("Observability.MetricsEnabled should default to false")
	}
	if cfg.Observability.MetricNamespace != "ZabbixRelay" {
		t.Errorf("Observability.MetricNamespace = %q, want ZabbixRelay", cfg.Observability.MetricNamespace)
	}
	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("AWS.Region = %q, want us-east-1", cfg.AWS.Region)
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want dev", cfg.Build.Version)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("COLLECTOR_HOST", "localhost")
	t.Setenv("COLLECTOR_PORT", "8443")
	t.Setenv("COLLECTOR_PATH", "/v2/events")
	t.Setenv("COLLECTOR_TIMEOUT", "250ms")
	t.Setenv("COLLECTOR_ATTEMPTS", "2")
	t.Setenv("COLLECTOR_USER_AGENT", "custom/1.0")
	t.Setenv("COLLECTOR_AUTH_KEY", "secret-key")
	t.Setenv("COLLECTOR_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRIC_NAMESPACE", "Custom")
	t.Setenv("AWS_ENDPOINT_URL", "http://localhost:4566")

	cfg, err := loadForTest(t, nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Collector.Host != "localhost" || cfg.Collector.Port != 8443 || cfg.Collector.Path != "/v2/events" {
		t.Errorf("Collector endpoint = %s:%d%s, want localhost:8443/v2/events",
			cfg.Collector.Host, cfg.Collector.Port, cfg.Collector.Path)
	}
	if cfg.Collector.Timeout != 250*time.Millisecond {
		t.Errorf("Collector.Timeout = %v, want 250ms", cfg.Collector.Timeout)
	}
	if cfg.Collector.Attempts != 2 {
		t.Errorf("Collector.Attempts = %d, want 2", cfg.Collector.Attempts)
	}
	if cfg.Collector.UserAgent != "custom/1.0" {
		t.Errorf("Collector.UserAgent = %q, want custom/1.0", cfg.Collector.UserAgent)
	}
	if cfg.Collector.AuthKey.Unmask() != "secret-key" {
		t.Errorf("Collector.AuthKey.Unmask() = %q, want secret-key", cfg.Collector.AuthKey.Unmask())
	}
	if cfg.Collector.AuthKey.String() != "***REDACTED***" {
		t.Errorf("Collector.AuthKey.String() should be redacted, got %q", cfg.Collector.AuthKey.String())
	}
	if !cfg.Collector.InsecureSkipVerify {
		t.Error("Collector.InsecureSkipVerify should be true")
	}
	if !cfg.Observability.MetricsEnabled || cfg.Observability.MetricNamespace != "Custom" {
		t.Errorf("Observability = %+v, want enabled with Custom namespace", cfg.Observability)
	}
	if cfg.AWS.EndpointURL != "http://localhost:4566" {
		t.Errorf("AWS.EndpointURL = %q, want LocalStack URL", cfg.AWS.EndpointURL)
	}
}

func TestLoadConfigLeavesTimeZoneAlone(t *testing.T) {
	clearConfigEnv(t)

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	orig := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = orig })

	if _, err := loadForTest(t, nil); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if time.Local != loc {
		t.Errorf("time.Local = %v, want it unchanged (%v)", time.Local, loc)
	}
}

func TestLoadConfigValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid environment", "APP_ENV", "production"},
		{"invalid log level", "LOG_LEVEL", "verbose"},
		{"port zero", "COLLECTOR_PORT", "0"},
		{"port too large", "COLLECTOR_PORT", "70000"},
		{"relative path", "COLLECTOR_PATH", "v1/incidents"},
		{"zero timeout", "COLLECTOR_TIMEOUT", "0s"},
		{"zero attempts", "COLLECTOR_ATTEMPTS", "0"},
		{"bad host", "COLLECTOR_HOST", "not a host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := loadForTest(t, nil)
			if err == nil {
				t.Fatalf("expected validation error for %s=%q", tt.key, tt.value)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Type != ErrValidation {
				t.Errorf("ConfigError.Type = %q, want %q", cfgErr.Type, ErrValidation)
			}
		})
	}
}

func TestLoadConfigParsingFailure(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("COLLECTOR_TIMEOUT", "five seconds")

	_, err := loadForTest(t, nil)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrParsing {
		t.Errorf("ConfigError.Type = %q, want %q", cfgErr.Type, ErrParsing)
	}
}

func TestLoadConfigSSMResolution(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("COLLECTOR_AUTH_KEY_SSM_PARAM", "/prod/zbxrelay/collector/auth_key")

	provider := &testSecretProvider{values: map[string]string{
		"/prod/zbxrelay/collector/auth_key": "from-ssm",
	}}

	cfg, err := loadForTest(t, provider)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if provider.callCount != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount)
	}
	if cfg.Collector.AuthKey.Unmask() != "from-ssm" {
		t.Errorf("Collector.AuthKey = %q, want from-ssm", cfg.Collector.AuthKey.Unmask())
	}
}

func TestLoadConfigSSMSkippedForLocal(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "local")
	t.Setenv("COLLECTOR_AUTH_KEY_SSM_PARAM", "/dev/zbxrelay/collector/auth_key")

	provider := &testSecretProvider{}
	if _, err := loadForTest(t, provider); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if provider.callCount != 0 {
		t.Errorf("provider should not be called for local, got %d calls", provider.callCount)
	}
}

func TestLoadConfigSSMSkippedWhenAppEnvUnset(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("COLLECTOR_AUTH_KEY_SSM_PARAM", "/dev/zbxrelay/collector/auth_key")

	provider := &testSecretProvider{}
	if _, err := loadForTest(t, provider); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if provider.callCount != 0 {
		t.Errorf("unset APP_ENV counts as local, got %d provider calls", provider.callCount)
	}
}

func TestLoadConfigSSMDirectEnvWins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("COLLECTOR_AUTH_KEY", "direct")
	t.Setenv("COLLECTOR_AUTH_KEY_SSM_PARAM", "/staging/zbxrelay/collector/auth_key")

	provider := &testSecretProvider{values: map[string]string{
		"/staging/zbxrelay/collector/auth_key": "from-ssm",
	}}

	cfg, err := loadForTest(t, provider)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if provider.callCount != 0 {
		t.Errorf("provider should be skipped when target is set, got %d calls", provider.callCount)
	}
	if cfg.Collector.AuthKey.Unmask() != "direct" {
		t.Errorf("Collector.AuthKey = %q, want direct", cfg.Collector.AuthKey.Unmask())
	}
}

func TestLoadConfigSSMFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider SecretProvider
		wantMsg  string
	}{
		{
			name:     "provider error",
			provider: &testSecretProvider{err: errors.New("throttled")},
			wantMsg:  "failed to resolve 1 SSM parameters",
		},
		{
			name:     "nil provider",
			provider: nil,
			wantMsg:  "COLLECTOR_AUTH_KEY",
		},
		{
			name:     "parameter missing",
			provider: &testSecretProvider{values: map[string]string{}},
			wantMsg:  "SSM parameters not found for: COLLECTOR_AUTH_KEY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("APP_ENV", "dev")
			t.Setenv("COLLECTOR_AUTH_KEY_SSM_PARAM", "/dev/zbxrelay/collector/auth_key")

			_, err := loadForTest(t, tt.provider)

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Type != ErrSSMResolution {
				t.Errorf("ConfigError.Type = %q, want %q", cfgErr.Type, ErrSSMResolution)
			}
			if !strings.Contains(cfgErr.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", cfgErr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestResolveSSMParamsIsolated(t *testing.T) {
	env := map[string]string{
		"COLLECTOR_AUTH_KEY_SSM_PARAM": "/prod/key",
		"OTHER_SSM_PARAM":              "",
		"UNRELATED":                    "x",
	}
	deps := loaderDeps{
		lookupEnv: func(k string) (string, bool) { v, ok := env[k]; return v, ok },
		setEnv:    func(k, v string) error { env[k] = v; return nil },
		environ: func() []string {
			out := make([]string, 0, len(env))
			for k, v := range env {
				out = append(out, k+"="+v)
			}
			return out
		},
	}
	provider := &testSecretProvider{values: map[string]string{"/prod/key": "resolved"}}

	if err := resolveSSMParams(provider, deps); err != nil {
		t.Fatalf("resolveSSMParams returned error: %v", err)
	}
	if env["COLLECTOR_AUTH_KEY"] != "resolved" {
		t.Errorf("COLLECTOR_AUTH_KEY = %q, want resolved", env["COLLECTOR_AUTH_KEY"])
	}
	if len(provider.calledWith) != 1 || provider.calledWith[0] != "/prod/key" {
		t.Errorf("provider called with %v, want [/prod/key] (empty paths skipped)", provider.calledWith)
	}
	if _, ok := env["OTHER"]; ok {
		t.Error("empty SSM path must not produce a target variable")
	}
}

func TestLoadConfigDotenvFile(t *testing.T) {
	clearConfigEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "COLLECTOR_HOST=dotenv.example.com\nCOLLECTOR_ATTEMPTS=3\nLOG_LEVEL=warn\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write .env file: %v", err)
	}
	// Real env beats the file.
	t.Setenv("LOG_LEVEL", "error")

	deps := defaultDeps()
	deps.dotenv = func() error { return godotenv.Load(envFile) }

	cfg, err := loadConfigWithDeps(nil, deps)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Collector.Host != "dotenv.example.com" {
		t.Errorf("Collector.Host = %q, want value from .env", cfg.Collector.Host)
	}
	if cfg.Collector.Attempts != 3 {
		t.Errorf("Collector.Attempts = %d, want 3 from .env", cfg.Collector.Attempts)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want OS env to override .env", cfg.LogLevel)
	}
}

func TestLoadConfigMissingDotenvIsNotFatal(t *testing.T) {
	clearConfigEnv(t)

	deps := defaultDeps()
	deps.dotenv = func() error { return godotenv.Load(filepath.Join(t.TempDir(), "missing.env")) }

	if _, err := loadConfigWithDeps(nil, deps); err != nil {
		t.Fatalf("missing .env must not fail loading: %v", err)
	}
}

func TestConfigErrorError(t *testing.T) {
	withCause := &ConfigError{Type: ErrParsing, Message: "bad", Err: errors.New("cause")}
	if got, want := withCause.Error(), "[PARSING_FAILED] bad: cause"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &ConfigError{Type: ErrValidation, Message: "bad"}
	if got, want := bare.Error(), "[VALIDATION_FAILED] bad"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ConfigError{Type: ErrSSMResolution, Message: "wrap", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

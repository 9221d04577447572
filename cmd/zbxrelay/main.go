// Package main is the zbxrelay command: a Zabbix alert script that forwards a
// single alert to the incident collector.
//
// Zabbix invokes it with three positional arguments:
//
//	zbxrelay [flags] <auth-key> <crash-report-key> <message>
//
// The message is the rendered alert template ("KEY: value" lines). It is
// parsed, normalized into a collector event, echoed as JSON on stdout and
// POSTed to the collector. The exit status is 0 only when the collector
// accepted the event.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/google/uuid"

	"zbxrelay/internal/config"
	"zbxrelay/internal/delivery"
	"zbxrelay/internal/normalize"
	"zbxrelay/internal/reporting"
	"zbxrelay/internal/telemetry"
	"zbxrelay/internal/template"
	"zbxrelay/internal/types"
)

const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

// app holds the process dependencies. Tests replace the hooks.
type app struct {
	stdout io.Writer
	stderr io.Writer

	secrets config.SecretProvider
	clock   types.Clock
	newID   func() string

	// connFactory overrides the TLS connection factory built from config.
	connFactory delivery.ConnFactory

	reporterFor func(crashKey string, cfg *config.Config, logger types.Logger) types.Reporter
	metricsFor  func(ctx context.Context, cfg *config.Config, logger types.Logger) telemetry.Metrics
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:      stdout,
		stderr:      stderr,
		secrets:     config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")),
		clock:       types.RealClock{},
		newID:       uuid.NewString,
		reporterFor: newReporter,
		metricsFor:  newMetrics,
	}
}

func (a *app) usage(fs *flag.FlagSet) {
	fmt.Fprintf(a.stderr, "Usage:\n")
	fmt.Fprintf(a.stderr, "  zbxrelay [flags] <auth-key> <crash-report-key> <message>\n\n")
	fmt.Fprintf(a.stderr, "Flags:\n")
	fs.PrintDefaults()
}

// run executes one relay invocation and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("zbxrelay", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	dryRun := fs.Bool("dry-run", false, "parse and normalize the message and print the event without delivering it")
	logLevelFlag := fs.String("log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	fs.Usage = func() { a.usage(fs) }

	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() < 3 {
		fs.Usage()
		return exitFailure
	}
	authKey, crashKey, message := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	cfg, err := config.LoadConfig(a.secrets)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: loading configuration: %v\n", err)
		return exitFailure
	}

	levelName := cfg.LogLevel
	if *logLevelFlag != "" {
		levelName = *logLevelFlag
	}
	level, err := parseLevel(levelName)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n\n", err)
		fs.Usage()
		return exitFailure
	}

	invocationID := a.newID()
	logger := &slogAdapter{logger: slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: level,
	})).With("invocation_id", invocationID)}

	ctx = types.WithInvocationID(ctx, invocationID)
	ctx = types.WithLogger(ctx, logger)

	logger.Info("zbxrelay starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"dry_run", *dryRun,
	)

	reporter := a.reporterFor(crashKey, cfg, logger)

	fields, err := template.Parse(message)
	if err != nil {
		return a.rejectInput(ctx, reporter, err, message)
	}

	// The template may carry its own key; it never leaves the process.
	if templateKey, ok := fields.Delete(normalize.KeyAPIKey); ok && templateKey != "" {
		authKey = templateKey
	}
	if authKey == "" {
		authKey = cfg.Collector.AuthKey.Unmask()
	}

	event, err := normalize.New(normalize.WithClock(a.clock)).Normalize(fields)
	if err != nil {
		return a.rejectInput(ctx, reporter, err, message)
	}
	batch := types.NewEventBatch(event)

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		appErr := types.NewAppError(types.ErrCodeInternalUnexpected, "writing event", err)
		logger.Error("failed to write event", "error", err.Error())
		reporter.Report(ctx, appErr, map[string]any{"original_message": message})
		return exitFailure
	}

	if *dryRun {
		logger.Info("dry run, not delivering")
		return exitOK
	}
	if authKey == "" {
		logger.Warn("no auth key supplied; the collector will likely reject the request")
	}

	metrics := a.metricsFor(ctx, cfg, logger)
	client := delivery.NewClient(deliveryOptions(cfg), logger,
		delivery.WithConnFactory(a.dialer(cfg)),
		delivery.WithReporter(reporter),
	)

	start := time.Now()
	result := client.Deliver(ctx, types.SecretString(authKey), batch)
	metrics.RecordDelivery(ctx, result.Outcome)
	metrics.RecordLatency(ctx, time.Since(start))

	if !result.OK() {
		fmt.Fprintf(a.stderr, "error: %v\n", result.Err)
		return exitFailure
	}
	return exitOK
}

// rejectInput reports a template or normalization error with the raw message
// attached.
func (a *app) rejectInput(ctx context.Context, reporter types.Reporter, err error, message string) int {
	meta := map[string]any{"original_message": message}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		for k, v := range appErr.Details {
			meta[k] = v
		}
	}

	if logger := types.LoggerFromContext(ctx); logger != nil {
		logger.Error("rejecting alert", "error", err.Error())
	}
	reporter.Report(ctx, err, meta)

	fmt.Fprintf(a.stderr, "error: %v\n", err)
	return exitFailure
}

func (a *app) dialer(cfg *config.Config) delivery.ConnFactory {
	if a.connFactory != nil {
		return a.connFactory
	}
	return delivery.NewTLSConnFactory(&tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.Collector.InsecureSkipVerify,
	})
}

func deliveryOptions(cfg *config.Config) delivery.Options {
	return delivery.Options{
		Host:        cfg.Collector.Host,
		Port:        cfg.Collector.Port,
		Path:        cfg.Collector.Path,
		Timeout:     cfg.Collector.Timeout,
		MaxAttempts: cfg.Collector.Attempts,
		UserAgent:   cfg.Collector.UserAgent,
	}
}

// newReporter picks Bugsnag when a crash-report key was given and falls back
// to the log.
func newReporter(crashKey string, cfg *config.Config, logger types.Logger) types.Reporter {
	if crashKey == "" {
		return reporting.NewLogReporter(logger)
	}
	r, err := reporting.NewBugsnagReporter(reporting.BugsnagOptions{
		APIKey:       crashKey,
		ReleaseStage: cfg.Reporting.ReleaseStage,
		AppVersion:   cfg.Build.Version,
	}, logger)
	if err != nil {
		logger.Warn("crash reporting disabled", "error", err.Error())
		return reporting.NewLogReporter(logger)
	}
	return r
}

// newMetrics returns CloudWatch metrics when enabled, otherwise a no-op.
func newMetrics(ctx context.Context, cfg *config.Config, logger types.Logger) telemetry.Metrics {
	if !cfg.Observability.MetricsEnabled {
		return telemetry.NopMetrics{}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Warn("metrics disabled: loading AWS config failed", "error", err.Error())
		return telemetry.NopMetrics{}
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return telemetry.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, logger)
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
}

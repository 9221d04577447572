package reporting

import (
	"context"
	"errors"
	"fmt"

	"github.com/bugsnag/bugsnag-go/v2"

	"zbxrelay/internal/types"
)

// metaDataTab is the Bugsnag dashboard tab carrying report metadata.
const metaDataTab = "relay"

// BugsnagOptions configures a BugsnagReporter.
type BugsnagOptions struct {
	APIKey       string
	ReleaseStage string
	AppVersion   string

	// NotifyEndpoint and SessionsEndpoint override the Bugsnag API hosts.
	// Both must be set together.
	NotifyEndpoint   string
	SessionsEndpoint string
}

// BugsnagReporter forwards reports to Bugsnag. Notifications are sent
// synchronously; the relay exits right after reporting.
type BugsnagReporter struct {
	notifier *bugsnag.Notifier
	logger   types.Logger
}

// ErrMissingAPIKey is returned when a BugsnagReporter is built without a key.
var ErrMissingAPIKey = errors.New("reporting: bugsnag api key is required")

// NewBugsnagReporter creates a BugsnagReporter.
func NewBugsnagReporter(opts BugsnagOptions, logger types.Logger) (*BugsnagReporter, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := bugsnag.Configuration{
		APIKey:          opts.APIKey,
		ReleaseStage:    opts.ReleaseStage,
		AppVersion:      opts.AppVersion,
		ProjectPackages: []string{"main", "zbxrelay/**"},
		Synchronous:     true,
		Logger:          printfLogger{logger: logger},
	}
	if opts.NotifyEndpoint != "" {
		cfg.Endpoints = bugsnag.Endpoints{
			Notify:   opts.NotifyEndpoint,
			Sessions: opts.SessionsEndpoint,
		}
	}

	return &BugsnagReporter{
		notifier: bugsnag.New(cfg),
		logger:   logger,
	}, nil
}

// Report notifies Bugsnag. Delivery problems are logged, never returned.
func (r *BugsnagReporter) Report(ctx context.Context, err error, metadata map[string]any) {
	if err == nil {
		return
	}

	rawData := []any{ctx, bugsnag.SeverityError, toMetaData(metadata)}
	if code := errorCode(err); code != "" {
		rawData = append(rawData, bugsnag.ErrorClass{Name: string(code)})
	}

	if notifyErr := r.notifier.Notify(err, rawData...); notifyErr != nil {
		r.logger.Warn("failed to send crash report", "error", notifyErr.Error())
	}
}

// toMetaData places the flat report metadata under a single dashboard tab.
func toMetaData(metadata map[string]any) bugsnag.MetaData {
	tab := make(map[string]any, len(metadata))
	for k, v := range metadata {
		tab[k] = v
	}
	return bugsnag.MetaData{metaDataTab: tab}
}

// printfLogger routes Bugsnag's own diagnostics to the structured logger so
// nothing is written to stdout.
type printfLogger struct {
	logger types.Logger
}

func (l printfLogger) Printf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "bugsnag")
}

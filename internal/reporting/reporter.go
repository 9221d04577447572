// Package reporting provides the crash-report sinks behind types.Reporter.
package reporting

import (
	"context"
	"errors"
	"sort"

	"zbxrelay/internal/types"
)

// Compile-time interface checks.
var (
	_ types.Reporter = NopReporter{}
	_ types.Reporter = (*LogReporter)(nil)
	_ types.Reporter = (*BugsnagReporter)(nil)
)

// NopReporter discards every report.
type NopReporter struct{}

// Report does nothing.
func (NopReporter) Report(context.Context, error, map[string]any) {}

// LogReporter writes reports through the structured logger. It is used when no
// crash-report key was supplied so fatal conditions still leave a trace.
type LogReporter struct {
	logger types.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger types.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs err together with its metadata, keys sorted.
func (r *LogReporter) Report(ctx context.Context, err error, metadata map[string]any) {
	logger := r.logger
	if id := types.GetInvocationID(ctx); id != "" {
		logger = logger.With("invocation_id", id)
	}

	args := make([]any, 0, 2*len(metadata)+4)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if code := errorCode(err); code != "" {
		args = append(args, "error_code", string(code))
	}
	for _, k := range sortedKeys(metadata) {
		args = append(args, k, metadata[k])
	}
	logger.Error("error report", args...)
}

// errorCode extracts the AppError code, if any.
func errorCode(err error) types.ErrorCode {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

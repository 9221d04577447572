package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the local system time. Event timestamps are
// resolved with local time semantics, so unlike UTC-only services the zone is
// left untouched.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time { return time.Now() }

// Logger defines the structured logging interface used throughout the relay.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// Reporter is a best-effort side channel for fatal conditions (crash/error
// reporting). Implementations must never fail or panic the caller.
type Reporter interface {
	Report(ctx context.Context, err error, metadata map[string]any)
}

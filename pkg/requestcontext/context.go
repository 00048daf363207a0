// Package requestcontext provides context accessors for invocation-scoped
// values: the run identifier that correlates log lines of one sync run, and
// the invocation clock.
//
// Usage in commands (set values):
//
//	ctx = requestcontext.WithRunID(ctx, uuid.NewString())
//	ctx = requestcontext.WithTime(ctx, time.Now())
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	log.InfoContext(ctx, "...", "run_id", requestcontext.RunID(ctx))
package requestcontext

import (
	"context"
	"time"
)

type (
	runIDKey       struct{}
	invocationTime struct{}
)

// RunID retrieves the run identifier, or "" when none was set.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRunID injects a run identifier into the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// Now retrieves the invocation time from context.
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(invocationTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the invocation time. Commands set it once so every component
// agrees on "today"; tests use it to fix the calendar.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, invocationTime{}, t)
}

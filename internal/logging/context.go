package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldLocator is the standardized structured logging key for package artifact paths.
	FieldLocator = "locator"
	// FieldFailureKind is the standardized structured logging key for submission failure kinds.
	FieldFailureKind = "failure_kind"
)

type contextKey string

const (
	runIDKey   contextKey = "bindery.run_id"
	locatorKey contextKey = "bindery.locator"
)

// WithRunID stores a batch run identifier on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts a batch run identifier, when present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(runIDKey).(string)
	return value, ok && value != ""
}

// WithLocator stores the in-flight package locator on the context.
func WithLocator(ctx context.Context, locator string) context.Context {
	if locator == "" {
		return ctx
	}
	return context.WithValue(ctx, locatorKey, locator)
}

// LocatorFromContext extracts the in-flight package locator, when present.
func LocatorFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(locatorKey).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if runID, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	if locator, ok := LocatorFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLocator, locator))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

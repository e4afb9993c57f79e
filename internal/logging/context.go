package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a record for filtering (run_started, link_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check when something went wrong.
	FieldErrorHint = "error_hint"
	// FieldRunID is the standardized key for the identifier of one assort run.
	FieldRunID = "run_id"
	// FieldSource is the standardized key for the source directory being assorted.
	FieldSource = "source"
	// FieldTarget is the standardized key for the configured target name.
	FieldTarget = "target"
	// FieldBucketDate is the standardized key for the calendar day of a bucket.
	FieldBucketDate = "bucket_date"
)

type contextKey int

const (
	runIDKey contextKey = iota
	sourceKey
	targetKey
)

// WithRunID annotates ctx with the identifier of the current run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithSource annotates ctx with the source directory being processed.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// WithTarget annotates ctx with the target name being written.
func WithTarget(ctx context.Context, target string) context.Context {
	return context.WithValue(ctx, targetKey, target)
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if source, ok := ctx.Value(sourceKey).(string); ok && source != "" {
		fields = append(fields, slog.String(FieldSource, source))
	}
	if target, ok := ctx.Value(targetKey).(string); ok && target != "" {
		fields = append(fields, slog.String(FieldTarget, target))
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

package logging

import (
	"context"
	"log/slog"

	"kura/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDirectory names the unsorted or library directory being processed.
	FieldDirectory = "directory"
	// FieldCode is the canonical id (catalog code) a log line concerns.
	FieldCode = "code"
	// FieldLocator names the candidate locator involved.
	FieldLocator = "locator"
	// FieldPhase is the batch phase (gather, organize, scan, ...).
	FieldPhase = "phase"
	// FieldRunID correlates every line written by one CLI invocation.
	FieldRunID = "run_id"

	FieldEventType      = "event_type"
	FieldErrorHint      = "error_hint"
	FieldImpact         = "impact"
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if dir, ok := services.DirectoryFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDirectory, dir))
	}
	if id, ok := services.RecordIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCode, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
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
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}

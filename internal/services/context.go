package services

import "context"

type contextKey string

const (
	directoryKey contextKey = "directory"
	recordIDKey  contextKey = "record_id"
	runIDKey     contextKey = "run_id"
	phaseKey     contextKey = "phase"
)

// WithDirectory annotates context with the directory currently being processed.
func WithDirectory(ctx context.Context, dir string) context.Context {
	if dir == "" {
		return ctx
	}
	return context.WithValue(ctx, directoryKey, dir)
}

// DirectoryFromContext extracts the directory if present.
func DirectoryFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(directoryKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecordID annotates context with the canonical id of a store record.
func WithRecordID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, recordIDKey, id)
}

// RecordIDFromContext returns the canonical record id if present.
func RecordIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the batch phase name (gather, organize, ...).
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with a correlation identifier for one batch run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

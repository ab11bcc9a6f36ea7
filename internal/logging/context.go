package logging

import (
	"context"
	"log/slog"

	"revoice/internal/services"
)

// Canonical structured-log field names shared across packages.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts request-scoped identifiers placed in ctx by the
// pipeline and returns them as log attributes.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldJobID, jobID))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if correlationID, ok := services.CorrelationIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, correlationID))
	}
	return attrs
}

// WithContext returns logger extended with any identifiers found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}

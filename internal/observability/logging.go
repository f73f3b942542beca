// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key carrying the per-request correlation id.
const CorrelationID LogContextKey = "correlation_id"

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// LogLifecycleEvent logs a recitation status transition with its actor and
// reason. Repeated transitions between terminal statuses are permitted, so
// this log line is the audit trail.
func LogLifecycleEvent(ctx context.Context, recitationID uint, from, to, reason string) {
	GlobalLogger.InfoContext(ctx, "recitation status transition",
		slog.Uint64("recitation_id", uint64(recitationID)),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogModerationVerdict logs the outcome of a moderation cascade run.
func LogModerationVerdict(ctx context.Context, stage string, accepted bool, err error) {
	attrs := []any{
		slog.String("stage", stage),
		slog.Bool("accepted", accepted),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		GlobalLogger.WarnContext(ctx, "moderation verdict", attrs...)
		return
	}
	GlobalLogger.InfoContext(ctx, "moderation verdict", attrs...)
}

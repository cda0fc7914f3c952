// Package log provides context-aware structured logging on top of log/slog.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger returns the process-wide logger.
func Logger() *slog.Logger {
	return slog.Default()
}

// ParseLevel maps a LOG_LEVEL value onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default logger. Release builds log JSON for Cloud
// Logging; everything else gets text.
func Setup(w io.Writer, level string, json bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithContext returns the default logger annotated with the trace ID and
// fields carried by ctx.
func WithContext(ctx context.Context) *slog.Logger {
	logger := Logger()
	if ctx == nil {
		return logger
	}

	fields := GetLogFields(ctx)
	attrs := make([]any, 0, 2*len(fields)+2)
	if traceID := TraceID(ctx); traceID != "" {
		attrs = append(attrs, "trace_id", traceID)
	}
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

func logAt(ctx context.Context, level slog.Level, msg string, args []any) {
	logger := WithContext(ctx)
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.Log(ctx, level, msg, args...) //nolint:contextcheck
}

func Debug(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelDebug, msg, args) }

func Info(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelInfo, msg, args) }

func Warn(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelWarn, msg, args) }

// Error logs at error level. Callers pass the error as the "error" attribute.
func Error(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelError, msg, args) }

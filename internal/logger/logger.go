// Package logger wraps a process-wide slog logger. Call Init once from the
// command entry point; before that the slog default is used.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

var defaultLogger = slog.Default()

// Init installs a text or JSON handler on stdout. Source locations are only
// attached at debug level.
func Init(level, format string) {
	defaultLogger = newLogger(os.Stdout, level, format)
	slog.SetDefault(defaultLogger)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithContext tags the logger with the request id set by chi's RequestID
// middleware, or a plain "request_id" context value outside chi.
func WithContext(ctx context.Context) *slog.Logger {
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID, _ = ctx.Value("request_id").(string)
	}
	return defaultLogger.With(
		"request_id", requestID,
		"trace_id", ctx.Value("trace_id"),
	)
}

// With returns a child logger, e.g. one carrying cycle_id and source for
// everything logged during a poll cycle.
func With(args ...any) *slog.Logger {
	return defaultLogger.With(args...)
}

func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}

package faceindex

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with faceindex-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithVersion adds a descriptor model version field to the logger.
func (l *Logger) WithVersion(version int) *Logger {
	return &Logger{
		Logger: l.Logger.With("version", version),
	}
}

// WithPath adds a file path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogAppend logs an append operation.
func (l *Logger) LogAppend(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "append failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "append completed",
			"count", count,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, maxCount, hits int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"max_count", maxCount,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"max_count", maxCount,
			"hits", hits,
			"duration", duration,
		)
	}
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, count int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"count", count,
			"duration", duration,
		)
	}
}

// LogSave logs an index save.
func (l *Logger) LogSave(ctx context.Context, path string, kind IndexType, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"path", path,
			"type", string(kind),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"path", path,
			"type", string(kind),
			"duration", duration,
		)
	}
}

// LogLoad logs an index load.
func (l *Logger) LogLoad(ctx context.Context, path string, kind IndexType, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"path", path,
			"type", string(kind),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"path", path,
			"type", string(kind),
			"count", count,
		)
	}
}

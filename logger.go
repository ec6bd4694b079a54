package nerdgo

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with consistent field names for service events.
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
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
// Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// WithGeneration adds a generation field to the logger.
func (l *Logger) WithGeneration(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", id),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogPredict logs a prediction.
func (l *Logger) LogPredict(ctx context.Context, k, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "predict completed",
			"k", k,
			"results", results,
		)
	}
}

// LogLoad logs the loading of a (store, catalog) pair.
func (l *Logger) LogLoad(ctx context.Context, source string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "entities loaded",
			"source", source,
			"count", count,
		)
	}
}

// LogMerge logs a published merge.
func (l *Logger) LogMerge(ctx context.Context, generation uint64, added, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"added", added,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "merge published",
			"generation", generation,
			"added", added,
			"total", total,
		)
	}
}

// Package logutil configures the structured logger used by the gyre
// commands and the engine's debug paths.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// LevelTrace logs below slog.LevelDebug, for per-sample rotation detail.
const LevelTrace slog.Level = -8

// NewLogger returns a text logger that trims source files to their
// basenames and names the trace level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Trace emits msg at LevelTrace through the default logger, tagged with the
// caller's source location. It is a no-op unless the handler enables the
// trace level.
func Trace(msg string, args ...any) {
	trace(context.Background(), msg, args)
}

// TraceContext is Trace with a caller-supplied context.
func TraceContext(ctx context.Context, msg string, args ...any) {
	trace(ctx, msg, args)
}

func trace(ctx context.Context, msg string, args []any) {
	if logger := slog.Default(); logger.Enabled(ctx, LevelTrace) {
		// Caller(2) skips this helper and its exported wrapper.
		pc, _, _, _ := runtime.Caller(2)
		record := slog.NewRecord(time.Now(), LevelTrace, msg, pc)
		record.Add(args...)
		logger.Handler().Handle(ctx, record)
	}
}

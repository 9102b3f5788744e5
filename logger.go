package e57go

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with container and session context. Every record
// carries component=e57go.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger on handler. A nil handler logs text at info
// level to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler).With("component", "e57go")}
}

// NewJSONLogger creates a Logger writing JSON records of at least level to w.
// A nil w writes to stderr.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger writing key=value records of at least level
// to w. A nil w writes to stderr.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithDataset adds a dataset index field to the logger.
func (l *Logger) WithDataset(index int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("data3d", index),
	}
}

// WithImage adds an image index field to the logger.
func (l *Logger) WithImage(index int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("image2d", index),
	}
}

// WithSession adds the session direction ("read" or "write") to the logger.
func (l *Logger) WithSession(direction string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session", direction),
	}
}

// LogSessionOpen logs the opening of a point transfer session.
func (l *Logger) LogSessionOpen(ctx context.Context, fields, capacity int, total int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "session open failed",
			"fields", fields,
			"capacity", capacity,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "session opened",
			"fields", fields,
			"capacity", capacity,
			"total", total,
		)
	}
}

// LogSessionClose logs the end of a point transfer session.
func (l *Logger) LogSessionClose(ctx context.Context, records int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "session close failed",
			"records", records,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "session closed",
			"records", records,
		)
	}
}

// LogTransfer logs one chunk transfer.
func (l *Logger) LogTransfer(ctx context.Context, records int, position int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "transfer failed",
			"position", position,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "transfer completed",
			"records", records,
			"position", position,
		)
	}
}

// LogGroups logs a group table read or write.
func (l *Logger) LogGroups(ctx context.Context, first int64, groups int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "group transfer failed",
			"first", first,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "group transfer completed",
			"first", first,
			"groups", groups,
		)
	}
}

// LogImage logs an image byte range transfer.
func (l *Logger) LogImage(ctx context.Context, projection Projection, format ImageFormat, start int64, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "image transfer failed",
			"projection", projection.String(),
			"format", format.String(),
			"start", start,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "image transfer completed",
			"projection", projection.String(),
			"format", format.String(),
			"start", start,
			"bytes", bytes,
		)
	}
}

// LogCommit logs a manifest commit.
func (l *Logger) LogCommit(ctx context.Context, manifest string, data3D, images2D int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"data3d", data3D,
			"images2d", images2D,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"manifest", manifest,
			"data3d", data3D,
			"images2d", images2D,
		)
	}
}

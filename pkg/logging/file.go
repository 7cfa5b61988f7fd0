package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"go.opentelemetry.io/otel/trace"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// FileLogger implements Logger on top of a slog handler
type FileLogger struct {
	slog   *slog.Logger
	closer io.Closer
}

// NewFileLogger creates a logger writing to a size-rotated file
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w, err := newRotatingWriter(config.Path, config.MaxSize, config.MaxBackups)
	if err != nil {
		return nil, err
	}

	return &FileLogger{
		slog:   slog.New(newHandler(w, config.Format, config.Level)),
		closer: w,
	}, nil
}

// NewWriterLogger creates a logger writing to w, which is not closed by Close
func NewWriterLogger(w io.Writer, format Format, level Level) *FileLogger {
	return &FileLogger{slog: slog.New(newHandler(w, format, level))}
}

func newHandler(w io.Writer, format Format, level Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level.slogLevel(),
		ReplaceAttr: renameAttr,
	}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// renameAttr keeps the historical key names of the log format
func renameAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
		a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// Debug logs a debug message
func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelDebug, msg, nil, fields)
}

// Info logs an info message
func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelInfo, msg, nil, fields)
}

// Warn logs a warning message
func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelWarn, msg, nil, fields)
}

// Error logs an error message
func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ctx, slog.LevelError, msg, err, fields)
}

// WithFields returns a logger with additional fields
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{
		slog:   l.slog.With(attrs(fields)...),
		closer: l.closer,
	}
}

// Close flushes and closes the underlying file, if any
func (l *FileLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *FileLogger) log(ctx context.Context, level slog.Level, msg string, err error, fields Fields) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.slog.Enabled(ctx, level) {
		return
	}
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		args = append(args, slog.String("trace_id", sc.TraceID().String()))
	}
	l.slog.Log(ctx, level, msg, args...)
}

// attrs converts fields in key order so text output is stable
func attrs(fields Fields) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}

// Package logging is the structured logger shared by every minima component.
// It wraps log/slog with a small interface that takes the request context,
// an optional error and alternating key/value fields.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var slogLevels = map[LogLevel]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// String returns the string representation of the log level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a --log-level value onto a LogLevel. Empty means info.
func ParseLevel(s string) (LogLevel, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	}
	for level, name := range levelNames {
		if strings.ToLower(name) == s {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", s)
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level LogLevel
	// Format is FormatText or FormatJSON.
	Format    string
	Output    io.Writer
	AddSource bool
	Component string
}

// ThemeLogger implements Logger on top of a slog.Handler. Fields added with
// With keep their order.
type ThemeLogger struct {
	handler   slog.Handler
	level     LogLevel
	component string
	attrs     []slog.Attr
}

// NewLogger creates a logger writing to config.Output, stderr when unset.
// A nil config logs text at info level.
func NewLogger(config *LoggerConfig) *ThemeLogger {
	if config == nil {
		config = &LoggerConfig{Level: LevelInfo, Format: FormatText}
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     slogLevels[config.Level],
		AddSource: config.AddSource,
	}

	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	}

	return &ThemeLogger{
		handler:   handler,
		level:     config.Level,
		component: config.Component,
	}
}

// Nop returns a logger that discards everything.
func Nop() *ThemeLogger {
	return &ThemeLogger{handler: slog.NewTextHandler(io.Discard, nil), level: LevelError + 1}
}

func (l *ThemeLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelDebug, nil, msg, fields)
}

func (l *ThemeLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelInfo, nil, msg, fields)
}

func (l *ThemeLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelWarn, err, msg, fields)
}

func (l *ThemeLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, LevelError, err, msg, fields)
}

// With returns a logger that adds fields to every entry.
func (l *ThemeLogger) With(fields ...interface{}) Logger {
	out := *l
	out.attrs = append(slices.Clip(l.attrs), toAttrs(fields)...)
	return &out
}

// WithComponent returns a logger tagging entries with component.
func (l *ThemeLogger) WithComponent(component string) Logger {
	out := *l
	out.component = component
	return &out
}

func (l *ThemeLogger) log(ctx context.Context, level LogLevel, err error, msg string, fields []interface{}) {
	if level < l.level || !l.handler.Enabled(ctx, slogLevels[level]) {
		return
	}

	record := slog.NewRecord(time.Now(), slogLevels[level], msg, 0)
	if l.component != "" {
		record.AddAttrs(slog.String("component", l.component))
	}
	if err != nil {
		record.AddAttrs(slog.String("error", err.Error()))
	}
	if id := RequestID(ctx); id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}
	record.AddAttrs(l.attrs...)
	record.AddAttrs(toAttrs(fields)...)

	_ = l.handler.Handle(ctx, record)
}

// toAttrs pairs alternating keys and values; non-string keys and a trailing
// key without value are dropped.
func toAttrs(fields []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}
	return attrs
}

type requestIDKey struct{}

// WithRequestID returns a context whose log entries carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// PerfLogger tracks how long an operation took.
type PerfLogger struct {
	Logger
	startTime time.Time
}

// StartOperation begins timing operation.
func StartOperation(logger Logger, operation string) *PerfLogger {
	return &PerfLogger{
		Logger:    logger.With("operation", operation),
		startTime: time.Now(),
	}
}

// End logs the duration at debug level and returns it.
func (p *PerfLogger) End(ctx context.Context) time.Duration {
	d := time.Since(p.startTime)
	p.Debug(ctx, "Operation completed", "duration_ms", d.Milliseconds(), "duration", d.String())
	return d
}

// EndWithError logs the failure with its duration and returns the duration.
func (p *PerfLogger) EndWithError(ctx context.Context, err error) time.Duration {
	d := time.Since(p.startTime)
	p.Error(ctx, err, "Operation failed", "duration_ms", d.Milliseconds(), "duration", d.String())
	return d
}

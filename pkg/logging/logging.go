package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel converts a configuration string into a LogLevel.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects the slog handler used for output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger is the logging capability handed to every component.
//
// Messages are printf-style and tagged with the subsystem that emitted them.
type Logger interface {
	Debug(subsystem string, messageFmt string, args ...interface{})
	Info(subsystem string, messageFmt string, args ...interface{})
	Warn(subsystem string, messageFmt string, args ...interface{})
	Error(subsystem string, err error, messageFmt string, args ...interface{})

	// With returns a Logger that attaches the given key/value pair to every entry.
	With(key string, value any) Logger
}

// slogLogger implements Logger on top of a slog.Logger.
type slogLogger struct {
	logger *slog.Logger
}

// New creates a Logger writing text-formatted entries at or above level to output.
func New(level LogLevel, output io.Writer) Logger {
	return NewWithFormat(level, output, FormatText)
}

// NewWithFormat creates a Logger with an explicit output format.
func NewWithFormat(level LogLevel, output io.Writer, format Format) Logger {
	opts := &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &slogLogger{logger: slog.New(handler)}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// BridgeControllerRuntime routes controller-runtime and client-go logging through
// the handler of the given Logger. Loggers not created by this package are ignored.
func BridgeControllerRuntime(l Logger) {
	sl, ok := l.(*slogLogger)
	if !ok || sl.logger == nil {
		return
	}
	ctrl.SetLogger(logr.FromSlogHandler(sl.logger.Handler()))
}

func (l *slogLogger) log(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.logger.LogAttrs(ctx, level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func (l *slogLogger) Debug(subsystem string, messageFmt string, args ...interface{}) {
	l.log(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func (l *slogLogger) Info(subsystem string, messageFmt string, args ...interface{}) {
	l.log(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func (l *slogLogger) Warn(subsystem string, messageFmt string, args ...interface{}) {
	l.log(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func (l *slogLogger) Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	l.log(LevelError, subsystem, err, messageFmt, args...)
}

func (l *slogLogger) With(key string, value any) Logger {
	return &slogLogger{logger: l.logger.With(key, value)}
}

// Package logger provides the structured logging adapter shared by every
// FeatherBox component. It wraps zerolog behind a small interface so the
// core never depends on a concrete logging library directly.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the structured logging contract consumed by C1-C6. Every method
// takes a context so a correlation ID attached with WithCorrelationID is
// automatically included in the emitted record.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation identifier to ctx. Every log line
// produced through a context derived from the result carries the id under
// the "correlation_id" field.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation identifier stored in ctx, or "" if
// none was attached.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// Options configures a zerolog-backed Logger.
type Options struct {
	Writer        io.Writer
	Level         string
	HumanReadable bool
	Component     string
}

type zlogger struct {
	log zerolog.Logger
}

// New builds a Logger from the supplied options. An empty Level defaults to
// "info"; an unparsable level falls back to info rather than failing, since
// logging configuration should never block startup.
func New(opts Options) Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	if opts.HumanReadable {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	base := zerolog.New(writer).Level(level).With().Timestamp()
	if opts.Component != "" {
		base = base.Str("component", opts.Component)
	}

	return &zlogger{log: base.Logger()}
}

func (l *zlogger) event(ctx context.Context, level zerolog.Level, msg string, fields []interface{}) {
	ev := l.log.WithLevel(level)
	if id := CorrelationID(ctx); id != "" {
		ev = ev.Str("correlation_id", id)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, fields[i+1])
	}
	ev.Msg(msg)
}

func (l *zlogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.event(ctx, zerolog.DebugLevel, msg, fields)
}

func (l *zlogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.event(ctx, zerolog.InfoLevel, msg, fields)
}

func (l *zlogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.event(ctx, zerolog.WarnLevel, msg, fields)
}

func (l *zlogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.event(ctx, zerolog.ErrorLevel, msg, fields)
}

func (l *zlogger) With(fields ...interface{}) Logger {
	ctx := l.log.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zlogger{log: ctx.Logger()}
}

// NoOp returns a Logger that discards everything, useful as a safe default
// in tests and in components that were not handed a real logger.
func NoOp() Logger { return noOpLogger{} }

type noOpLogger struct{}

func (noOpLogger) Debug(context.Context, string, ...interface{}) {}
func (noOpLogger) Info(context.Context, string, ...interface{})  {}
func (noOpLogger) Warn(context.Context, string, ...interface{})  {}
func (noOpLogger) Error(context.Context, string, ...interface{}) {}
func (n noOpLogger) With(...interface{}) Logger                  { return n }

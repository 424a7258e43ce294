// Package logger wraps zerolog with context-carried fields so request and
// actor metadata follow a call down through services and repositories.
package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatGCP writes JSON with a Cloud Logging "severity" field.
	FormatGCP = "gcp"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	Format      string
	WarnStack   bool
	Output      io.Writer
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

// Actor identifies who a request runs as.
type Actor struct {
	UserID string
	OrgID  string
	Role   string
}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	ctx := zerolog.New(out).With()
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case FormatConsole:
		ctx = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}).With()
	case FormatGCP:
		ctx = zerolog.New(out).Hook(severityHook{}).With()
	}

	return &Logger{
		base:      ctx.Timestamp().Str("service", opts.ServiceName).Logger().Level(opts.Level),
		warnStack: opts.WarnStack,
	}
}

// severityHook adds the field Cloud Logging reads to classify entries.
type severityHook struct{}

func (severityHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	severity := "DEFAULT"
	switch level {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		severity = "DEBUG"
	case zerolog.InfoLevel:
		severity = "INFO"
	case zerolog.WarnLevel:
		severity = "WARNING"
	case zerolog.ErrorLevel:
		severity = "ERROR"
	case zerolog.FatalLevel, zerolog.PanicLevel:
		severity = "CRITICAL"
	}
	e.Str("severity", severity)
}

func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return entry
		}
	}
	return &l.base
}

func (l *Logger) with(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	entry := build(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("request_id", requestID) })
}

// WithActor tags every following entry with the tenant and user.
func (l *Logger) WithActor(ctx context.Context, a Actor) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("user_id", a.UserID).Str("org_id", a.OrgID).Str("actor_role", a.Role)
	})
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

// Error logs err with a stack. Domain errors also log their code so alerts
// can group on it.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.from(ctx).Error()
	if err != nil {
		event = event.Err(err)
		var typed *pkgerrors.Error
		if errors.As(err, &typed) {
			event = event.Str("error_code", string(typed.Code()))
		}
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}

package telemetry

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry.
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL trace correlation.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a structured logger for the named service.
func NewLogger(service string) *Logger {
	return NewLoggerTo(service, os.Stdout)
}

// NewLoggerTo creates a logger writing to the given sink. Tests pass a
// buffer; the CLI passes a console writer.
func NewLoggerTo(service string, w io.Writer) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(w).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context for trace propagation.
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for lifecycle operations.

func (l *Logger) LogPollTick(ctx context.Context, resourceID, rawStatus string, elapsed time.Duration) {
	l.WithContext(ctx).Debug().
		Str("resource_id", resourceID).
		Str("raw_status", rawStatus).
		Dur("elapsed", elapsed).
		Str("operation", "poll").
		Msg("resource not terminal yet")
}

func (l *Logger) LogPollOutcome(ctx context.Context, resourceID, rawStatus string, timedOut bool, polls int, elapsed time.Duration) {
	event := l.WithContext(ctx).Info()
	if timedOut {
		event = l.WithContext(ctx).Warn()
	}
	event.
		Str("resource_id", resourceID).
		Str("raw_status", rawStatus).
		Bool("timed_out", timedOut).
		Int("polls", polls).
		Dur("elapsed", elapsed).
		Str("operation", "poll").
		Msg("poll finished")
}

func (l *Logger) LogCleanupDecision(ctx context.Context, resourceID string, eligible bool, reason string) {
	l.WithContext(ctx).Debug().
		Str("resource_id", resourceID).
		Bool("eligible", eligible).
		Str("reason", reason).
		Str("operation", "cleanup").
		Msg("retention decision")
}

func (l *Logger) LogDeleteFailed(ctx context.Context, resourceID string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("resource_id", resourceID).
		Str("operation", "cleanup").
		Msg("delete failed")
}

func (l *Logger) LogCleanupResult(ctx context.Context, resourceType string, listed, deleted, failed int, dryRun bool) {
	l.WithContext(ctx).Info().
		Str("resource_type", resourceType).
		Int("listed", listed).
		Int("deleted", deleted).
		Int("failed", failed).
		Bool("dry_run", dryRun).
		Str("operation", "cleanup").
		Msg("cleanup pass completed")
}

func (l *Logger) LogReleaseCreated(ctx context.Context, releaseType, version, artifact string) {
	l.WithContext(ctx).Info().
		Str("release_type", releaseType).
		Str("version", version).
		Str("artifact", artifact).
		Str("operation", "release").
		Msg("release created")
}

func (l *Logger) LogReplicationFailed(ctx context.Context, key string, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("key", key).
		Str("operation", "release").
		Msg("metadata replication failed, local release stands")
}

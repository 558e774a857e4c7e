// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide root logger. Init must be called once from the
// composition root before anything logs.
var Logger zerolog.Logger

func init() {
	// Sensible default so packages can log before Init runs (e.g. in tests).
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures the global logger for the given service.
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	Logger = zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx returns a logger bound to the current trace, so log lines can be
// correlated with spans in Jaeger.
func Ctx(ctx context.Context) *zerolog.Logger {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return &Logger
	}
	l := Logger.With().
		Str("trace_id", span.TraceID().String()).
		Str("span_id", span.SpanID().String()).
		Logger()
	return &l
}

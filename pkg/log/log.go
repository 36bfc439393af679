// Package log builds the process logger and carries request-scoped logging
// values through contexts. Components receive a zerolog.Logger and add their
// own "component" field.
package log

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/itemstack/backend/pkg/tracing"
)

// New creates the process logger writing to w.
// Level should be one of: debug, info, warn, error.
// Format should be one of: json, console.
func New(level, format, service string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = false

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// ParseLevel converts a string level to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type contextKey int

const (
	requestIDKey contextKey = iota
	correlationIDKey
)

func withIDs(ctx context.Context, requestID, correlationID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func idFrom(ctx context.Context, key contextKey) string {
	id, _ := ctx.Value(key).(string)
	return id
}

// WithContext returns logger enriched with the request and correlation IDs
// set by HTTPMiddleware and the active trace ID, when present.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lctx := logger.With()
	if id := idFrom(ctx, requestIDKey); id != "" {
		lctx = lctx.Str("request_id", id)
	}
	if id := idFrom(ctx, correlationIDKey); id != "" {
		lctx = lctx.Str("correlation_id", id)
	}
	if id := tracing.TraceID(ctx); id != "" {
		lctx = lctx.Str("trace_id", id)
	}
	return lctx.Logger()
}

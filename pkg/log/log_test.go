package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", "backend", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "backend", entry["service"])
	assert.Contains(t, entry, "time")
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := withIDs(context.Background(), "req-1", "corr-1")

	logger := WithContext(ctx, zerolog.New(&buf))
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestWithContext_TraceID(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var buf bytes.Buffer
	logger := WithContext(ctx, zerolog.New(&buf))
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"trace_id":"`+sc.TraceID().String()+`"`)
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	var seenRequestID string

	handler := HTTPMiddleware(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID = idFrom(r.Context(), requestIDKey)
		inner := WithContext(r.Context(), zerolog.New(&buf))
		inner.Info().Msg("inside handler")
		w.WriteHeader(http.StatusNotFound)
	}))

	t.Run("generates IDs", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items/7", nil))

		requestID := rec.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, requestID)
		assert.Equal(t, requestID, rec.Header().Get(CorrelationIDHeader))
		assert.Equal(t, requestID, seenRequestID)
		assert.Contains(t, buf.String(), "inside handler")
		assert.Contains(t, buf.String(), `"request_id":"`+requestID+`"`)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), `"status":404`)
	})

	t.Run("propagates incoming IDs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc")
		req.Header.Set(CorrelationIDHeader, "xyz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "xyz", rec.Header().Get(CorrelationIDHeader))
	})
}

package tracing

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MiddlewareConfig customizes the server tracing middleware.
type MiddlewareConfig struct {
	// Skipper excludes requests from tracing.
	Skipper func(r *http.Request) bool
	// SpanNameFormatter replaces the default "METHOD /path" span name.
	SpanNameFormatter func(r *http.Request) string
}

// httpTracer is resolved per call so spans follow the provider installed by
// InitTracer or by tests.
func httpTracer() trace.Tracer {
	return otel.Tracer(instrumentationName + "/http")
}

func defaultSpanName(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// requestAttributes are shared by server and client spans. The query string
// is never recorded.
func requestAttributes(r *http.Request, scheme string) []attribute.KeyValue {
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return []attribute.KeyValue{
		attribute.String("http.method", r.Method),
		attribute.String("http.target", r.URL.Path),
		attribute.String("http.host", host),
		attribute.String("http.scheme", scheme),
	}
}

// finish records the response on span; 4xx and 5xx mark it failed.
func finish(span trace.Span, status int, size int64, elapsed time.Duration) {
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int64("http.response_content_length", size),
		attribute.Float64("http.duration_ms", float64(elapsed.Milliseconds())),
	)
	if status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
		return
	}
	span.SetStatus(codes.Ok, "")
}

// MiddlewareWithConfig returns a server tracing middleware that continues
// any trace propagated in the request headers.
func MiddlewareWithConfig(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	name := defaultSpanName
	if cfg.SpanNameFormatter != nil {
		name = cfg.SpanNameFormatter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skipper != nil && cfg.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			attrs := append(requestAttributes(r, getScheme(r)),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("http.client_ip", getClientIP(r)),
			)
			ctx, span := httpTracer().Start(ctx, name(r),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))
			finish(span, rec.status, rec.size, time.Since(start))
		})
	}
}

// RoundTripper returns a client transport that opens a span per request and
// propagates it downstream. A nil next uses http.DefaultTransport.
func RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &tracingRoundTripper{next: next}
}

type tracingRoundTripper struct {
	next http.RoundTripper
}

// CloseIdleConnections forwards to the wrapped transport when supported.
func (t *tracingRoundTripper) CloseIdleConnections() {
	if c, ok := t.next.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

func (t *tracingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx, span := httpTracer().Start(r.Context(), defaultSpanName(r),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(requestAttributes(r, r.URL.Scheme)...),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request.
	out := r.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	start := time.Now()
	resp, err := t.next.RoundTrip(out)
	if err != nil {
		RecordError(ctx, err)
		return nil, err
	}
	finish(span, resp.StatusCode, resp.ContentLength, time.Since(start))
	return resp, nil
}

// recorder captures the status and body size written by a handler.
type recorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *recorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (rw *recorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func getScheme(r *http.Request) string {
	switch {
	case r.TLS != nil:
		return "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		return r.Header.Get("X-Forwarded-Proto")
	default:
		return "http"
	}
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the peer address without its port.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

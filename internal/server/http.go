package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/itemstack/backend/internal/database"
	"github.com/itemstack/backend/pkg/health"
	"github.com/itemstack/backend/pkg/log"
	"github.com/itemstack/backend/pkg/metrics"
	"github.com/itemstack/backend/pkg/tracing"
)

// HTTPConfig holds configuration for the HTTP server.
type HTTPConfig struct {
	// Port is the port to listen on.
	Port int
	// EnableCORS enables CORS support.
	EnableCORS bool
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration
	// EnableTracing enables OpenTelemetry tracing for HTTP requests.
	EnableTracing bool
	// Metrics records HTTP request metrics when set.
	Metrics *metrics.BackendMetrics
}

// DefaultHTTPConfig returns sensible defaults for HTTP server configuration.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Port:           8080,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
	}
}

// HTTPServer serves the items API and the liveness/readiness endpoints.
type HTTPServer struct {
	config  HTTPConfig
	server  *http.Server
	items   *ItemHandler
	health  *HealthHandler
	handler http.Handler
	logger  zerolog.Logger
}

// NewHTTPServer creates a new HTTP server. checker may be nil, in which case
// readiness always passes.
func NewHTTPServer(cfg HTTPConfig, repo database.ItemRepository, checker *health.Checker, logger zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		config: cfg,
		items:  NewItemHandler(repo, logger),
		health: NewHealthHandler(checker),
		logger: logger.With().Str("component", "http_server").Logger(),
	}
	s.handler = s.buildHandler()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start serves the API until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.logger.Info().Bool("cors_enabled", s.config.EnableCORS).Msg("starting HTTP server")
	return listenAndServe(ctx, s.server, s.logger)
}

// Stop gracefully stops the HTTP server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return shutdown(ctx, s.server, s.logger)
}

// buildHandler builds the HTTP handler with all middleware.
func (s *HTTPServer) buildHandler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterRoutes(mux)
	s.items.RegisterRoutes(mux)

	var handler http.Handler = mux

	// Request IDs and request logging
	handler = log.HTTPMiddleware(s.logger)(handler)

	if s.config.Metrics != nil {
		handler = MetricsMiddleware(s.config.Metrics)(handler)
	}

	if s.config.EnableTracing {
		handler = tracing.MiddlewareWithConfig(tracing.MiddlewareConfig{
			Skipper: isHealthCheck,
			SpanNameFormatter: func(r *http.Request) string {
				return r.Method + " " + normalizePath(r.URL.Path)
			},
		})(handler)
	}

	if s.config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}

	handler = s.recoveryMiddleware(handler)

	return handler
}

func isHealthCheck(r *http.Request) bool {
	return r.URL.Path == "/health" || r.URL.Path == "/ready"
}

// corsMiddleware adds CORS headers to responses.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := ""
		for _, o := range s.config.AllowedOrigins {
			if o == "*" {
				allowOrigin = "*"
				break
			}
			if o == origin && origin != "" {
				allowOrigin = origin
				break
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			if allowOrigin != "*" {
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID, X-Correlation-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Total-Count")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Preflight requests stop here
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics.
func (s *HTTPServer) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				s.logger.Error().
					Str("panic_type", fmt.Sprintf("%T", p)).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("recovered from panic")

				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

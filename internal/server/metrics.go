package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/itemstack/backend/pkg/metrics"
)

// MetricsServerConfig holds configuration for the metrics listener.
type MetricsServerConfig struct {
	Port         int
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns the defaults used by serve.
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Port:         9091,
		Path:         "/metrics",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer exposes the Prometheus registry on its own port so scrapes
// bypass the API middleware.
type MetricsServer struct {
	server *http.Server
	logger zerolog.Logger
}

// NewMetricsServer creates the metrics listener. It also answers GET /health
// for the scraper's own liveness check.
func NewMetricsServer(cfg MetricsServerConfig, m *metrics.Metrics, logger zerolog.Logger) *MetricsServer {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger.With().Str("component", "metrics_server").Str("path", path).Logger(),
	}
}

// Handler returns the metrics mux.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves metrics until ctx is cancelled.
func (s *MetricsServer) Start(ctx context.Context) error {
	return listenAndServe(ctx, s.server, s.logger)
}

// Stop gracefully shuts down the metrics listener.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return shutdown(ctx, s.server, s.logger)
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records one api_requests observation per request,
// labelled by method, normalized path and status.
func MetricsMiddleware(m *metrics.BackendMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RecordAPIRequest(r.Method, normalizePath(r.URL.Path), strconv.Itoa(rec.status), time.Since(start).Seconds())
		})
	}
}

// PoolCounter reports connection pool occupancy.
type PoolCounter interface {
	PoolCounts() (total, idle, max int32)
}

// CollectPoolStats samples pool occupancy into m every interval until ctx is
// cancelled.
func CollectPoolStats(ctx context.Context, pool PoolCounter, m *metrics.BackendMetrics, interval time.Duration) {
	if pool == nil || m == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	sample := func() {
		total, idle, _ := pool.PoolCounts()
		m.SetDBConnections(float64(total-idle), float64(idle))
	}
	sample()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample()
		}
	}
}

// normalizePath collapses numeric and UUID path segments to ":id" so the
// path label stays low-cardinality.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
			segments[i] = ":id"
		} else if len(seg) == 36 && uuid.Validate(seg) == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itemstack/backend/internal/database"
	"github.com/itemstack/backend/internal/server"
	"github.com/itemstack/backend/migrations"
	"github.com/itemstack/backend/pkg/health"
	"github.com/itemstack/backend/pkg/metrics"
	"github.com/itemstack/backend/pkg/tracing"
)

// serveCmd runs the HTTP API and the metrics server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the items API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_time", BuildTime).
		Str("go_version", runtime.Version()).
		Msg("starting backend")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	appMetrics := metrics.NewMetrics()

	// Initialize tracing
	var tracer *tracing.Tracer
	if cfg.Observability.TracingEnabled && cfg.Observability.TracingEndpoint != "" {
		var err error
		tracer, err = tracing.InitTracer(tracing.Config{
			ServiceName:    "backend",
			ServiceVersion: Version,
			Endpoint:       cfg.Observability.TracingEndpoint,
			Insecure:       cfg.Observability.TracingInsecure,
			SampleRate:     cfg.Observability.TracingSampleRate,
			Environment:    cfg.Observability.Environment,
			Enabled:        true,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize tracing - continuing without tracing")
		} else {
			logger.Info().
				Str("endpoint", cfg.Observability.TracingEndpoint).
				Float64("sample_rate", cfg.Observability.TracingSampleRate).
				Msg("tracing initialized")
		}
	} else {
		logger.Info().Msg("tracing disabled")
	}

	db, _, err := connectDatabase(ctx, cfg, logger, appMetrics.Backend)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigratorFromFS(db, migrations.FS, database.WithMigrationLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to load migrations: %w", err)
		}
		applied, err := migrator.Up(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to apply migrations")
			return err
		}
		logger.Info().Int("applied", applied).Msg("migrations complete")
	}

	repo := database.NewInstrumentedItemRepo(
		database.NewItemRepo(db),
		appMetrics.Backend,
		database.WithQueryTimeout(cfg.Database.QueryTimeout),
	)
	checker := health.NewChecker(2*time.Second, health.NewDatabaseCheck(db))

	httpCfg := server.DefaultHTTPConfig()
	httpCfg.Port = cfg.Server.HTTPPort
	httpCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	httpCfg.EnableTracing = tracer != nil
	httpCfg.Metrics = appMetrics.Backend
	httpServer := server.NewHTTPServer(httpCfg, repo, checker, logger)

	metricsCfg := server.DefaultMetricsServerConfig()
	metricsCfg.Port = cfg.Server.MetricsPort
	metricsServer := server.NewMetricsServer(metricsCfg, appMetrics, logger)

	go server.CollectPoolStats(ctx, db, appMetrics.Backend, 15*time.Second)

	// Channel to collect errors from servers
	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	logger.Info().
		Int("http_port", cfg.Server.HTTPPort).
		Int("metrics_port", cfg.Server.MetricsPort).
		Msg("backend started")

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-parent.Done():
		logger.Info().Msg("context cancelled")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server error")
	}

	logger.Info().Msg("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErrs []error

	// Flush pending spans first
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown error")
			shutdownErrs = append(shutdownErrs, err)
		}
	}

	if err := metricsServer.Stop(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, err)
	}

	if err := httpServer.Stop(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, err)
	}

	if err := errors.Join(append(shutdownErrs, runErr)...); err != nil {
		logger.Error().Err(err).Msg("shutdown completed with errors")
		return err
	}

	logger.Info().Msg("shutdown completed successfully")
	return nil
}

package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/itemstack/backend/internal/config"
	"github.com/itemstack/backend/internal/credentials"
	"github.com/itemstack/backend/internal/database"
	"github.com/itemstack/backend/internal/secrets"
	"github.com/itemstack/backend/pkg/metrics"
)

// selectCredentials wires the optional secret store and runs the selector
// once. A store that cannot be built is logged and treated as absent. The
// returned release func closes the store when it holds resources.
func selectCredentials(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.BackendMetrics) (credentials.Selection, func()) {
	release := func() {}

	var resolver *secrets.Resolver
	if cfg.SecretsEnabled() {
		store, err := secrets.NewStore(ctx, cfg.StoreConfig())
		switch {
		case err != nil:
			logger.Error().
				Err(err).
				Str("provider", string(cfg.Secrets.Provider)).
				Msg("failed to create secret store - falling back to environment configuration")
		case store != nil:
			if c, ok := store.(io.Closer); ok {
				release = func() { _ = c.Close() }
			}
			var opts []secrets.ResolverOption
			if m != nil {
				opts = append(opts, secrets.WithRecorder(m))
			}
			resolver = secrets.NewResolver(store, logger, opts...)
		}
	}

	selector := credentials.NewSelector(resolver, cfg.Secrets.Name, logger)
	if m != nil {
		selector = selector.WithRecorder(m)
	}

	if cfg.Secrets.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Secrets.Timeout)
		defer cancel()
	}
	return selector.SelectDatabaseConfiguration(ctx), release
}

// databaseConfig layers the selected credentials over the environment
// database settings and maps the result onto the pool configuration.
func databaseConfig(cfg *config.Config, creds secrets.Credentials) database.Config {
	layered := cfg.Database.WithCredentials(creds)

	dc := database.DefaultConfig(layered.ConnString())
	dc.MaxConns = int32(layered.MaxOpenConns)
	dc.MinConns = int32(layered.MaxIdleConns)
	dc.MaxConnLifetime = layered.ConnMaxLifetime
	dc.MaxConnIdleTime = layered.ConnMaxIdleTime
	dc.HealthCheckPeriod = time.Minute

	// A URL carries its own host and credentials; discrete values override them.
	if layered.URL != "" {
		dc.Host = layered.Host
		dc.User = layered.Username
		dc.Password = layered.Password
		dc.Database = layered.Name
	}
	return dc
}

// connectDatabase resolves credentials and opens the connection pool.
func connectDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.BackendMetrics) (*database.DB, credentials.Selection, error) {
	selection, release := selectCredentials(ctx, cfg, logger, m)
	defer release()

	logger.Info().
		Str("source", string(selection.Source)).
		Interface("target", cfg.Database.WithCredentials(selection.Credentials).Redacted(selection.Credentials)).
		Msg("connecting to database")

	db, err := database.New(ctx, databaseConfig(cfg, selection.Credentials))
	if err != nil {
		return nil, selection, err
	}
	return db, selection, nil
}

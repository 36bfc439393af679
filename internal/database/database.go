// Package database provides PostgreSQL connectivity, migrations and the item
// repository for the backend.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config describes the connection pool. Zero limits keep the pgxpool
// defaults.
type Config struct {
	// URL is a postgres:// connection string.
	URL string

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// Host, User, Password and Database replace the matching URL components
	// when non-empty. Secret-store credentials arrive through these fields.
	Host     string
	User     string
	Password string
	Database string
}

// DefaultConfig returns the pool limits used by serve for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		MaxConns:          25,
		MinConns:          5,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

// DB owns the connection pool shared by the repository, health checks and
// the migrator.
type DB struct {
	pool *pgxpool.Pool
}

// New opens the pool described by cfg and pings it once.
func New(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// poolConfig parses cfg.URL and layers the limits and overrides on top.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	setPositive(&pc.MaxConns, cfg.MaxConns)
	setPositive(&pc.MinConns, cfg.MinConns)
	setPositive(&pc.MaxConnLifetime, cfg.MaxConnLifetime)
	setPositive(&pc.MaxConnIdleTime, cfg.MaxConnIdleTime)
	setPositive(&pc.HealthCheckPeriod, cfg.HealthCheckPeriod)
	applyOverrides(pc.ConnConfig, cfg)
	return pc, nil
}

func setPositive[T ~int32 | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

// applyOverrides replaces parsed connection components with explicit values.
func applyOverrides(cc *pgx.ConnConfig, cfg Config) {
	if cfg.Host != "" {
		cc.Host = cfg.Host
		// Fallbacks carry hosts parsed from the URL.
		cc.Fallbacks = nil
	}
	if cfg.User != "" {
		cc.User = cfg.User
	}
	if cfg.Password != "" {
		cc.Password = cfg.Password
	}
	if cfg.Database != "" {
		cc.Database = cfg.Database
	}
}

// Close closes the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Health pings the database.
func (db *DB) Health(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// PoolCounts returns total, idle and maximum connection counts.
func (db *DB) PoolCounts() (total, idle, max int32) {
	stat := db.pool.Stat()
	return stat.TotalConns(), stat.IdleConns(), stat.MaxConns()
}

// WithTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

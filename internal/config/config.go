// Package config provides configuration management for the items backend.
// Configuration is loaded from environment variables with the BACKEND_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itemstack/backend/internal/secrets"
)

// Config holds all configuration settings for the backend.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Secrets       SecretsConfig
	Log           LogConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP and metrics server settings.
type ServerConfig struct {
	// HTTPPort is the port for the REST API and health endpoints (default: 8080)
	HTTPPort int
	// MetricsPort is the port for Prometheus metrics (default: 9091)
	MetricsPort int
	// ShutdownTimeout is the graceful shutdown timeout (default: 30s)
	ShutdownTimeout time.Duration
	// AllowedOrigins is the comma-separated CORS origin list (default: *)
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings derived from the environment.
type DatabaseConfig struct {
	// URL is a full PostgreSQL connection string (optional)
	URL string
	// Host overrides the URL host when set
	Host string
	// Port is used when building a connection string without URL (default: 5432)
	Port int
	// Username overrides the URL user when set
	Username string
	// Password overrides the URL password when set
	Password string
	// Name overrides the URL database when set
	Name string
	// SSLMode is used when building a connection string without URL (default: disable)
	SSLMode string
	// MaxOpenConns is the maximum number of open connections (default: 25)
	MaxOpenConns int
	// MaxIdleConns is the minimum number of idle connections kept open (default: 5)
	MaxIdleConns int
	// ConnMaxLifetime is the maximum connection lifetime (default: 5m)
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle time for connections (default: 1m)
	ConnMaxIdleTime time.Duration
	// QueryTimeout is the default query timeout (default: 30s)
	QueryTimeout time.Duration
	// AutoMigrate applies pending migrations on startup (default: true)
	AutoMigrate bool
}

// SecretsConfig holds secret store settings.
type SecretsConfig struct {
	// Provider selects the store: aws-secretsmanager, aws-ssm, vault; empty disables it
	Provider secrets.Provider
	// Name is the secret identifier (default: backend-db-credentials)
	Name string
	// AWSRegion overrides the region from the AWS default chain
	AWSRegion string
	// AWSEndpoint overrides the AWS service endpoint
	AWSEndpoint string
	// VaultAddress is the Vault server address
	VaultAddress string
	// VaultToken is the Vault token
	VaultToken string
	// VaultNamespace is the Vault enterprise namespace
	VaultNamespace string
	// VaultMount is the KV v2 mount (default: secret)
	VaultMount string
	// Timeout bounds a single Vault request (default: 10s)
	Timeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error) (default: info)
	Level string
	// Format is the log format (json, console) (default: json)
	Format string
}

// ObservabilityConfig holds tracing settings.
type ObservabilityConfig struct {
	// TracingEnabled enables OpenTelemetry tracing (default: false)
	TracingEnabled bool
	// TracingEndpoint is the OTLP collector endpoint (e.g., "localhost:4318")
	TracingEndpoint string
	// TracingInsecure disables TLS for the tracing connection (default: true)
	TracingInsecure bool
	// TracingSampleRate is the sampling rate (0.0 to 1.0) (default: 1.0)
	TracingSampleRate float64
	// Environment is the deployment environment (default: development)
	Environment string
}

// Load reads configuration from environment variables.
// Environment variables use the BACKEND_ prefix.
func Load() (*Config, error) {
	var errs []error

	provider, err := secrets.ParseProvider(getEnv("BACKEND_SECRETS_PROVIDER", ""))
	if err != nil {
		errs = append(errs, fmt.Errorf("BACKEND_SECRETS_PROVIDER: %w", err))
	}

	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnvInt("BACKEND_HTTP_PORT", 8080),
			MetricsPort:     getEnvInt("BACKEND_METRICS_PORT", 9091),
			ShutdownTimeout: getEnvDuration("BACKEND_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvList("BACKEND_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("BACKEND_DATABASE_URL", ""),
			Host:            getEnv("BACKEND_DATABASE_HOST", ""),
			Port:            getEnvInt("BACKEND_DATABASE_PORT", 5432),
			Username:        getEnv("BACKEND_DATABASE_USERNAME", ""),
			Password:        getEnv("BACKEND_DATABASE_PASSWORD", ""),
			Name:            getEnv("BACKEND_DATABASE_NAME", ""),
			SSLMode:         getEnv("BACKEND_DATABASE_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("BACKEND_DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("BACKEND_DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("BACKEND_DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("BACKEND_DATABASE_CONN_MAX_IDLE_TIME", 1*time.Minute),
			QueryTimeout:    getEnvDuration("BACKEND_DATABASE_QUERY_TIMEOUT", 30*time.Second),
			AutoMigrate:     getEnvBool("BACKEND_DATABASE_AUTO_MIGRATE", true),
		},
		Secrets: SecretsConfig{
			Provider:       provider,
			Name:           getEnv("BACKEND_SECRETS_NAME", secrets.DefaultSecretName),
			AWSRegion:      getEnv("BACKEND_SECRETS_AWS_REGION", ""),
			AWSEndpoint:    getEnv("BACKEND_SECRETS_AWS_ENDPOINT", ""),
			VaultAddress:   getEnv("BACKEND_SECRETS_VAULT_ADDRESS", ""),
			VaultToken:     getEnv("BACKEND_SECRETS_VAULT_TOKEN", ""),
			VaultNamespace: getEnv("BACKEND_SECRETS_VAULT_NAMESPACE", ""),
			VaultMount:     getEnv("BACKEND_SECRETS_VAULT_MOUNT", "secret"),
			Timeout:        getEnvDuration("BACKEND_SECRETS_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("BACKEND_LOG_LEVEL", "info"),
			Format: getEnv("BACKEND_LOG_FORMAT", "json"),
		},
		Observability: ObservabilityConfig{
			TracingEnabled:    getEnvBool("BACKEND_TRACING_ENABLED", false),
			TracingEndpoint:   getEnv("BACKEND_TRACING_ENDPOINT", ""),
			TracingInsecure:   getEnvBool("BACKEND_TRACING_INSECURE", true),
			TracingSampleRate: getEnvFloat("BACKEND_TRACING_SAMPLE_RATE", 1.0),
			Environment:       getEnv("BACKEND_ENVIRONMENT", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			errs = append(errs, verr.Errors...)
		} else {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed: %w", &ValidationError{Errors: errs})
	}

	return cfg, nil
}

// Validate checks that all configuration fields are set and valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		errs = append(errs, errors.New("BACKEND_HTTP_PORT must be between 1 and 65535"))
	}
	if c.Server.MetricsPort < 1 || c.Server.MetricsPort > 65535 {
		errs = append(errs, errors.New("BACKEND_METRICS_PORT must be between 1 and 65535"))
	}
	if c.Server.HTTPPort == c.Server.MetricsPort {
		errs = append(errs, errors.New("BACKEND_METRICS_PORT must differ from BACKEND_HTTP_PORT"))
	}

	// Database validation
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("BACKEND_DATABASE_PORT must be between 1 and 65535"))
	}
	if c.Database.MaxOpenConns < 1 {
		errs = append(errs, errors.New("BACKEND_DATABASE_MAX_OPEN_CONNS must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("BACKEND_DATABASE_MAX_IDLE_CONNS cannot be negative"))
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, errors.New("BACKEND_DATABASE_MAX_IDLE_CONNS cannot exceed MAX_OPEN_CONNS"))
	}

	// Secrets validation (conditional)
	if c.Secrets.Provider != secrets.ProviderNone && c.Secrets.Name == "" {
		errs = append(errs, errors.New("BACKEND_SECRETS_NAME must not be empty when a secret provider is set"))
	}
	if c.Secrets.Provider == secrets.ProviderVault {
		if c.Secrets.VaultAddress == "" {
			errs = append(errs, errors.New("BACKEND_SECRETS_VAULT_ADDRESS is required when the vault provider is set"))
		}
		if c.Secrets.VaultToken == "" {
			errs = append(errs, errors.New("BACKEND_SECRETS_VAULT_TOKEN is required when the vault provider is set"))
		}
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, errors.New("BACKEND_LOG_LEVEL must be one of: debug, info, warn, error"))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, errors.New("BACKEND_LOG_FORMAT must be one of: json, console"))
	}

	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		errs = append(errs, errors.New("BACKEND_TRACING_SAMPLE_RATE must be between 0 and 1"))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// ValidationError contains multiple validation errors.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the underlying errors for errors.Is/As compatibility.
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// SecretsEnabled returns true if a secret store provider is configured.
func (c *Config) SecretsEnabled() bool {
	return c.Secrets.Provider != secrets.ProviderNone
}

// StoreConfig maps the secrets settings onto the store factory configuration.
func (c *Config) StoreConfig() secrets.StoreConfig {
	return secrets.StoreConfig{
		Provider: c.Secrets.Provider,
		AWS: secrets.AWSConfig{
			Region:   c.Secrets.AWSRegion,
			Endpoint: c.Secrets.AWSEndpoint,
		},
		Vault: secrets.VaultConfig{
			Address:   c.Secrets.VaultAddress,
			Token:     c.Secrets.VaultToken,
			Namespace: c.Secrets.VaultNamespace,
			Mount:     c.Secrets.VaultMount,
			Timeout:   c.Secrets.Timeout,
		},
	}
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

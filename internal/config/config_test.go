package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemstack/backend/internal/secrets"
)

// setTestEnv sets environment variables for testing and restores them on cleanup.
func setTestEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	original := make(map[string]string)
	for key := range envVars {
		original[key] = os.Getenv(key)
	}

	for key, value := range envVars {
		os.Setenv(key, value)
	}

	t.Cleanup(func() {
		for key, value := range original {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_HTTP_PORT":         "8081",
		"BACKEND_METRICS_PORT":      "9092",
		"BACKEND_LOG_LEVEL":         "debug",
		"BACKEND_LOG_FORMAT":        "console",
		"BACKEND_DATABASE_HOST":     "env-host",
		"BACKEND_DATABASE_USERNAME": "env-user",
		"BACKEND_ALLOWED_ORIGINS":   "https://a.example, https://b.example",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HTTPPort)
	assert.Equal(t, 9092, cfg.Server.MetricsPort)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "env-user", cfg.Database.Username)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Defaults(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_HTTP_PORT":        "",
		"BACKEND_SECRETS_PROVIDER": "",
		"BACKEND_SECRETS_NAME":     "",
	})

	cfg, err := Load()
	require.NoError(t, err)

	// Server defaults
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)

	// Database defaults
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.True(t, cfg.Database.AutoMigrate)

	// Secrets defaults
	assert.Equal(t, secrets.ProviderNone, cfg.Secrets.Provider)
	assert.Equal(t, "backend-db-credentials", cfg.Secrets.Name)
	assert.Equal(t, "secret", cfg.Secrets.VaultMount)
	assert.False(t, cfg.SecretsEnabled())

	// Log defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Observability defaults
	assert.False(t, cfg.Observability.TracingEnabled)
	assert.Equal(t, 1.0, cfg.Observability.TracingSampleRate)
	assert.Equal(t, "development", cfg.Observability.Environment)
}

func TestLoad_UnknownSecretProvider(t *testing.T) {
	setTestEnv(t, map[string]string{"BACKEND_SECRETS_PROVIDER": "gcp"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_SECRETS_PROVIDER")
}

func TestLoad_AWSProvider(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_SECRETS_PROVIDER":   "aws-secretsmanager",
		"BACKEND_SECRETS_NAME":       "prod/backend/db",
		"BACKEND_SECRETS_AWS_REGION": "eu-north-1",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.SecretsEnabled())
	storeCfg := cfg.StoreConfig()
	assert.Equal(t, secrets.ProviderAWSSecretsManager, storeCfg.Provider)
	assert.Equal(t, "eu-north-1", storeCfg.AWS.Region)
	assert.Equal(t, "prod/backend/db", cfg.Secrets.Name)
}

func TestLoad_VaultProvider_MissingFields(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_SECRETS_PROVIDER":      "vault",
		"BACKEND_SECRETS_VAULT_ADDRESS": "",
		"BACKEND_SECRETS_VAULT_TOKEN":   "",
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_SECRETS_VAULT_ADDRESS")
	assert.Contains(t, err.Error(), "BACKEND_SECRETS_VAULT_TOKEN")
}

func TestLoad_InvalidPort(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"HTTP port too low", "BACKEND_HTTP_PORT", "0"},
		{"HTTP port too high", "BACKEND_HTTP_PORT", "70000"},
		{"metrics port too low", "BACKEND_METRICS_PORT", "0"},
		{"database port too high", "BACKEND_DATABASE_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestEnv(t, map[string]string{tt.envVar: tt.value})

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.envVar)
		})
	}
}

func TestLoad_PortsCollide(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_HTTP_PORT":    "9000",
		"BACKEND_METRICS_PORT": "9000",
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setTestEnv(t, map[string]string{"BACKEND_LOG_LEVEL": "verbose"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_LOG_LEVEL")
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	setTestEnv(t, map[string]string{"BACKEND_LOG_FORMAT": "xml"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_LOG_FORMAT")
}

func TestLoad_DatabaseMaxIdleExceedsMaxOpen(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_DATABASE_MAX_OPEN_CONNS": "5",
		"BACKEND_DATABASE_MAX_IDLE_CONNS": "10",
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_IDLE_CONNS")
}

func TestLoad_DurationAndBoolParsing(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_SHUTDOWN_TIMEOUT":      "45s",
		"BACKEND_SECRETS_TIMEOUT":       "3s",
		"BACKEND_DATABASE_AUTO_MIGRATE": "false",
		"BACKEND_TRACING_ENABLED":       "true",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 3*time.Second, cfg.Secrets.Timeout)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Observability.TracingEnabled)
}

func TestLoad_ErrorsAreAggregated(t *testing.T) {
	setTestEnv(t, map[string]string{
		"BACKEND_SECRETS_PROVIDER": "gcp",
		"BACKEND_LOG_LEVEL":        "loud",
	})

	_, err := Load()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
}

func TestValidationError_SingleError(t *testing.T) {
	err := &ValidationError{Errors: []error{assert.AnError}}
	assert.Equal(t, assert.AnError.Error(), err.Error())
}

func TestValidationError_MultipleErrors(t *testing.T) {
	err := &ValidationError{Errors: []error{assert.AnError, assert.AnError}}
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestValidationError_Unwrap(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	err := &ValidationError{Errors: []error{e1, e2}}

	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.Len(t, err.Unwrap(), 2)
}

func TestGetEnv_InvalidValues(t *testing.T) {
	t.Run("invalid int falls back to default", func(t *testing.T) {
		setTestEnv(t, map[string]string{"TEST_INT": "not-a-number"})
		assert.Equal(t, 42, getEnvInt("TEST_INT", 42))
	})

	t.Run("invalid bool falls back to default", func(t *testing.T) {
		setTestEnv(t, map[string]string{"TEST_BOOL": "not-a-bool"})
		assert.True(t, getEnvBool("TEST_BOOL", true))
	})

	t.Run("invalid duration falls back to default", func(t *testing.T) {
		setTestEnv(t, map[string]string{"TEST_DUR": "not-a-duration"})
		assert.Equal(t, 5*time.Second, getEnvDuration("TEST_DUR", 5*time.Second))
	})

	t.Run("blank list falls back to default", func(t *testing.T) {
		setTestEnv(t, map[string]string{"TEST_LIST": " , "})
		assert.Equal(t, []string{"*"}, getEnvList("TEST_LIST", []string{"*"}))
	})
}

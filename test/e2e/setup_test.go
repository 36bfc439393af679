//go:build integration

// Package e2e exercises credential selection, the database and the HTTP API
// together against real containers.
package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog"

	"github.com/itemstack/backend/internal/config"
	"github.com/itemstack/backend/internal/credentials"
	"github.com/itemstack/backend/internal/database"
	"github.com/itemstack/backend/internal/secrets"
	"github.com/itemstack/backend/internal/server"
	"github.com/itemstack/backend/migrations"
	"github.com/itemstack/backend/pkg/health"
	"github.com/itemstack/backend/pkg/metrics"
	"github.com/itemstack/backend/pkg/testutil"
)

// TestEnvironment holds the containers shared by every E2E test.
type TestEnvironment struct {
	Postgres   *testutil.PostgresContainer
	LocalStack *testutil.LocalStackContainer

	SecretsManager *secretsmanager.Client
	SSM            *ssm.Client

	Logger zerolog.Logger
}

// testEnv is the global test environment.
var testEnv *TestEnvironment

func TestMain(m *testing.M) {
	if !testutil.IsDockerAvailable() {
		fmt.Println("Docker not available, skipping E2E tests")
		os.Exit(0)
	}

	// LocalStack accepts any static credentials.
	os.Setenv("AWS_ACCESS_KEY_ID", "test")
	os.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var err error
	testEnv, err = SetupTestEnvironment(ctx)
	if err != nil {
		fmt.Printf("Failed to setup test environment: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testEnv.Cleanup()

	os.Exit(code)
}

// SetupTestEnvironment starts PostgreSQL and LocalStack and migrates the schema.
func SetupTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	env := &TestEnvironment{
		Logger: zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger(),
	}

	env.Logger.Info().Msg("Starting PostgreSQL container...")
	pg, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres: %w", err)
	}
	env.Postgres = pg

	env.Logger.Info().Msg("Running database migrations...")
	db, err := database.New(ctx, database.DefaultConfig(pg.ConnStr))
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	migrator, err := database.NewMigratorFromFS(db, migrations.FS)
	if err == nil {
		_, err = migrator.Up(ctx)
	}
	db.Close()
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	env.Logger.Info().Msg("Starting LocalStack container...")
	ls, err := testutil.NewLocalStackContainer(ctx)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to start localstack: %w", err)
	}
	env.LocalStack = ls

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(ls.Region))
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	env.SecretsManager = secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		o.BaseEndpoint = aws.String(ls.Endpoint)
	})
	env.SSM = ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
		o.BaseEndpoint = aws.String(ls.Endpoint)
	})

	env.Logger.Info().Msg("Test environment ready")
	return env, nil
}

// Cleanup terminates all containers.
func (e *TestEnvironment) Cleanup() {
	ctx := context.Background()
	if e.LocalStack != nil {
		e.LocalStack.Terminate(ctx)
	}
	if e.Postgres != nil {
		e.Postgres.Terminate(ctx)
	}
}

// PutSecret creates a Secrets Manager secret with the given payload.
func (e *TestEnvironment) PutSecret(t *testing.T, name, payload string) {
	t.Helper()
	_, err := e.SecretsManager.CreateSecret(context.Background(), &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(payload),
	})
	if err != nil {
		t.Fatalf("create secret %s: %v", name, err)
	}
}

// PutParameter creates an SSM SecureString parameter with the given payload.
func (e *TestEnvironment) PutParameter(t *testing.T, name, payload string) {
	t.Helper()
	_, err := e.SSM.PutParameter(context.Background(), &ssm.PutParameterInput{
		Name:  aws.String(name),
		Value: aws.String(payload),
		Type:  ssmtypes.ParameterTypeSecureString,
	})
	if err != nil {
		t.Fatalf("put parameter %s: %v", name, err)
	}
}

// StoreConfig points a store of the given provider at LocalStack.
func (e *TestEnvironment) StoreConfig(provider secrets.Provider) secrets.StoreConfig {
	return secrets.StoreConfig{
		Provider: provider,
		AWS: secrets.AWSConfig{
			Region:   e.LocalStack.Region,
			Endpoint: e.LocalStack.Endpoint,
		},
	}
}

// Stack is a running backend assembled the same way the serve command does it.
type Stack struct {
	Selection credentials.Selection
	Metrics   *metrics.Metrics
	DB        *database.DB
	Server    *httptest.Server
}

// StartStack selects credentials, layers them over dbEnv, connects and serves.
func (e *TestEnvironment) StartStack(t *testing.T, storeCfg secrets.StoreConfig, secretName string, dbEnv config.DatabaseConfig) *Stack {
	t.Helper()
	ctx := context.Background()
	m := metrics.NewMetrics()

	var resolver *secrets.Resolver
	if storeCfg.Provider != secrets.ProviderNone {
		store, err := secrets.NewStore(ctx, storeCfg)
		if err != nil {
			t.Fatalf("create store: %v", err)
		}
		resolver = secrets.NewResolver(store, e.Logger, secrets.WithRecorder(m.Backend))
	}

	selection := credentials.NewSelector(resolver, secretName, e.Logger).
		WithRecorder(m.Backend).
		SelectDatabaseConfiguration(ctx)

	layered := dbEnv.WithCredentials(selection.Credentials)
	db, err := database.New(ctx, database.DefaultConfig(layered.ConnString()))
	stack := &Stack{Selection: selection, Metrics: m}
	if err != nil {
		return stack
	}
	stack.DB = db
	t.Cleanup(db.Close)

	cfg := server.DefaultHTTPConfig()
	cfg.Metrics = m.Backend
	repo := database.NewInstrumentedItemRepo(database.NewItemRepo(db), m.Backend)
	srv := server.NewHTTPServer(cfg, repo, health.NewChecker(2*time.Second, health.NewDatabaseCheck(db)), e.Logger)

	stack.Server = httptest.NewServer(srv.Handler())
	t.Cleanup(stack.Server.Close)
	return stack
}

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/itemstack/backend/internal/config"
	"github.com/itemstack/backend/pkg/log"
)

// Build information (set from main.go)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags
var (
	outputFormat string
	logLevel     string
	logFormat    string
)

// Loaded by PersistentPreRunE for every command except version.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "backend",
	Short: "Items API with secret-store database credentials",
	Long: `backend serves a small items API backed by PostgreSQL.

Database credentials are taken from a managed secret store when one is
configured and returns a usable payload; otherwise the BACKEND_DATABASE_*
environment configuration is used as-is.

Environment variables:
  BACKEND_SECRETS_PROVIDER   aws-secretsmanager, aws-ssm, vault (default: none)
  BACKEND_SECRETS_NAME       Secret name (default: backend-db-credentials)
  BACKEND_DATABASE_URL       PostgreSQL connection string
  BACKEND_LOG_LEVEL          debug, info, warn, error (default: info)
  BACKEND_LOG_FORMAT         json, console (default: json)`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}

		cfg = loaded
		// Logs go to stderr so json/yaml command output stays parseable.
		logger = log.New(cfg.Log.Level, cfg.Log.Format, "backend", cmd.ErrOrStderr())
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override BACKEND_LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override BACKEND_LOG_FORMAT")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(credentialsCmd)
}

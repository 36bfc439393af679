package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itemstack/backend/internal/database"
	"github.com/itemstack/backend/migrations"
)

var (
	migrateTo    string
	migrateSteps int
)

// migrateCmd groups the schema migration commands.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			var (
				applied int
				err     error
			)
			if migrateTo != "" {
				applied, err = m.UpTo(ctx, migrateTo)
			} else {
				applied, err = m.Up(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			rolledBack, err := m.DownN(ctx, migrateSteps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", rolledBack)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			if outputFormat != "table" {
				return printOutput(cmd.OutOrStdout(), outputFormat, statuses)
			}
			fmt.Fprint(cmd.OutOrStdout(), database.FormatStatus(statuses))
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			version, err := m.Version(ctx)
			if err != nil {
				return err
			}
			pending, err := m.Pending(ctx)
			if err != nil {
				return err
			}
			if version == "" {
				version = "none"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s (%d pending)\n", version, len(pending))
			return nil
		})
	},
}

// withMigrator connects with the selected credentials and runs fn.
func withMigrator(ctx context.Context, fn func(context.Context, *database.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, _, err := connectDatabase(ctx, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	m, err := database.NewMigratorFromFS(db, migrations.FS, database.WithMigrationLogger(logger))
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

func init() {
	migrateUpCmd.Flags().StringVar(&migrateTo, "to", "", "Apply migrations up to and including this version")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

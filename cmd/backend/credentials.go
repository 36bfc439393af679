package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// credentialsReport describes a selection without exposing values.
type credentialsReport struct {
	Source     string            `json:"source" yaml:"source"`
	SecretName string            `json:"secret_name,omitempty" yaml:"secret_name,omitempty"`
	Provider   string            `json:"provider,omitempty" yaml:"provider,omitempty"`
	Fields     []string          `json:"fields" yaml:"fields"`
	Target     map[string]string `json:"target" yaml:"target"`
}

// credentialsCmd runs credential selection once and reports the outcome.
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Show where database credentials come from",
	Long: `Runs credential selection exactly as serve does and prints the chosen
source and the names of the fields it supplied. Values that came from the
secret store are never printed, only whether they are set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		selection, release := selectCredentials(ctx, cfg, logger, nil)
		release()

		report := credentialsReport{
			Source:   string(selection.Source),
			Provider: string(cfg.Secrets.Provider),
			Fields:   selection.Credentials.Fields(),
			Target:   cfg.Database.WithCredentials(selection.Credentials).Redacted(selection.Credentials),
		}
		if cfg.SecretsEnabled() {
			report.SecretName = cfg.Secrets.Name
		}

		if outputFormat != "table" {
			return printOutput(cmd.OutOrStdout(), outputFormat, report)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source:   %s\n", report.Source)
		if report.SecretName != "" {
			fmt.Fprintf(out, "Secret:   %s (%s)\n", report.SecretName, report.Provider)
		}
		fields := "-"
		if len(report.Fields) > 0 {
			fields = strings.Join(report.Fields, ", ")
		}
		fmt.Fprintf(out, "Fields:   %s\n", fields)
		fmt.Fprintf(out, "Host:     %s\n", targetField(report.Target, "host"))
		fmt.Fprintf(out, "Database: %s\n", targetField(report.Target, "database"))
		return nil
	},
}

// targetField renders a redacted target entry, masking values that came
// from the secret store.
func targetField(target map[string]string, label string) string {
	if set, ok := target[label+"_set"]; ok {
		if set == "true" {
			return "(from secret store)"
		}
		return "(empty in secret store)"
	}
	return target[label]
}

package main

import (
	"github.com/spf13/cobra"

	"conftalks/internal/store"
)

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and migrate the database schema",
	}
	schemaCmd.AddCommand(newSchemaVersionCommand(ctx))
	schemaCmd.AddCommand(newSchemaMigrateCommand(ctx))
	return schemaCmd
}

func newSchemaVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied and latest schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath(), store.WithoutMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			current, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fprintf(out, "Database: %s\n", cfg.DatabasePath())
			fprintf(out, "Current version: %d\n", current)
			fprintf(out, "Latest version: %d\n", store.LatestVersion())
			return nil
		},
	}
}

func newSchemaMigrateCommand(ctx *commandContext) *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath(), store.WithoutMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			before, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			after, err := st.Migrate(cmd.Context(), target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if after == before {
				fprintf(out, "Schema already at version %d\n", after)
				return nil
			}
			fprintf(out, "Migrated schema from version %d to %d\n", before, after)
			return nil
		},
	}

	cmd.Flags().IntVar(&target, "to", 0, "Target version (0 means latest)")
	return cmd
}

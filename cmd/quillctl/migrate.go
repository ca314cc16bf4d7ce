package main

import (
	"fmt"
	"strconv"

	"quill/internal/bootstrap"
	"quill/internal/database"

	"github.com/spf13/cobra"
)

func (a *app) newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and change the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply the schema using the configured DB_SCHEMA_MODE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, db, closeFn, err := a.connect(ctx, bootstrap.Options{SkipSchema: true, SkipRedis: true})
			if err != nil {
				return err
			}
			defer closeFn()

			if err := database.ApplySchema(ctx, db, cfg); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, db, closeFn, err := a.connect(ctx, bootstrap.Options{SkipSchema: true, SkipRedis: true})
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := database.GetSchemaStatus(ctx, db, cfg)
			if err != nil {
				return fmt.Errorf("schema status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode=%s env=%s dialect=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Mode, status.Environment, status.Dialect, status.WillRunSQL, status.WillRunAutoMigrate,
				len(status.AppliedVersions), len(status.PendingMigrations))
			for _, m := range status.PendingMigrations {
				fmt.Fprintf(out, "pending: %s\n", m)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down <version>",
		Short: "Roll back one applied SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version <= 0 {
				return fmt.Errorf("invalid version %q", args[0])
			}

			ctx := cmd.Context()
			_, db, closeFn, err := a.connect(ctx, bootstrap.Options{SkipSchema: true, SkipRedis: true})
			if err != nil {
				return err
			}
			defer closeFn()

			if err := database.RollbackMigration(ctx, db, version); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %06d\n", version)
			return nil
		},
	})

	return cmd
}

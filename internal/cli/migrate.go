package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/festival-booking/internal/database"
)

// NewMigrateCommand creates the migrate command and its status subcommand.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, true, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, false, cmd)
		},
	})

	return cmd
}

// runMigrate opens the pool, optionally applying migrations first, and prints
// the resulting schema version.
func runMigrate(ctx context.Context, opts *RootOptions, apply bool, cmd *cobra.Command) error {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}
	pool, err := openPostgres(ctx, cfg, apply, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	v, err := database.MigrationStatus(ctx, pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
	return nil
}

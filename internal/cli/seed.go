package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
	"github.com/Shivanand-hulikatti/festival-booking/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Load a festival, its days and admins into PostgreSQL",
		Long: `Load a festival, its days and admins into PostgreSQL.

Without a file the built-in five-day festival is loaded. Running the command
again is safe: the existing festival is kept and known day ids are skipped.

Example:
  festival seed
  festival seed ./festival.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSeed(cmd.Context(), rootOpts, path, cmd)
		},
	}
}

func runSeed(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Store != config.DriverPostgres {
		return errors.New("seed writes to postgres; the memory store is seeded by serve")
	}

	doc, err := loadSeed(path)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, true, log)
	if err != nil {
		return err
	}
	defer st.close()

	res, err := seed.Apply(ctx, doc, st.registry, st.users, log)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "festival created: %t, days created: %d, days skipped: %d, admins created: %d\n",
		res.FestivalCreated, res.DaysCreated, res.DaysSkipped, res.AdminsCreated)
	return nil
}

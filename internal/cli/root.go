// Package cli implements the festival command line: serve, migrate and seed.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "festival",
		Short: "Festival day booking service",
		Long: `Festival day booking service.

Participants hold at most one active booking on one festival day. Every
allocation is checked against the day's capacity under a per-day lock, so
concurrent requests can never overbook a day.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// loadConfig reads configuration and builds the logger every command uses.
func loadConfig(opts *RootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, config.NewLogger(cfg.Log, os.Stderr), nil
}

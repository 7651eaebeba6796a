package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/cartographer/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create .cartographer and seed the default mission config",
		Long: `Create the .cartographer directory (logs, reports) and write config.yaml with
the stock mission table. An existing config.yaml is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.dir()
			if err != nil {
				return err
			}
			if err := config.InitCartographerDir(dir); err != nil {
				return err
			}
			cfg, err := config.NewConfig(dir)
			if err != nil {
				return fmt.Errorf("config.yaml is invalid: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", cfg.CartographerProjectDir)
			fmt.Fprintf(cmd.OutOrStdout(), "  config:  %s\n", cfg.ProjectConfigPath())
			fmt.Fprintf(cmd.OutOrStdout(), "  reports: %s\n", cfg.ReportsDir())
			return nil
		},
	}
}

// Package cli wires the cartographer commands with cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
)

type rootOptions struct {
	projectDir string
	verbose    bool
}

// NewRootCommand builds the command tree. Each call returns a fresh tree so
// tests can run commands independently.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "cartographer",
		Short: "Plan and fly timed multi-stop inspection missions",
		Long: `cartographer flies a robot through a waypoint graph under a hard time budget:
it inspects the best-scoring active targets for a bounded number of phases,
reads an environmental marker, travels to the goal and reports the marker.

Missions run against the built-in simulator. Configuration lives in
.cartographer/config.yaml; reports and the mission journal are kept next to it.

Getting started:
  cartographer init           Seed .cartographer/config.yaml
  cartographer run --tui      Fly a simulated mission with a live monitor
  cartographer report         Show the latest report and marker QR
  cartographer journal -n 20  Tail the mission journal`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.PersistentFlags().StringVarP(&opts.projectDir, "dir", "C", "", "Project directory (defaults to the current directory)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Mirror diagnostic logs to stderr")

	root.AddCommand(
		newInitCommand(opts),
		newRunCommand(opts),
		newReportCommand(opts),
		newJournalCommand(opts),
	)
	return root
}

func (o *rootOptions) dir() (string, error) {
	if o.projectDir != "" {
		return o.projectDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return cwd, nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

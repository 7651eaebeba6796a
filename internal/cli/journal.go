package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/cartographer/internal/config"
	"github.com/kingrea/cartographer/internal/logbook"
)

func newJournalCommand(root *rootOptions) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"log", "tail"},
		Short:   "Tail the mission journal",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := root.dir()
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(dir)
			if err != nil {
				return err
			}
			book, err := logbook.New(cfg.JournalPath())
			if err != nil {
				return err
			}
			entries, total := book.Tail(lines)
			out := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintln(out, dimStyle.Render("journal is empty"))
				return nil
			}
			for _, line := range entries {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("(%d of %d entries)", len(entries), total)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of entries to show")
	return cmd
}

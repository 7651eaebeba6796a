package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/kingrea/cartographer/internal/config"
	"github.com/kingrea/cartographer/internal/mission"
	"github.com/kingrea/cartographer/internal/sim"
)

type reportOptions struct {
	json bool
	noQR bool
}

func newReportCommand(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:     "report [run-id]",
		Aliases: []string{"last", "show"},
		Short:   "Show a mission report (latest by default)",
		Long: `Show a saved mission report. Without a run id the most recently finished
mission is shown. When the marker was decoded its content is printed as a
terminal QR code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := root.dir()
			if err != nil {
				return err
			}
			cfg, err := config.NewConfig(dir)
			if err != nil {
				return err
			}
			repo := mission.NewRepository(cfg.ReportsDir())
			var report mission.Report
			if len(args) == 1 {
				report, err = repo.Load(args[0])
			} else {
				report, err = repo.Latest()
			}
			if errors.Is(err, mission.ErrReportNotFound) {
				return fmt.Errorf("no mission report found; run `cartographer run` first")
			}
			if err != nil {
				return err
			}
			return showReport(cmd.OutOrStdout(), report, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the raw JSON report")
	cmd.Flags().BoolVar(&opts.noQR, "no-qr", false, "Do not render the marker as a QR code")
	return cmd
}

func showReport(out io.Writer, report mission.Report, opts *reportOptions) error {
	if opts.json {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	printReport(out, report, sim.Stats{})
	fmt.Fprintf(out, "  finished:    %s (%s)\n", report.FinishedAt.Format("2006-01-02 15:04:05"), report.Duration().Round(time.Millisecond))
	if opts.noQR || !report.MarkerDecoded {
		return nil
	}
	code, err := qrcode.New(report.MarkerContent, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("render marker: %w", err)
	}
	fmt.Fprintln(out, code.ToString(false))
	return nil
}

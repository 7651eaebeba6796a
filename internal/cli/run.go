package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/cartographer/internal/config"
	"github.com/kingrea/cartographer/internal/logbook"
	"github.com/kingrea/cartographer/internal/logging"
	"github.com/kingrea/cartographer/internal/metrics"
	"github.com/kingrea/cartographer/internal/mission"
	"github.com/kingrea/cartographer/internal/navigation"
	"github.com/kingrea/cartographer/internal/sim"
	"github.com/kingrea/cartographer/internal/status"
	"github.com/kingrea/cartographer/internal/strategy"
	"github.com/kingrea/cartographer/internal/tui"
)

type runOptions struct {
	tui  bool
	seed int64
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fly a mission against the simulator",
		Long: `Run one mission against the built-in simulator and save its report.

The simulator seed comes from --seed, CARTOGRAPHER_SEED or config.yaml; zero
picks a fresh seed, which is printed so the run can be replayed.

Examples:
  cartographer run
  cartographer run --seed 42
  cartographer run --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := root.dir()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			seedSet := cmd.Flags().Changed("seed")
			return runMission(ctx, cmd.OutOrStdout(), dir, root.verbose, opts, seedSet)
		},
	}
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "Show a live monitor while the mission runs")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Simulator and strategy seed (overrides config)")
	return cmd
}

// missionRig is everything a single run needs, wired from config.
type missionRig struct {
	cfg       *config.Config
	logger    *logging.Logger
	journal   *logbook.Logbook
	collector *metrics.Collector
	tracker   *status.Tracker
	platform  *sim.Platform
	scheduler *mission.Scheduler
	seed      int64
}

func buildRig(dir string, verbose bool, seed int64, seedSet bool, extra ...mission.Observer) (*missionRig, error) {
	if err := config.InitCartographerDir(dir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, err
	}
	if seedSet {
		cfg.Project.Simulator.Seed = seed
	}
	if cfg.Project.Simulator.Seed == 0 {
		cfg.Project.Simulator.Seed = time.Now().UnixNano()
	}
	var logOpts []logging.Option
	if verbose {
		logOpts = append(logOpts, logging.WithConsole(os.Stderr, zapcore.InfoLevel))
	}
	logger, err := logging.New(dir, logOpts...)
	if err != nil {
		return nil, err
	}
	rig := &missionRig{cfg: cfg, logger: logger, seed: cfg.Project.Simulator.Seed}
	if err := rig.wire(extra); err != nil {
		_ = logger.Close()
		return nil, err
	}
	return rig, nil
}

func (r *missionRig) wire(extra []mission.Observer) error {
	cfg := r.cfg
	sugar := r.logger.Sugar()
	graph, err := cfg.Graph()
	if err != nil {
		return err
	}
	plan := cfg.Plan()
	r.platform, err = sim.New(graph, cfg.ActiveCandidates(), plan.MarkerWaypoint,
		sim.SettingsFromConfig(cfg), sim.WithLogger(sugar.Named("sim")))
	if err != nil {
		return err
	}
	strat, err := strategy.New(cfg.Scores(), cfg.Regions(), plan.MarkerTarget,
		strategy.WithSeed(r.seed), strategy.WithLogger(sugar.Named("strategy")))
	if err != nil {
		return err
	}
	r.journal, err = logbook.New(cfg.JournalPath())
	if err != nil {
		return err
	}
	r.collector = metrics.New()
	r.tracker = status.NewTracker()

	execOpts := []navigation.Option{navigation.WithMaxAttempts(cfg.Project.Mission.RetryLimit)}
	if cfg.Project.Mission.VerifyTags {
		execOpts = append(execOpts, navigation.WithTagDetector(r.platform))
	}
	schedOpts := []mission.Option{
		mission.WithLogger(sugar.Named("mission")),
		mission.WithExecutorOptions(execOpts...),
		mission.WithObserver(r.journal),
		mission.WithObserver(r.collector),
		mission.WithObserver(r.tracker),
	}
	for _, o := range extra {
		schedOpts = append(schedOpts, mission.WithObserver(o))
	}
	r.scheduler, err = mission.New(graph, r.platform, strat, plan, schedOpts...)
	return err
}

func runMission(ctx context.Context, out io.Writer, dir string, verbose bool, opts *runOptions, seedSet bool) error {
	var feed *tui.Feed
	var extra []mission.Observer
	if opts.tui {
		feed = tui.NewFeed(64)
		extra = append(extra, feed)
	}
	rig, err := buildRig(dir, verbose, opts.seed, seedSet, extra...)
	if err != nil {
		return err
	}
	defer rig.logger.Close()

	srv := status.NewServer(status.SettingsFromConfig(rig.cfg),
		status.WithTracker(rig.tracker),
		status.WithMetrics(rig.collector.Handler()),
		status.WithLogger(rig.logger))
	switch err := srv.Start(ctx); {
	case err == nil:
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render("status server:"), srv.BaseURL())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	case errors.Is(err, status.ErrServerDisabled):
	default:
		return err
	}

	fmt.Fprintf(out, "%s seed %d\n", headingStyle.Render("Running mission"), rig.seed)
	var (
		report mission.Report
		runErr error
	)
	if feed != nil {
		report, runErr = runWithMonitor(ctx, rig, feed)
	} else {
		report, runErr = rig.scheduler.Run(ctx)
	}

	repo := mission.NewRepository(rig.cfg.ReportsDir())
	if err := repo.Save(report); err != nil {
		return errors.Join(runErr, err)
	}
	printReport(out, report, rig.platform.Stats())
	fmt.Fprintf(out, "%s %s\n", dimStyle.Render("report saved:"), repo.Dir())
	return runErr
}

func runWithMonitor(ctx context.Context, rig *missionRig, feed *tui.Feed) (mission.Report, error) {
	type result struct {
		report mission.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := rig.scheduler.Run(ctx)
		feed.Close()
		done <- result{report, err}
	}()
	monitor := tui.NewMonitor(feed, rig.cfg.Plan(), tui.WithJournal(rig.journal))
	if _, err := tea.NewProgram(monitor, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		feed.Detach()
		rig.logger.Printf("monitor exited: %v", err)
	}
	if !monitor.Done() {
		feed.Detach()
	}
	res := <-done
	return res.report, res.err
}

func printReport(out io.Writer, report mission.Report, stats sim.Stats) {
	fmt.Fprintln(out, headingStyle.Render("Mission "+report.RunID))
	fmt.Fprintf(out, "  phases:      %d (%s)\n", report.Phases, report.StopReason)
	fmt.Fprintf(out, "  visited:     %v\n", report.Visited)
	marker := report.MarkerContent
	if !report.MarkerDecoded {
		marker = warnStyle.Render("not decoded")
	}
	fmt.Fprintf(out, "  marker:      %s\n", marker)
	fmt.Fprintf(out, "  reported:    %v\n", report.Reported)
	fmt.Fprintf(out, "  commands:    %d (%d legs unconfirmed)\n", report.PoseCommands, report.Unconfirmed)
	fmt.Fprintf(out, "  remaining:   %.1fs\n", float64(report.RemainingAtEnd)/1000)
	if stats.Commands > 0 {
		fmt.Fprintf(out, "  simulated:   %.1fs, %d failed commands\n", float64(stats.ElapsedMillis)/1000, stats.Failures)
	}
	if report.Error != "" {
		fmt.Fprintf(out, "  error:       %s\n", warnStyle.Render(report.Error))
	}
}

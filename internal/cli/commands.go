package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/cricpulse/internal/config"
	"github.com/pfrederiksen/cricpulse/internal/engine"
	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/router"
	"github.com/pfrederiksen/cricpulse/internal/server"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

var (
	flagListen   string
	flagInterval time.Duration
	flagNoServer bool
	flagFormat   string
	flagSort     string
	flagClear    bool
	flagPath     bool
)

// commandTimeout bounds one-shot commands.
const commandTimeout = time.Minute

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the selected match, publish state and send alerts",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}
	cmd.Flags().StringVar(&flagListen, "listen", "", "HTTP listen address (default from config)")
	cmd.Flags().DurationVar(&flagInterval, "interval", 0, "Poll interval (default from config)")
	cmd.Flags().BoolVar(&flagNoServer, "no-server", false, "Do not start the HTTP server")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Server.Listen = flagListen
	}
	interval := cfg.Sync.Interval.Std()
	if flagInterval > 0 {
		interval = flagInterval
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.engine.Run(gctx, interval)
	})
	g.Go(func() error {
		return a.store.Watch(gctx, cfg.Store.WatchInterval.Std())
	})
	if !flagNoServer {
		srv := server.New(a.router, a.store, server.WithLogger(a.log), server.WithMetrics(a.metrics))
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.Listen)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("shutdown complete", logger.Fields{"metrics": a.metrics.Snapshot().Counters})
	return nil
}

func newMatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List live matches",
		Args:  cobra.NoArgs,
		RunE:  runMatches,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagSort, "sort", "", "Sort order: id, name or live (default API order)")
	return cmd
}

func runMatches(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flagSort)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := router.Await(ctx, a.router.ListLiveMatches(ctx))
	if err != nil {
		return fmt.Errorf("listing matches: %w", err)
	}
	selected, _, err := a.store.Selection(ctx)
	if err != nil {
		return err
	}

	sortMatches(resp.Matches, order)
	result := &MatchesResult{
		CheckedAt:  time.Now().UTC(),
		Matches:    resp.Matches,
		MatchCount: len(resp.Matches),
		Selected:   selected,
	}
	if err := WriteMatches(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select [match-id]",
		Short: "Select the match to follow, or show the current selection",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSelect,
	}
	cmd.Flags().BoolVar(&flagClear, "clear", false, "Clear the selection")
	return cmd
}

func runSelect(cmd *cobra.Command, args []string) error {
	if flagClear && len(args) > 0 {
		return fmt.Errorf("--clear takes no match id")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	st, err := openCommandStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	switch {
	case flagClear:
		if err := st.ClearSelection(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Selection cleared.")
	case len(args) == 1:
		id := match.NormalizeID(args[0])
		if err := st.Select(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Selected match %s.\n", id)
	default:
		id, ok, err := st.Selection(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "No match selected.")
			return nil
		}
		fmt.Fprintln(out, id)
	}
	return nil
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync tick now",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ack, err := router.Await(ctx, a.router.ForceSync(ctx))
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("sync failed: %s", ack.Error)
	}

	out := cmd.OutOrStdout()
	switch ack.Outcome {
	case engine.Idle:
		fmt.Fprintln(out, "No match selected.")
	case engine.NotFound:
		return &exitError{code: ExitNotFound, msg: "Selected match is not live."}
	default:
		fmt.Fprintf(out, "Sync %s.\n", ack.Outcome)
	}
	return nil
}

func newTestAlertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-alert",
		Short: "Send a test alert to every configured sink",
		Args:  cobra.NoArgs,
		RunE:  runTestAlert,
	}
}

func runTestAlert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ack, err := router.Await(ctx, a.router.SendTestAlert(ctx))
	if err != nil {
		return fmt.Errorf("test alert: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("test alert: %s", ack.Error)
	}
	// Wait for delivery so failures are logged before exit.
	a.dispatcher.Wait()
	fmt.Fprintf(cmd.ErrOrStderr(), "Test alert sent to %d sink(s).\n", len(a.dispatcher.Sinks()))
	return nil
}

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the last published match state",
		Args:  cobra.NoArgs,
		RunE:  runState,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func runState(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	st, err := openCommandStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	p, ok, err := st.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return &exitError{code: ExitNotFound, msg: "No match state published."}
	}
	return WriteState(cmd.OutOrStdout(), p, format)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfig,
	}
	cmd.Flags().BoolVar(&flagPath, "path", false, "Print the config file path only")
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	if flagPath {
		path := flagConfig
		if path == "" {
			path = config.DefaultConfigPath()
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return cfg.Encode(cmd.OutOrStdout())
}

// openCommandStore opens the store for commands that need nothing else.
func openCommandStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return openStore(ctx, cfg, log, logger.DefaultMetrics())
}

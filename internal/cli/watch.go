package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pfrederiksen/cricpulse/internal/render"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

var flagPlain bool

const watchBuffer = 64

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the published scorebar as it changes",
		Long: `Follow the store and redraw the scorebar whenever a new state is published.
Uses a full-screen view on a terminal and prints one line per change otherwise.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().BoolVar(&flagPlain, "plain", false, "Print one line per change even on a terminal")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openCommandStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sub := st.Subscribe(watchBuffer)
	defer sub.Close()

	initial, err := st.Entries(ctx, store.Keys...)
	if err != nil {
		return err
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- st.Watch(ctx, cfg.Store.WatchInterval.Std()) }()

	out := cmd.OutOrStdout()
	if !flagPlain && isTerminal(out) {
		program := tea.NewProgram(render.NewWatchModel(sub.C, initial), tea.WithContext(ctx), tea.WithOutput(out))
		if _, err := program.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("running watch view: %w", err)
		}
		return nil
	}

	return watchPlain(ctx, out, sub.C, initial, watchErr)
}

// watchPlain prints the scorebar once up front and again on every state
// change, until ctx ends or the feed closes.
func watchPlain(ctx context.Context, out io.Writer, changes <-chan store.Entry, initial []store.Entry, watchErr <-chan error) error {
	var snap render.Snapshot
	for _, e := range initial {
		snap.Apply(e)
	}
	printLine(out, snap)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err != nil {
				return err
			}
			watchErr = nil
		case e, ok := <-changes:
			if !ok {
				return nil
			}
			// A publish writes several keys at once; fold them all in
			// before printing.
			changed := snap.Apply(e)
			open := drain(changes, &snap, &changed)
			if changed {
				printLine(out, snap)
			}
			if !open {
				return nil
			}
		}
	}
}

// drain applies every change already buffered on changes. It reports false
// once the channel is closed.
func drain(changes <-chan store.Entry, snap *render.Snapshot, changed *bool) bool {
	for {
		select {
		case e, ok := <-changes:
			if !ok {
				return false
			}
			if snap.Apply(e) {
				*changed = true
			}
		default:
			return true
		}
	}
}

func printLine(out io.Writer, snap render.Snapshot) {
	stamp := "--:--:--"
	if !snap.UpdatedAt.IsZero() {
		stamp = snap.UpdatedAt.Local().Format(time.TimeOnly)
	}
	fmt.Fprintf(out, "[%s] %s\n", stamp, render.Plain(snap.State))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

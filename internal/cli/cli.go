package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/cricpulse/internal/config"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNotFound = 2
)

var (
	flagConfig   string
	flagLogLevel string
	flagStore    string
	flagDSN      string
	flagVerbose  bool
)

// exitError carries a non-default exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cricpulse",
		Short: "Follow a live cricket match and alert on wickets and boundaries",
		Long: `cricpulse polls a live-cricket API for the selected match, publishes the
merged match state to a key-value store and alerts on wickets, fours and sixes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/cricpulse/config.toml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flagStore, "store", "", "Store driver: memory, file, sqlite or postgres")
	pf.StringVar(&flagDSN, "dsn", "", "Store DSN (file path or postgres URL)")
	pf.BoolVar(&flagVerbose, "verbose", false, "Shorthand for --log-level debug")

	cmd.AddCommand(
		newRunCmd(),
		newMatchesCmd(),
		newSelectCmd(),
		newSyncCmd(),
		newTestAlertCmd(),
		newStateCmd(),
		newWatchCmd(),
		newConfigCmd(),
	)
	return cmd
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagVerbose {
		cfg.Log.Level = "DEBUG"
	}
	if flagStore != "" {
		cfg.Store.Driver = flagStore
	}
	if flagDSN != "" {
		cfg.Store.DSN = flagDSN
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// Package cli implements the cobra-based command surface for trop,
// described at its boundary in spec.md §6. Each subcommand lives in its
// own file within this package; this file defines the root command,
// global flags, and the process-wide plumbing (logging, config
// resolution, store lifecycle, exit-code translation) every subcommand
// shares.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// Global flag variables shared across all subcommands, bound to
// persistent flags on the root command so every subcommand inherits them
// without re-declaration.
var (
	verbose bool
	quiet   bool

	dataDirFlag         string
	configPathFlag      string
	busyTimeoutFlag     int
	disableAutoinitFlag bool

	forceFlag              bool
	allowUnrelatedPathFlag bool
	allowChangeProjectFlag bool
	allowChangeTaskFlag    bool
	allowChangeFlag        bool
)

// Version, Commit, and Date are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Log is the process-wide structured logger (SPEC_FULL.md §1). It writes
// to stderr always, since stdout is reserved for data per spec.md §6.
var Log = logrus.New()

func init() {
	Log.SetOutput(os.Stderr)
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trop",
		Short: "A per-path TCP/UDP port reservation ledger",
		Long: `trop reserves host ports against filesystem paths so concurrent
worktrees, dev containers, and local services never collide over the same
port. Reservations are sticky: re-reserving the same path returns the same
port until explicitly released or migrated.`,

		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureLogging()
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override the trop data directory (default $TROP_DATA_DIR or $XDG_DATA_HOME/trop)")
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "path to an additional config file (accepted, but not read by config resolution)")
	rootCmd.PersistentFlags().IntVar(&busyTimeoutFlag, "busy-timeout", 0, "override maximum_lock_wait_seconds")
	rootCmd.PersistentFlags().BoolVar(&disableAutoinitFlag, "disable-autoinit", false, "refuse to create a new store; error if one doesn't exist")
	rootCmd.PersistentFlags().BoolVar(&forceFlag, "force", false, "override every guard rail (unrelated path, sticky fields, preferred-port conflicts)")
	rootCmd.PersistentFlags().BoolVar(&allowUnrelatedPathFlag, "allow-unrelated-path", false, "permit mutating a path outside the current directory's lineage")
	rootCmd.PersistentFlags().BoolVar(&allowChangeProjectFlag, "allow-change-project", false, "permit overwriting a reservation's sticky project")
	rootCmd.PersistentFlags().BoolVar(&allowChangeTaskFlag, "allow-change-task", false, "permit overwriting a reservation's sticky task")
	rootCmd.PersistentFlags().BoolVar(&allowChangeFlag, "allow-change", false, "shorthand for --allow-change-project --allow-change-task")

	rootCmd.AddCommand(NewReserveCommand())
	rootCmd.AddCommand(NewReleaseCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewReserveGroupCommand())
	rootCmd.AddCommand(NewAutoreserveCommand())
	rootCmd.AddCommand(NewPruneCommand())
	rootCmd.AddCommand(NewExpireCommand())
	rootCmd.AddCommand(NewAutocleanCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewListProjectsCommand())
	rootCmd.AddCommand(NewPortInfoCommand())
	rootCmd.AddCommand(NewShowPathCommand())
	rootCmd.AddCommand(NewShowDataDirCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewExcludeCommand())
	rootCmd.AddCommand(NewCompactExclusionsCommand())
	rootCmd.AddCommand(NewAssertReservationCommand())
	rootCmd.AddCommand(NewAssertPortCommand())
	rootCmd.AddCommand(NewAssertDataDirCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewCompletionsCommand())
	rootCmd.AddCommand(NewMetricsCommand())

	return rootCmd
}

// configureLogging sets the logger's level and formatter from the global
// flags and TROP_LOG_MODE, per SPEC_FULL.md §1.
func configureLogging() {
	switch {
	case verbose:
		Log.SetLevel(logrus.DebugLevel)
	case quiet:
		Log.SetLevel(logrus.ErrorLevel)
	default:
		Log.SetLevel(logrus.InfoLevel)
	}

	if os.Getenv("TROP_LOG_MODE") == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
}

// VerboseLog logs a debug-level message, gated by --verbose.
func VerboseLog(format string, args ...interface{}) {
	Log.Debugf(format, args...)
}

// Execute runs the root command and translates the returned error, if
// any, into a process exit code per spec.md §6-§7.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if tropErr, ok := err.(*model.TropError); ok {
			printError(tropErr.Message, tropErr.Err)
			os.Exit(int(tropErr.ExitCode()))
		}
		printError(err.Error(), nil)
		os.Exit(int(model.ExitArgumentError))
	}
}

// printError renders a failing command's message to stderr as text or
// JSON, depending on TROP_OUTPUT_FORMAT.
func printError(message string, underlying error) {
	if outputFormat() == "json" {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{"message": message},
		}
		if underlying != nil {
			errObj["error"].(map[string]interface{})["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// outputFormat returns the process-wide default output format
// (TROP_OUTPUT_FORMAT), consulted by commands whose --format flag wasn't
// explicitly set.
func outputFormat() string {
	if v := os.Getenv("TROP_OUTPUT_FORMAT"); v != "" {
		return v
	}
	return "table"
}

// resolveDataDir determines the data directory housing trop.db and the
// user-global config.yaml (spec.md §6 persisted state layout): the
// --data-dir flag, then TROP_DATA_DIR, then $XDG_DATA_HOME/trop, then
// ~/.local/share/trop.
func resolveDataDir() (string, error) {
	if dataDirFlag != "" {
		return dataDirFlag, nil
	}
	if v := os.Getenv("TROP_DATA_DIR"); v != "" {
		return v, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "trop"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", model.WrapTropError(model.KindInternal, "resolving home directory", err)
	}
	return filepath.Join(home, ".local", "share", "trop"), nil
}

// loadConfig resolves the effective configuration for the current
// directory, applying the persistent flags as the highest-precedence
// caller-override layer (spec.md §3.2).
func loadConfig(dataDir, cwd string) (config.Config, error) {
	resolver := &config.Resolver{UserGlobalDir: dataDir, Getenv: os.Getenv}

	var opts []config.Option
	if forceFlag {
		opts = append(opts, config.WithForce(true))
	}
	if allowUnrelatedPathFlag {
		opts = append(opts, config.WithAllowUnrelatedPath(true))
	}
	if allowChangeFlag {
		opts = append(opts, config.WithAllowChange(true))
	}
	if allowChangeProjectFlag {
		opts = append(opts, config.WithAllowChangeProject(true))
	}
	if allowChangeTaskFlag {
		opts = append(opts, config.WithAllowChangeTask(true))
	}

	return config.Resolve(resolver, cwd, opts...)
}

// openStore opens the reservation store at dataDir/trop.db, honoring
// --busy-timeout (or its TROP_BUSY_TIMEOUT env fallback) and
// --disable-autoinit.
func openStore(dataDir string, cfg config.Config) (*store.Store, error) {
	lockWait := cfg.MaximumLockWaitSeconds
	if busyTimeoutFlag > 0 {
		lockWait = busyTimeoutFlag
	} else if v := os.Getenv("TROP_BUSY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			lockWait = n
		}
	}
	disableAutoinit := cfg.DisableAutoinit || disableAutoinitFlag

	return store.Open(filepath.Join(dataDir, "trop.db"), store.OpenOptions{
		MaximumLockWaitSeconds: lockWait,
		DisableAutoinit:        disableAutoinit,
	})
}

// firstNonEmpty returns the first non-empty string among its arguments,
// used to layer flag values over their env-var fallbacks (spec.md §3.2).
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// currentContext returns context.Background(). trop is a one-shot CLI;
// every operation runs to completion or fails, so there is no enclosing
// request context to thread through beyond this.
func currentContext() context.Context {
	return context.Background()
}

// now is the process-wide clock, overridden in tests that need a fixed
// instant.
var now = time.Now

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// NewValidateCommand creates the "validate" cobra command: parses and
// validates a single trop.yaml/trop.local.yaml in isolation, the way a
// pre-commit hook would before the file is ever merged into a real
// resolution chain.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a project config file in isolation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.ValidateFile(args[0])
			if err != nil {
				return err
			}
			Log.Infof("%s is valid", args[0])
			return nil
		},
	}
}

// NewExcludeCommand creates the "exclude" cobra command (spec.md §4.5):
// appends a port or "a..b" range to a config file's excluded_ports list.
func NewExcludeCommand() *cobra.Command {
	var global, force bool
	cmd := &cobra.Command{
		Use:   "exclude <port|a..b>",
		Short: "Add a port or range to excluded_ports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExclude(args[0], global, force)
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "write to the user-global config instead of the project config")
	cmd.Flags().BoolVar(&force, "force", false, "exclude even if the range currently covers a live reservation")
	return cmd
}

func runExclude(raw string, global, force bool) error {
	excl, err := config.ParseExclusionArg(raw)
	if err != nil {
		return model.WrapTropError(model.KindValidation, fmt.Sprintf("parsing %q", raw), err)
	}

	if !force {
		if err := checkExclusionConflicts(excl); err != nil {
			return err
		}
	}

	path, err := exclusionTargetPath(global)
	if err != nil {
		return err
	}
	if err := config.AddExclusion(path, excl); err != nil {
		return err
	}
	Log.Infof("added exclusion %s to %s", raw, path)
	return nil
}

// checkExclusionConflicts refuses to exclude a range that currently covers
// a live reservation, unless the caller passed --force.
func checkExclusionConflicts(excl model.PortExclusion) error {
	r, err := model.NewPortRange(excl.Start.Int(), excl.End.Int())
	if err != nil {
		return model.WrapTropError(model.KindInvalidPort, "exclusion range", err)
	}

	s, err := openDefaultStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ports, err := store.ReservedPortsInRange(currentContext(), s.DB(), r)
	if err != nil {
		return err
	}
	if len(ports) > 0 {
		return model.NewTropError(model.KindValidation,
			fmt.Sprintf("%d reservation(s) in range fall inside this exclusion; pass --force to exclude anyway", len(ports)))
	}
	return nil
}

// NewCompactExclusionsCommand creates the "compact-exclusions" cobra
// command (spec.md §4.5): sort and merge a config file's excluded_ports.
func NewCompactExclusionsCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "compact-exclusions <file>",
		Short: "Sort and merge a config file's excluded_ports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompactExclusions(args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the compacted result without writing it back")
	return cmd
}

func runCompactExclusions(path string, dryRun bool) error {
	result, err := config.CompactExclusions(path, dryRun)
	if err != nil {
		return err
	}

	Log.Infof("%d exclusion(s) -> %d after compaction", len(result.Before), len(result.After))
	for _, e := range result.After {
		if e.Start == e.End {
			Log.Infof("  %d", e.Start.Int())
		} else {
			Log.Infof("  %d..%d", e.Start.Int(), e.End.Int())
		}
	}
	return nil
}

// exclusionTargetPath returns the user-global config.yaml path when
// global is set, otherwise the project trop.yaml in the current
// directory — exclude/compact-exclusions act on a single named file, not
// the resolved, merged Config.
func exclusionTargetPath(global bool) (string, error) {
	if global {
		dataDir, err := resolveDataDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dataDir, "config.yaml"), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}
	return filepath.Join(cwd, "trop.yaml"), nil
}

// NewInitCommand creates the "init" cobra command: explicitly creates the
// data directory and store, for use with --disable-autoinit when a script
// wants initialization to be a distinct, visible step.
func NewInitCommand() *cobra.Command {
	var overwrite, withConfig, dryRun bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the trop data directory and store if they don't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(overwrite, withConfig, dryRun)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing store at the data directory instead of reusing it")
	cmd.Flags().BoolVar(&withConfig, "with-config", false, "also write a default config.yaml in the data directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without writing anything")
	return cmd
}

func runInit(overwrite, withConfig, dryRun bool) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	dbPath := filepath.Join(dataDir, "trop.db")
	configPath := filepath.Join(dataDir, "config.yaml")

	if dryRun {
		Log.Infof("would initialize trop store at %s", dataDir)
		if withConfig {
			Log.Infof("would write default config to %s", configPath)
		}
		return nil
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return model.WrapTropError(model.KindPathNotFound, fmt.Sprintf("creating %s", dataDir), err)
	}

	if overwrite {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return model.WrapTropError(model.KindPathNotFound, fmt.Sprintf("removing %s", dbPath), err)
		}
	}

	s, err := store.Open(dbPath, store.OpenOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if withConfig {
		if _, err := os.Stat(configPath); overwrite || os.IsNotExist(err) {
			if err := config.WriteDefaults(configPath); err != nil {
				return err
			}
		}
	}

	Log.Infof("initialized trop store at %s", dataDir)
	return nil
}

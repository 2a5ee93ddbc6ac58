package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/planner"
	"github.com/trop-dev/trop/internal/store"
)

type releaseFlags struct {
	path         string
	tag          string
	untaggedOnly bool
	recursive    bool
	dryRun       bool
}

// NewReleaseCommand creates the "release" cobra command (spec.md §4.8
// Release).
func NewReleaseCommand() *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release a reservation, freeing its port",
		Long: `release deletes the reservation at --path (and --tag, if given).
Releasing a path with no reservation is a no-op warning, not an error —
release is idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(flags)
		},
	}

	cmd.Flags().StringVar(&flags.path, "path", "", "path to release (default: current directory)")
	cmd.Flags().StringVar(&flags.tag, "tag", "", "release only the reservation under this tag")
	cmd.Flags().BoolVar(&flags.untaggedOnly, "untagged-only", false, "when --recursive, release only untagged reservations")
	cmd.Flags().BoolVar(&flags.recursive, "recursive", false, "release every reservation at or under --path")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print what would happen without committing")

	return cmd
}

func runRelease(flags *releaseFlags) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}

	path := flags.path
	if path == "" {
		path = cwd
	}
	path, err = pathutil.Normalize(path)
	if err != nil {
		return err
	}
	normalizedCWD, err := pathutil.Normalize(cwd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(dataDir, cwd)
	if err != nil {
		return err
	}
	s, err := openStore(dataDir, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var tag *string
	if flags.tag != "" {
		tag = &flags.tag
	}

	in := planner.ReleaseInput{
		Path:      path,
		CWD:       normalizedCWD,
		Tag:       tag,
		Recursive: flags.recursive,
	}

	ctx := currentContext()
	var plan planner.Plan
	err = s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var buildErr error
		plan, buildErr = planner.BuildReleasePlan(ctx, tx, cfg, in)
		if buildErr != nil {
			return buildErr
		}
		if flags.untaggedOnly && flags.recursive {
			plan.Actions = filterUntaggedDeletes(plan.Actions)
		}
		if flags.dryRun {
			return nil
		}
		return planner.Execute(ctx, tx, plan, now())
	})
	if err != nil {
		return err
	}

	for _, w := range plan.Warnings {
		Log.Warn(w)
	}
	if flags.dryRun {
		printDryRunPlan(plan)
		return nil
	}

	Log.Infof("released %d reservation(s) at %s", len(plan.Actions), path)
	return nil
}

// filterUntaggedDeletes narrows a recursive release plan's delete actions
// to untagged keys only, for --untagged-only.
func filterUntaggedDeletes(actions []planner.Action) []planner.Action {
	var out []planner.Action
	for _, a := range actions {
		if a.Kind != planner.ActionDeleteReservation || !a.Key.HasTag() {
			out = append(out, a)
		}
	}
	return out
}

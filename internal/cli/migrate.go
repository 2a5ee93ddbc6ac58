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

type migrateFlags struct {
	from      string
	to        string
	recursive bool
	force     bool
	dryRun    bool
}

// NewMigrateCommand creates the "migrate" cobra command (spec.md §4.8):
// move a reservation's path, preserving its port and sticky fields.
func NewMigrateCommand() *cobra.Command {
	flags := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move a reservation's path, keeping its port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(flags.from, flags.to, flags)
		},
	}

	cmd.Flags().StringVar(&flags.from, "from", "", "path to move reservations from (required)")
	cmd.Flags().StringVar(&flags.to, "to", "", "path to move reservations to (required)")
	cmd.Flags().BoolVar(&flags.recursive, "recursive", false, "move every reservation under --from, not just an exact match")
	cmd.Flags().BoolVar(&flags.force, "force", false, "overwrite reservations already present at the destination")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the plan without committing")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runMigrate(from, to string, flags *migrateFlags) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}

	from, err = pathutil.Normalize(from)
	if err != nil {
		return err
	}
	to, err = pathutil.Normalize(to)
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

	in := planner.MigrateInput{From: from, To: to, Recursive: flags.recursive, Force: flags.force}
	ctx := currentContext()
	moment := now()

	var plan planner.Plan
	err = s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var buildErr error
		plan, buildErr = planner.BuildMigratePlan(ctx, tx, cfg, in)
		if buildErr != nil {
			return buildErr
		}
		if flags.dryRun {
			return nil
		}
		return planner.Execute(ctx, tx, plan, moment)
	})
	if err != nil {
		return err
	}

	if flags.dryRun {
		printDryRunPlan(plan)
		return nil
	}

	for _, w := range plan.Warnings {
		Log.Warn(w)
	}
	Log.Infof("migrated %d reservation(s) from %s to %s", countRetags(plan), from, to)
	return nil
}

func countRetags(plan planner.Plan) int {
	n := 0
	for _, a := range plan.Actions {
		if a.Kind == planner.ActionRetagReservation {
			n++
		}
	}
	return n
}

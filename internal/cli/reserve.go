package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/planner"
	"github.com/trop-dev/trop/internal/store"
)

type reserveFlags struct {
	path    string
	tag     string
	project string
	task    string
	port    int
	min     int
	max     int
	dryRun  bool

	ignoreOccupied   bool
	ignoreExclusions bool
}

// NewReserveCommand creates the "reserve" cobra command (spec.md §4.8
// Reserve, surfaced at §6).
func NewReserveCommand() *cobra.Command {
	flags := &reserveFlags{}

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a port for a path, or return its existing reservation",
		Long: `reserve binds a host port to the current (or --path) directory. If a
reservation already exists for that path and tag, its last_used_at is
refreshed and the existing port is returned unchanged — reservations are
sticky. Otherwise a fresh port is allocated from the configured range.

The allocated port is printed to stdout as a bare integer, so
PORT=$(trop reserve) works directly in shell scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReserve(flags)
		},
	}

	cmd.Flags().StringVar(&flags.path, "path", "", "path to reserve for (default: current directory)")
	cmd.Flags().StringVar(&flags.tag, "tag", "", "optional tag distinguishing multiple reservations at one path")
	cmd.Flags().StringVar(&flags.project, "project", "", "sticky project label")
	cmd.Flags().StringVar(&flags.task, "task", "", "sticky task label")
	cmd.Flags().IntVar(&flags.port, "port", 0, "request this specific port instead of scanning the range")
	cmd.Flags().IntVar(&flags.min, "min", 0, "override the port range minimum for this call")
	cmd.Flags().IntVar(&flags.max, "max", 0, "override the port range maximum for this call")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print what would happen without committing")
	cmd.Flags().BoolVar(&flags.ignoreOccupied, "ignore-occupied", false, "allocate even if the preferred port appears occupied")
	cmd.Flags().BoolVar(&flags.ignoreExclusions, "ignore-exclusions", false, "allow allocating an excluded port")

	return cmd
}

func runReserve(flags *reserveFlags) error {
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
		path = os.Getenv("TROP_PATH")
	}
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
	if flags.min > 0 || flags.max > 0 {
		min, max := cfg.PortRange.Min.Int(), cfg.PortRange.Max.Int()
		if flags.min > 0 {
			min = flags.min
		}
		if flags.max > 0 {
			max = flags.max
		}
		r, err := model.NewPortRange(min, max)
		if err != nil {
			return err
		}
		cfg.PortRange = r
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
	var preferred *model.Port
	if flags.port > 0 {
		p, err := model.NewPort(flags.port)
		if err != nil {
			return err
		}
		preferred = &p
	}
	var project, task *string
	if p := firstNonEmpty(flags.project, os.Getenv("TROP_PROJECT")); p != "" {
		project = &p
	}
	if t := firstNonEmpty(flags.task, os.Getenv("TROP_TASK")); t != "" {
		task = &t
	}

	in := planner.ReserveInput{
		Path:             path,
		CWD:              normalizedCWD,
		Tag:              tag,
		Preferred:        preferred,
		Project:          project,
		Task:             task,
		IgnoreOccupied:   flags.ignoreOccupied,
		IgnoreExclusions: flags.ignoreExclusions,
	}

	checker := occupancy.NewOSChecker()
	ctx := currentContext()
	moment := now()

	var plan planner.Plan
	err = s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var buildErr error
		plan, buildErr = planner.BuildReservePlan(ctx, tx, cfg, checker, in, moment)
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

	for _, w := range plan.Warnings {
		Log.Warn(w)
	}

	if flags.dryRun {
		printDryRunPlan(plan)
		return nil
	}

	key, err := model.NewReservationKey(in.Path, tag)
	if err != nil {
		return err
	}
	reservation, err := store.GetByKey(ctx, s.DB(), key)
	if err != nil {
		return err
	}
	if reservation == nil {
		return model.NewTropError(model.KindInternal, "reservation vanished immediately after commit")
	}
	printPort(reservation.Port)
	return nil
}

// printDryRunPlan reports a plan's actions and warnings to stderr without
// committing anything, per spec.md §4.8's dry-run contract.
func printDryRunPlan(plan planner.Plan) {
	Log.Infof("%s", plan.Description)
	if plan.IsNoop() {
		Log.Info("no changes would be made")
		return
	}
	for _, a := range plan.Actions {
		Log.Infof("would %s", a.Kind)
	}
}

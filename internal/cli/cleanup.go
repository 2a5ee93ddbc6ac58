package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/cleanup"
	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// NewPruneCommand creates the "prune" cobra command (spec.md §4.7).
func NewPruneCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove reservations whose path no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanupCommand(dryRun, func(ctx context.Context, tx *store.Tx, cfg config.Config) (cleanup.Result, error) {
				return cleanup.Prune(ctx, tx, dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without committing")
	return cmd
}

// NewExpireCommand creates the "expire" cobra command (spec.md §4.7).
func NewExpireCommand() *cobra.Command {
	var dryRun bool
	var days int
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Remove reservations unused for longer than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanupCommand(dryRun, func(ctx context.Context, tx *store.Tx, cfg config.Config) (cleanup.Result, error) {
				return cleanup.Expire(ctx, tx, effectiveExpireDays(days, cfg), dryRun)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "override expire_after_days for this call")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without committing")
	return cmd
}

// NewAutocleanCommand creates the "autoclean" cobra command (spec.md
// §4.7: prune then expire, aggregated).
func NewAutocleanCommand() *cobra.Command {
	var dryRun bool
	var days int
	cmd := &cobra.Command{
		Use:   "autoclean",
		Short: "Prune, then expire, reporting the combined removals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanupCommand(dryRun, func(ctx context.Context, tx *store.Tx, cfg config.Config) (cleanup.Result, error) {
				return cleanup.Autoclean(ctx, tx, effectiveExpireDays(days, cfg), dryRun)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "override expire_after_days for this call")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without committing")
	return cmd
}

// effectiveExpireDays lets --days=0 (the flag's zero value) fall through to
// the resolved config instead of silently disabling expiry.
func effectiveExpireDays(days int, cfg config.Config) int {
	if days > 0 {
		return days
	}
	return cfg.ExpireAfterDays
}

// runCleanupCommand opens the store, resolves config (so expire_after_days
// defaults apply when a command's --days flag is left at 0), runs fn
// inside a write transaction, and prints the result.
func runCleanupCommand(dryRun bool, fn func(ctx context.Context, tx *store.Tx, cfg config.Config) (cleanup.Result, error)) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
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

	ctx := currentContext()
	var result cleanup.Result
	err = s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var innerErr error
		result, innerErr = fn(ctx, tx, cfg)
		return innerErr
	})
	if err != nil {
		return err
	}

	printCleanupResult(result)
	return nil
}

func printCleanupResult(result cleanup.Result) {
	if outputFormat() == "json" {
		rows := make([]reservationRow, 0, result.Count())
		for _, r := range result.Removed {
			rows = append(rows, toReservationRow(r))
		}
		printJSON(struct {
			DryRun  bool              `json:"dry_run"`
			Removed []reservationRow `json:"removed"`
		}{DryRun: result.DryRun, Removed: rows})
		return
	}

	verb := "removed"
	if result.DryRun {
		verb = "would remove"
	}
	Log.Infof("%s %d reservation(s)", verb, result.Count())
	for _, r := range result.Removed {
		Log.Infof("  %s (port %s)", r.Key, r.Port)
	}
}

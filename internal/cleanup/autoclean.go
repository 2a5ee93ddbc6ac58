package cleanup

import (
	"context"

	"github.com/trop-dev/trop/internal/store"
)

// Autoclean runs prune then expire against the same transaction and
// aggregates both removal lists (spec.md §4.7). Running prune first means
// a reservation whose path has vanished is reported as pruned even if it
// would also have expired.
func Autoclean(ctx context.Context, tx *store.Tx, expireAfterDays int, dryRun bool) (Result, error) {
	pruned, err := Prune(ctx, tx, dryRun)
	if err != nil {
		return Result{}, err
	}

	expired, err := Expire(ctx, tx, expireAfterDays, dryRun)
	if err != nil {
		return Result{}, err
	}

	seen := make(map[[2]string]bool, len(pruned.Removed))
	for _, r := range pruned.Removed {
		seen[[2]string{r.Key.Path, r.Key.TagOrEmpty()}] = true
	}
	removed := pruned.Removed
	for _, r := range expired.Removed {
		if !seen[[2]string{r.Key.Path, r.Key.TagOrEmpty()}] {
			removed = append(removed, r)
		}
	}

	return Result{
		Removed: removed,
		DryRun:  dryRun,
	}, nil
}

package cleanup

import (
	"context"
	"os"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// Prune removes every reservation whose path no longer exists as a
// directory (spec.md §4.7). A stat error other than NotFound never counts
// as grounds for removal — fail-open, preferring a stale reservation over
// destroying a live one on a transient filesystem hiccup.
func Prune(ctx context.Context, tx *store.Tx, dryRun bool) (Result, error) {
	reservations, err := store.All(ctx, tx)
	if err != nil {
		return Result{}, err
	}

	var removed []model.Reservation
	for _, r := range reservations {
		if !pathGone(r.Key.Path) {
			continue
		}
		if !dryRun {
			if _, err := store.DeleteReservation(ctx, tx, r.Key); err != nil {
				return Result{}, err
			}
		}
		removed = append(removed, r)
	}

	return Result{Removed: removed, DryRun: dryRun}, nil
}

// pathGone reports whether path does not currently exist as a directory.
func pathGone(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	return !info.IsDir()
}

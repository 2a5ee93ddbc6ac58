package cleanup

import (
	"context"
	"time"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// currentTime is a var so tests can substitute a fixed clock.
var currentTime = time.Now

// Expire removes every reservation whose last_used_at predates
// now - expireAfterDays (spec.md §4.7). expireAfterDays <= 0 means expiry
// is disabled and Expire is a no-op.
func Expire(ctx context.Context, tx *store.Tx, expireAfterDays int, dryRun bool) (Result, error) {
	if expireAfterDays <= 0 {
		return Result{DryRun: dryRun}, nil
	}

	cutoff := currentTime().Add(-time.Duration(expireAfterDays) * 24 * time.Hour)
	expired, err := store.ExpiredBefore(ctx, tx, cutoff)
	if err != nil {
		return Result{}, err
	}

	var removed []model.Reservation
	for _, r := range expired {
		if !dryRun {
			if _, err := store.DeleteReservation(ctx, tx, r.Key); err != nil {
				return Result{}, err
			}
		}
		removed = append(removed, r)
	}

	return Result{Removed: removed, DryRun: dryRun}, nil
}

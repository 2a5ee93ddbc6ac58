package allocator

import (
	"context"
	"time"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// AllocateSingle implements the single-port allocation algorithm of
// spec.md §4.6: if a preferred port is given, it is checked on its own and
// either accepted or reported PreferredUnavailable with the reason — the
// allocator never silently substitutes another port for an explicit
// preference. Otherwise it scans the configured range in ascending order
// and returns the first available port, or Exhausted if none is free.
func AllocateSingle(ctx context.Context, d Deps, preferred *model.Port) (SingleResult, error) {
	if preferred != nil {
		ok, reason, err := checkAvailability(ctx, d, *preferred)
		if err != nil {
			return SingleResult{}, err
		}
		if ok {
			return SingleResult{Kind: Allocated, Port: *preferred}, nil
		}
		return SingleResult{Kind: PreferredUnavailable, Port: *preferred, Reason: reason}, nil
	}

	for p := d.Config.PortRange.Min; p <= d.Config.PortRange.Max; p++ {
		ok, _, err := checkAvailability(ctx, d, p)
		if err != nil {
			return SingleResult{}, err
		}
		if ok {
			return SingleResult{Kind: Allocated, Port: p}, nil
		}
	}

	suggested, err := cleanupSuggested(ctx, d)
	if err != nil {
		return SingleResult{}, err
	}
	return SingleResult{Kind: Exhausted, CleanupSuggested: suggested}, nil
}

// cleanupSuggested reports whether any reservation looks stale enough that
// a prune/expire pass might free ports, per Open Question decision #1: the
// heuristic is last_used_at age only, no filesystem stat.
func cleanupSuggested(ctx context.Context, d Deps) (bool, error) {
	days := d.Config.ExpireAfterDays
	if days <= 0 {
		return false, nil
	}
	cutoff := currentTime().Add(-time.Duration(days) * 24 * time.Hour)
	return store.AnyExpired(ctx, d.Queryable, cutoff)
}

// currentTime is a var so tests can substitute a fixed clock.
var currentTime = time.Now

package cleanup

import "github.com/trop-dev/trop/internal/model"

// Result is the outcome of prune, expire, or autoclean: the reservations
// that were removed (or, in dry-run mode, that would have been).
type Result struct {
	Removed []model.Reservation
	DryRun  bool
}

// Count returns how many reservations were (or would be) removed.
func (r Result) Count() int {
	return len(r.Removed)
}

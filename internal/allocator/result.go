package allocator

import "github.com/trop-dev/trop/internal/model"

// ResultKind classifies the outcome of a single-port allocation attempt
// (spec.md §4.6: Allocated(port) | PreferredUnavailable{port, reason} |
// Exhausted{cleanup_suggested}).
type ResultKind string

const (
	Allocated            ResultKind = "allocated"
	PreferredUnavailable ResultKind = "preferred_unavailable"
	Exhausted            ResultKind = "exhausted"
)

// UnavailableReason explains why a preferred port could not be used.
type UnavailableReason string

const (
	ReasonReserved UnavailableReason = "reserved"
	ReasonExcluded UnavailableReason = "excluded"
	ReasonOccupied UnavailableReason = "occupied"
)

// SingleResult is the outcome of AllocateSingle.
type SingleResult struct {
	Kind             ResultKind
	Port             model.Port
	Reason           UnavailableReason
	CleanupSuggested bool
}

// GroupResult is the outcome of AllocateGroup: either a complete tag→port
// binding, or a failure reason. There is no partial allocation (spec.md
// §4.6).
type GroupResult struct {
	Ports            map[string]model.Port
	Failed           bool
	FailureReason    string
	CleanupSuggested bool
}

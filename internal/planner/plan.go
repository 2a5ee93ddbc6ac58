package planner

import "github.com/trop-dev/trop/internal/model"

// ActionKind identifies one primitive store mutation (spec.md §4.8's
// PlanAction vocabulary, mapped onto the concrete internal/store helpers
// that implement each case).
type ActionKind string

const (
	ActionCreateReservation ActionKind = "create_reservation"
	ActionUpdateMetadata    ActionKind = "update_metadata"
	ActionUpdateLastUsed    ActionKind = "update_last_used"
	ActionRetagReservation  ActionKind = "retag_reservation"
	ActionDeleteReservation ActionKind = "delete_reservation"
)

// Action is one step of a Plan. Only the fields relevant to Kind are set.
type Action struct {
	Kind ActionKind

	// Reservation is the full record for ActionCreateReservation.
	Reservation model.Reservation

	// Key addresses the target row for every kind except Create.
	Key model.ReservationKey

	// NewKey is the destination key for ActionRetagReservation.
	NewKey model.ReservationKey

	// Project and Task carry the new sticky values for ActionUpdateMetadata.
	Project *string
	Task    *string
}

// Plan is an ordered, immutable description of the database mutations one
// operation will make, plus any warnings surfaced during construction
// (spec.md §4.8). A Plan with no Actions is a legal no-op, e.g. releasing
// a path that was never reserved.
type Plan struct {
	Description string
	Actions     []Action
	Warnings    []string
}

// IsNoop reports whether this plan has no effect on the store.
func (p Plan) IsNoop() bool {
	return len(p.Actions) == 0
}

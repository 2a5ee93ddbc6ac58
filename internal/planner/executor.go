package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/trop-dev/trop/internal/store"
)

// Execute applies every action in plan, in order, against tx. The caller
// is responsible for the surrounding write transaction and for deciding
// whether to skip Execute entirely in dry-run mode (spec.md §4.8: a
// dry-run plan is built but never executed).
func Execute(ctx context.Context, tx *store.Tx, plan Plan, now time.Time) error {
	for _, a := range plan.Actions {
		var err error
		switch a.Kind {
		case ActionCreateReservation:
			err = store.InsertReservation(ctx, tx, a.Reservation)
		case ActionUpdateMetadata:
			err = store.UpdateProjectTask(ctx, tx, a.Key, a.Project, a.Task)
		case ActionUpdateLastUsed:
			err = store.TouchReservation(ctx, tx, a.Key, now)
		case ActionRetagReservation:
			err = store.RetagReservation(ctx, tx, a.Key, a.NewKey)
		case ActionDeleteReservation:
			_, err = store.DeleteReservation(ctx, tx, a.Key)
		default:
			err = fmt.Errorf("planner: unknown action kind %q", a.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

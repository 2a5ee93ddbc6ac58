package planner

import (
	"context"
	"fmt"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/store"
)

// ReleaseInput describes one release operation (spec.md §4.8).
type ReleaseInput struct {
	Path      string
	CWD       string
	Tag       *string
	Recursive bool
}

// BuildReleasePlan implements release plan construction: validate path
// relationship, then either delete every reservation at or under Path
// (Recursive) or the single reservation at the exact key. Release is
// idempotent — a missing reservation is a warning, not an error.
func BuildReleasePlan(ctx context.Context, tx *store.Tx, cfg config.Config, in ReleaseInput) (Plan, error) {
	plan := Plan{Description: fmt.Sprintf("release %s", in.Path)}

	if !cfg.EffectiveAllowUnrelatedPath() {
		if rel := pathutil.PathRelationship(in.CWD, in.Path); rel.RequiresOverride() {
			return Plan{}, model.NewTropError(model.KindPathRelationshipViolation,
				fmt.Sprintf("%s is unrelated to the current directory %s", in.Path, in.CWD))
		}
	}

	if in.Recursive {
		matches, err := store.List(ctx, tx, store.ListFilter{PathPrefix: in.Path})
		if err != nil {
			return Plan{}, err
		}
		if len(matches) == 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("no reservations found at or under %s", in.Path))
			return plan, nil
		}
		for _, r := range matches {
			plan.Actions = append(plan.Actions, Action{Kind: ActionDeleteReservation, Key: r.Key})
		}
		return plan, nil
	}

	key, err := model.NewReservationKey(in.Path, in.Tag)
	if err != nil {
		return Plan{}, err
	}
	existing, err := store.GetByKey(ctx, tx, key)
	if err != nil {
		return Plan{}, err
	}
	if existing == nil {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("no reservation found for %s", key))
		return plan, nil
	}
	plan.Actions = append(plan.Actions, Action{Kind: ActionDeleteReservation, Key: key})
	return plan, nil
}

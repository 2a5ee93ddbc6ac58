package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// MigrateInput describes one migrate operation (spec.md §4.8).
type MigrateInput struct {
	From      string
	To        string
	Recursive bool
	Force     bool
}

// BuildMigratePlan implements migrate plan construction: collect every
// reservation at From (exact, or prefix when Recursive), compute each
// one's new path under To, and fail on any pre-existing conflict unless
// Force. Ports and every other field are preserved — migrate only moves
// the path.
func BuildMigratePlan(ctx context.Context, tx *store.Tx, cfg config.Config, in MigrateInput) (Plan, error) {
	plan := Plan{Description: fmt.Sprintf("migrate %s -> %s", in.From, in.To)}

	sources, err := sourceRecords(ctx, tx, in.From, in.Recursive)
	if err != nil {
		return Plan{}, err
	}
	if len(sources) == 0 {
		if !in.Recursive {
			return Plan{}, model.NewTropError(model.KindSemanticFailure,
				fmt.Sprintf("no reservation found at %s", in.From))
		}
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("no reservations found at %s", describeSource(in)))
		return plan, nil
	}

	type move struct {
		oldKey model.ReservationKey
		newKey model.ReservationKey
	}
	var moves []move
	var conflicts []model.ReservationKey

	for _, r := range sources {
		newPath := in.To + strings.TrimPrefix(r.Key.Path, in.From)
		newKey, err := model.NewReservationKey(newPath, r.Key.Tag)
		if err != nil {
			return Plan{}, err
		}

		existing, err := store.GetByKey(ctx, tx, newKey)
		if err != nil {
			return Plan{}, err
		}
		if existing != nil && !existing.Key.Equal(r.Key) {
			conflicts = append(conflicts, newKey)
		}

		moves = append(moves, move{oldKey: r.Key, newKey: newKey})
	}

	if len(conflicts) > 0 && !in.Force && !cfg.Force {
		return Plan{}, model.NewTropError(model.KindSemanticFailure,
			fmt.Sprintf("migrate %s -> %s: %d destination conflict(s), rerun with force to overwrite", in.From, in.To, len(conflicts)))
	}

	for _, c := range conflicts {
		plan.Actions = append(plan.Actions, Action{Kind: ActionDeleteReservation, Key: c})
	}
	for _, m := range moves {
		plan.Actions = append(plan.Actions, Action{Kind: ActionRetagReservation, Key: m.oldKey, NewKey: m.newKey})
	}

	return plan, nil
}

func sourceRecords(ctx context.Context, tx *store.Tx, from string, recursive bool) ([]model.Reservation, error) {
	if recursive {
		return store.List(ctx, tx, store.ListFilter{PathPrefix: from})
	}

	all, err := store.List(ctx, tx, store.ListFilter{PathPrefix: from})
	if err != nil {
		return nil, err
	}
	var exact []model.Reservation
	for _, r := range all {
		if r.Key.Path == from {
			exact = append(exact, r)
		}
	}
	return exact, nil
}

func describeSource(in MigrateInput) string {
	if in.Recursive {
		return in.From + " (recursive)"
	}
	return in.From
}

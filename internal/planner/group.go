package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/trop-dev/trop/internal/allocator"
	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/store"
)

// GroupInput describes one reserve-group operation (spec.md §4.6, §4.8).
// Each service in cfg.Reservations becomes a reservation at Path tagged
// with the service's tag, sharing one GroupID.
type GroupInput struct {
	Path    string
	CWD     string
	Project *string
	Task    *string
}

// BuildGroupPlan implements reserve-group plan construction: if every
// service in the template is already reserved at Path, touch them all; if
// none are, run AllocateGroup and create all of them under a shared
// GroupID. A partial match — some services reserved, some not — is a
// GroupAllocationFailed, since the template can no longer allocate
// atomically around the ones already bound.
func BuildGroupPlan(ctx context.Context, tx *store.Tx, cfg config.Config, checker occupancy.Checker, in GroupInput, now time.Time) (Plan, error) {
	plan := Plan{Description: fmt.Sprintf("reserve-group %s", in.Path)}

	if cfg.Reservations == nil || len(cfg.Reservations.Services) == 0 {
		return Plan{}, model.NewTropError(model.KindConfiguration, "reserve-group requires a non-empty reservations template in project config")
	}

	if !cfg.EffectiveAllowUnrelatedPath() {
		if rel := pathutil.PathRelationship(in.CWD, in.Path); rel.RequiresOverride() {
			return Plan{}, model.NewTropError(model.KindPathRelationshipViolation,
				fmt.Sprintf("%s is unrelated to the current directory %s", in.Path, in.CWD))
		}
	}

	existingByTag := make(map[string]*model.Reservation, len(cfg.Reservations.Services))
	for _, svc := range cfg.Reservations.Services {
		tag := svc.Tag
		key, err := model.NewReservationKey(in.Path, &tag)
		if err != nil {
			return Plan{}, err
		}
		existing, err := store.GetByKey(ctx, tx, key)
		if err != nil {
			return Plan{}, err
		}
		if existing != nil {
			existingByTag[svc.Tag] = existing
		}
	}

	switch len(existingByTag) {
	case len(cfg.Reservations.Services):
		for _, svc := range cfg.Reservations.Services {
			tag := svc.Tag
			key, _ := model.NewReservationKey(in.Path, &tag)
			plan.Actions = append(plan.Actions, Action{Kind: ActionUpdateLastUsed, Key: key})
		}
		return plan, nil

	case 0:
		return buildGroupCreatePlan(ctx, tx, plan, cfg, checker, in, now)

	default:
		return Plan{}, model.NewTropError(model.KindGroupAllocationFailed,
			fmt.Sprintf("%s has a partial group reservation (%d of %d services already bound)", in.Path, len(existingByTag), len(cfg.Reservations.Services)))
	}
}

func buildGroupCreatePlan(ctx context.Context, tx *store.Tx, plan Plan, cfg config.Config, checker occupancy.Checker, in GroupInput, now time.Time) (Plan, error) {
	deps := allocator.Deps{Queryable: tx, Config: cfg, Checker: checker}

	result, err := allocator.AllocateGroup(ctx, deps, *cfg.Reservations)
	if err != nil {
		return Plan{}, err
	}

	if result.Failed {
		if result.CleanupSuggested && !cfg.DisableAutoprune {
			if err := runCleanup(ctx, tx, cfg); err != nil {
				return Plan{}, err
			}
			result, err = allocator.AllocateGroup(ctx, deps, *cfg.Reservations)
			if err != nil {
				return Plan{}, err
			}
		}
		if result.Failed {
			return Plan{}, model.NewTropError(model.KindGroupAllocationFailed,
				fmt.Sprintf("no base satisfies the group pattern at %s (cleanup already attempted)", in.Path))
		}
	}

	groupID := model.NewGroupID()
	for _, svc := range cfg.Reservations.Services {
		tag := svc.Tag
		key, err := model.NewReservationKey(in.Path, &tag)
		if err != nil {
			return Plan{}, err
		}
		record := model.Reservation{
			Key:        key,
			Port:       result.Ports[svc.Tag],
			Project:    in.Project,
			Task:       in.Task,
			CreatedAt:  now,
			LastUsedAt: now,
			GroupID:    &groupID,
		}
		plan.Actions = append(plan.Actions, Action{Kind: ActionCreateReservation, Reservation: record})
	}

	return plan, nil
}

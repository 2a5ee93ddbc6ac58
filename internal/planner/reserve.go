package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/trop-dev/trop/internal/allocator"
	"github.com/trop-dev/trop/internal/cleanup"
	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/store"
)

// ReserveInput is everything a reserve plan needs beyond the effective
// config and an occupancy checker.
type ReserveInput struct {
	Path             string
	CWD              string
	Tag              *string
	Preferred        *model.Port
	Project          *string
	Task             *string
	IgnoreOccupied   bool
	IgnoreExclusions bool
}

// BuildReservePlan implements the reserve plan construction of spec.md
// §4.8: validate path relationship, branch on whether a reservation
// already exists for the key, and either emit a last-used touch (plus a
// metadata update if sticky fields changed) or allocate a fresh port.
func BuildReservePlan(ctx context.Context, tx *store.Tx, cfg config.Config, checker occupancy.Checker, in ReserveInput, now time.Time) (Plan, error) {
	plan := Plan{Description: fmt.Sprintf("reserve %s", in.Path)}

	if !cfg.EffectiveAllowUnrelatedPath() {
		if rel := pathutil.PathRelationship(in.CWD, in.Path); rel.RequiresOverride() {
			return Plan{}, model.NewTropError(model.KindPathRelationshipViolation,
				fmt.Sprintf("%s is unrelated to the current directory %s", in.Path, in.CWD))
		}
	}

	key, err := model.NewReservationKey(in.Path, in.Tag)
	if err != nil {
		return Plan{}, err
	}

	existing, err := store.GetByKey(ctx, tx, key)
	if err != nil {
		return Plan{}, err
	}

	if existing != nil {
		return buildReserveUpdatePlan(plan, key, *existing, cfg, in)
	}

	return buildReserveCreatePlan(ctx, tx, plan, key, cfg, checker, in, now)
}

// buildReserveUpdatePlan handles the "reservation already exists" branch:
// validate sticky fields, then touch last_used_at and, if metadata
// actually changed, update it too.
func buildReserveUpdatePlan(plan Plan, key model.ReservationKey, existing model.Reservation, cfg config.Config, in ReserveInput) (Plan, error) {
	if in.Project != nil && existing.Project != nil && *in.Project != *existing.Project && !cfg.EffectiveAllowChangeProject() {
		return Plan{}, model.NewTropError(model.KindStickyFieldChange,
			fmt.Sprintf("project for %s is %q, refusing to change to %q without allow_change_project", key, *existing.Project, *in.Project))
	}
	if in.Task != nil && existing.Task != nil && *in.Task != *existing.Task && !cfg.EffectiveAllowChangeTask() {
		return Plan{}, model.NewTropError(model.KindStickyFieldChange,
			fmt.Sprintf("task for %s is %q, refusing to change to %q without allow_change_task", key, *existing.Task, *in.Task))
	}

	plan.Actions = append(plan.Actions, Action{Kind: ActionUpdateLastUsed, Key: key})

	project, task := existing.Project, existing.Task
	changed := false
	if in.Project != nil && (existing.Project == nil || *in.Project != *existing.Project) {
		project, changed = in.Project, true
	}
	if in.Task != nil && (existing.Task == nil || *in.Task != *existing.Task) {
		task, changed = in.Task, true
	}
	if changed {
		plan.Actions = append(plan.Actions, Action{Kind: ActionUpdateMetadata, Key: key, Project: project, Task: task})
	}

	return plan, nil
}

// buildReserveCreatePlan handles the "no existing reservation" branch: run
// the allocator, retry once after cleanup on Exhausted, and emit a single
// CreateReservation action.
func buildReserveCreatePlan(ctx context.Context, tx *store.Tx, plan Plan, key model.ReservationKey, cfg config.Config, checker occupancy.Checker, in ReserveInput, now time.Time) (Plan, error) {
	deps := allocator.Deps{
		Queryable:        tx,
		Config:           cfg,
		Checker:          checker,
		IgnoreOccupied:   in.IgnoreOccupied,
		IgnoreExclusions: in.IgnoreExclusions,
	}

	scanArgs := in.Preferred
	result, err := allocator.AllocateSingle(ctx, deps, scanArgs)
	if err != nil {
		return Plan{}, err
	}

	if result.Kind == allocator.PreferredUnavailable {
		if !in.IgnoreOccupied && !cfg.Force {
			return Plan{}, model.NewTropError(model.KindPortUnavailable,
				fmt.Sprintf("preferred port %s unavailable (%s)", result.Port, result.Reason))
		}
		scanArgs = nil
		result, err = allocator.AllocateSingle(ctx, deps, scanArgs)
		if err != nil {
			return Plan{}, err
		}
	}

	if result.Kind == allocator.Exhausted {
		if result.CleanupSuggested && !cfg.DisableAutoprune {
			if err := runCleanup(ctx, tx, cfg); err != nil {
				return Plan{}, err
			}
			result, err = allocator.AllocateSingle(ctx, deps, scanArgs)
			if err != nil {
				return Plan{}, err
			}
		}
		if result.Kind == allocator.Exhausted {
			return Plan{}, model.NewTropError(model.KindPortExhausted,
				fmt.Sprintf("no available port in range %s-%s (cleanup already attempted)", cfg.PortRange.Min, cfg.PortRange.Max))
		}
	}

	if result.Kind != allocator.Allocated {
		return Plan{}, model.NewTropError(model.KindInternal,
			fmt.Sprintf("allocator returned unexpected result %v for %s", result.Kind, key))
	}

	record := model.Reservation{
		Key:        key,
		Port:       result.Port,
		Project:    in.Project,
		Task:       in.Task,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	plan.Actions = append(plan.Actions, Action{Kind: ActionCreateReservation, Reservation: record})
	return plan, nil
}

// runCleanup runs prune (unless disabled) and expire (unless disabled or
// unconfigured) once, per the §4.6 cleanup retry rule.
func runCleanup(ctx context.Context, tx *store.Tx, cfg config.Config) error {
	expireDays := cfg.ExpireAfterDays
	if cfg.DisableAutoexpire {
		expireDays = 0
	}
	if cfg.DisableAutoprune {
		_, err := cleanup.Expire(ctx, tx, expireDays, false)
		return err
	}
	_, err := cleanup.Autoclean(ctx, tx, expireDays, false)
	return err
}

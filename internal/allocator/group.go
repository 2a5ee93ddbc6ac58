package allocator

import (
	"context"
	"fmt"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
)

// candidatePorts is one scan attempt: every service tag bound to its
// resulting port, in the template's declared order.
type candidatePorts struct {
	ports map[string]model.Port
	order []string
}

// AllocateGroup implements the group-allocation algorithm of spec.md §4.6:
// scan candidate bases in ascending order and return the first base for
// which every service's resulting port (b+offset, or its explicit
// preferred override) is simultaneously available. The whole group either
// allocates or fails; there is no partial allocation.
func AllocateGroup(ctx context.Context, d Deps, tmpl config.GroupTemplate) (GroupResult, error) {
	bases, err := candidateBases(d, tmpl)
	if err != nil {
		return GroupResult{}, err
	}

	// A pinned base leaves exactly one candidate, so a collision between a
	// preferred port and another service's offset is unambiguously a
	// malformed template, not a base that merely doesn't fit. When
	// scanning a range, the same collision just rules out that one base.
	pinned := tmpl.Base != nil

	for _, b := range bases {
		cand, skip, err := resolveCandidate(tmpl, b, pinned)
		if err != nil {
			return GroupResult{}, err
		}
		if skip {
			continue
		}

		ok, err := groupFits(ctx, d, cand)
		if err != nil {
			return GroupResult{}, err
		}
		if ok {
			return GroupResult{Ports: cand.ports}, nil
		}
	}

	suggested, err := cleanupSuggested(ctx, d)
	if err != nil {
		return GroupResult{}, err
	}
	return GroupResult{Failed: true, FailureReason: "no base in range satisfies the group pattern", CleanupSuggested: suggested}, nil
}

// candidateBases returns the bases to try, in order: just Base if the
// template pins one, otherwise every port in the configured range.
func candidateBases(d Deps, tmpl config.GroupTemplate) ([]model.Port, error) {
	if tmpl.Base != nil {
		return []model.Port{*tmpl.Base}, nil
	}

	var bases []model.Port
	for p := d.Config.PortRange.Min; p <= d.Config.PortRange.Max; p++ {
		bases = append(bases, p)
	}
	return bases, nil
}

// resolveCandidate binds every service to b+offset, except services with an
// explicit Preferred port, which are bound to that port instead. A
// collision between two services' resolved ports rules this base out
// (skip=true) unless the base itself was pinned by config, in which case
// there is no other base to fall back to and the collision is a hard
// error.
func resolveCandidate(tmpl config.GroupTemplate, b model.Port, pinned bool) (cand candidatePorts, skip bool, err error) {
	cand = candidatePorts{ports: make(map[string]model.Port, len(tmpl.Services))}
	seen := make(map[model.Port]string, len(tmpl.Services))

	for _, svc := range tmpl.Services {
		var port model.Port
		if svc.Preferred != nil {
			port = *svc.Preferred
		} else {
			raw := b.Int() + svc.Offset
			p, err := model.NewPort(raw)
			if err != nil {
				if pinned {
					return candidatePorts{}, false, fmt.Errorf("service %q: %w", svc.Tag, err)
				}
				return candidatePorts{}, true, nil
			}
			port = p
		}

		if other, dup := seen[port]; dup {
			if pinned {
				return candidatePorts{}, false, model.NewTropError(model.KindValidation,
					fmt.Sprintf("services %q and %q both resolve to port %d at base %d: inconsistent base+preferred", other, svc.Tag, port.Int(), b.Int()))
			}
			return candidatePorts{}, true, nil
		}
		seen[port] = svc.Tag

		cand.ports[svc.Tag] = port
		cand.order = append(cand.order, svc.Tag)
	}

	return cand, false, nil
}

// groupFits reports whether every port in cand passes the single-allocation
// availability tests. It does not persist anything — the caller reserves
// the whole group atomically once a fitting base is found.
func groupFits(ctx context.Context, d Deps, cand candidatePorts) (bool, error) {
	for _, tag := range cand.order {
		ok, _, err := checkAvailability(ctx, d, cand.ports[tag])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

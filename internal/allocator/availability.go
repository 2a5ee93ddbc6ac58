package allocator

import (
	"context"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/store"

	"github.com/trop-dev/trop/internal/model"
)

// Deps bundles the dependencies an allocation needs: a view of the store
// (run inside the caller's write transaction), the effective config, and
// an occupancy checker. ignoreOccupied/ignoreExclusions mirror the
// single-allocation flags in spec.md §4.6.
type Deps struct {
	Queryable        store.Queryable
	Config           config.Config
	Checker          occupancy.Checker
	IgnoreOccupied   bool
	IgnoreExclusions bool
}

// checkAvailability runs the three-layer test spec.md §4.6 mandates, in
// order: reserved-in-store, excluded, occupied (unless ignored).
func checkAvailability(ctx context.Context, d Deps, port model.Port) (bool, UnavailableReason, error) {
	reserved, err := store.IsPortReserved(ctx, d.Queryable, port)
	if err != nil {
		return false, "", err
	}
	if reserved {
		return false, ReasonReserved, nil
	}

	if !d.IgnoreExclusions && d.Config.ExcludedPorts != nil && d.Config.ExcludedPorts.IsExcluded(port) {
		return false, ReasonExcluded, nil
	}

	if !d.IgnoreOccupied && !d.Config.Occupancy.Skip {
		occupied, err := checkOccupied(d, port)
		if err != nil {
			return false, "", err
		}
		if occupied {
			return false, ReasonOccupied, nil
		}
	}

	return true, "", nil
}

// checkOccupied runs the occupancy probe matrix filtered by the
// occupancy.* config flags: skip_tcp/skip_udp narrow protocol, skip_ipv4/
// skip_ipv6 narrow family, check_all_interfaces adds the wildcard-address
// scope on top of the always-on loopback scope.
func checkOccupied(d Deps, port model.Port) (bool, error) {
	if d.Checker == nil {
		return false, nil
	}

	o := d.Config.Occupancy
	var probes []occupancy.Probe
	for _, p := range occupancy.AllProbes {
		if o.SkipTCP && p.Proto == occupancy.TCP {
			continue
		}
		if o.SkipUDP && p.Proto == occupancy.UDP {
			continue
		}
		if o.SkipIPv4 && p.Family == occupancy.IPv4 {
			continue
		}
		if o.SkipIPv6 && p.Family == occupancy.IPv6 {
			continue
		}
		if p.Scope == occupancy.AllInterfaces && !o.CheckAllInterfaces {
			continue
		}
		probes = append(probes, p)
	}

	return occupancy.IsOccupied(d.Checker, port, probes)
}

package query

import (
	"context"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/store"
)

// Get returns the reservation at key, or nil if none exists.
func Get(ctx context.Context, q store.Queryable, key model.ReservationKey) (*model.Reservation, error) {
	return store.GetByKey(ctx, q, key)
}

// GetByPort returns the reservation holding port, or nil if the port is
// unreserved.
func GetByPort(ctx context.Context, q store.Queryable, port model.Port) (*model.Reservation, error) {
	return store.GetByPort(ctx, q, port)
}

// List returns reservations matching filter, ordered by path then tag.
func List(ctx context.Context, q store.Queryable, filter store.ListFilter) ([]model.Reservation, error) {
	return store.List(ctx, q, filter)
}

// ListProjects returns the distinct, non-empty project names in use, sorted.
func ListProjects(ctx context.Context, q store.Queryable) ([]string, error) {
	return store.ListProjects(ctx, q)
}

// ReservedPortsInRange returns every reserved port within r, ascending.
func ReservedPortsInRange(ctx context.Context, q store.Queryable, r model.PortRange) ([]model.Port, error) {
	return store.ReservedPortsInRange(ctx, q, r)
}

// IsPortReserved reports whether any reservation currently holds port.
func IsPortReserved(ctx context.Context, q store.Queryable, port model.Port) (bool, error) {
	return store.IsPortReserved(ctx, q, port)
}

// Status classifies one port's state for Scan (spec.md §4.9).
type Status string

const (
	Free     Status = "free"
	Occupied Status = "occupied"
	Reserved Status = "reserved"
)

// ScanEntry is one row of a Scan result.
type ScanEntry struct {
	Port   model.Port
	Status Status
}

// Scan reports the status of every port in r: Reserved takes priority
// over Occupied, since a reservation may legitimately hold a port the OS
// doesn't currently see as bound (e.g. the owning process hasn't started
// yet).
func Scan(ctx context.Context, q store.Queryable, checker occupancy.Checker, occ config.Occupancy, r model.PortRange) ([]ScanEntry, error) {
	probes := probesFor(occ)

	var out []ScanEntry
	err := func() error {
		var rangeErr error
		r.Each(func(p model.Port) bool {
			reserved, err := store.IsPortReserved(ctx, q, p)
			if err != nil {
				rangeErr = err
				return false
			}
			if reserved {
				out = append(out, ScanEntry{Port: p, Status: Reserved})
				return true
			}

			if occ.Skip || checker == nil {
				out = append(out, ScanEntry{Port: p, Status: Free})
				return true
			}

			occupied, err := occupancy.IsOccupied(checker, p, probes)
			if err != nil {
				rangeErr = err
				return false
			}
			if occupied {
				out = append(out, ScanEntry{Port: p, Status: Occupied})
			} else {
				out = append(out, ScanEntry{Port: p, Status: Free})
			}
			return true
		})
		return rangeErr
	}()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// probesFor narrows occupancy.AllProbes by the same occupancy.* flags the
// allocator honors (internal/allocator/availability.go's checkOccupied),
// so scan and allocation agree on what "occupied" means.
func probesFor(occ config.Occupancy) []occupancy.Probe {
	var probes []occupancy.Probe
	for _, p := range occupancy.AllProbes {
		if occ.SkipTCP && p.Proto == occupancy.TCP {
			continue
		}
		if occ.SkipUDP && p.Proto == occupancy.UDP {
			continue
		}
		if occ.SkipIPv4 && p.Family == occupancy.IPv4 {
			continue
		}
		if occ.SkipIPv6 && p.Family == occupancy.IPv6 {
			continue
		}
		if p.Scope == occupancy.AllInterfaces && !occ.CheckAllInterfaces {
			continue
		}
		probes = append(probes, p)
	}
	return probes
}

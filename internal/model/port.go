package model

import (
	"fmt"
	"sort"
)

// MinPort and MaxPort bound the valid TCP/UDP port space. Port 0 is never
// a valid reservation target — it means "any port" at the socket API level,
// which has no meaning for a persistent reservation.
const (
	MinPort = 1
	MaxPort = 65535
)

// Port is a validated TCP/UDP port number in [MinPort, MaxPort].
type Port int

// NewPort validates raw and returns it as a Port, or an InvalidPort error.
func NewPort(raw int) (Port, error) {
	if raw < MinPort || raw > MaxPort {
		return 0, NewTropError(KindInvalidPort, fmt.Sprintf("port %d out of range [%d, %d]", raw, MinPort, MaxPort))
	}
	return Port(raw), nil
}

// Int returns the plain integer value, for use in SQL binds and formatting.
func (p Port) Int() int { return int(p) }

// String implements fmt.Stringer.
func (p Port) String() string { return fmt.Sprintf("%d", int(p)) }

// PortRange is an inclusive [Min, Max] range with Min <= Max.
type PortRange struct {
	Min Port
	Max Port
}

// NewPortRange validates min <= max and both are valid ports.
func NewPortRange(min, max int) (PortRange, error) {
	pmin, err := NewPort(min)
	if err != nil {
		return PortRange{}, err
	}
	pmax, err := NewPort(max)
	if err != nil {
		return PortRange{}, err
	}
	if pmin > pmax {
		return PortRange{}, NewTropError(KindValidation, fmt.Sprintf("port_range.min (%d) must be <= port_range.max (%d)", pmin, pmax))
	}
	return PortRange{Min: pmin, Max: pmax}, nil
}

// Contains reports whether p falls within the range, inclusive.
func (r PortRange) Contains(p Port) bool {
	return p >= r.Min && p <= r.Max
}

// Overlaps reports whether the two ranges share at least one port.
func (r PortRange) Overlaps(other PortRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	return int(r.Max-r.Min) + 1
}

// Each calls fn for every port in the range, in ascending order, stopping
// early if fn returns false.
func (r PortRange) Each(fn func(Port) bool) {
	for p := r.Min; p <= r.Max; p++ {
		if !fn(p) {
			return
		}
	}
}

// PortExclusion is either a single port (Start == End) or an inclusive
// [Start, End] range, forbidden to the allocator.
type PortExclusion struct {
	Start Port
	End   Port
}

// NewSingleExclusion builds a one-port exclusion.
func NewSingleExclusion(p Port) PortExclusion {
	return PortExclusion{Start: p, End: p}
}

// NewRangeExclusion validates start <= end and builds a range exclusion.
func NewRangeExclusion(start, end Port) (PortExclusion, error) {
	if start > end {
		return PortExclusion{}, NewTropError(KindValidation, fmt.Sprintf("exclusion start (%d) must be <= end (%d)", start, end))
	}
	return PortExclusion{Start: start, End: end}, nil
}

// Contains reports whether p falls inside this exclusion.
func (e PortExclusion) Contains(p Port) bool {
	return p >= e.Start && p <= e.End
}

// IsSingleton reports whether this exclusion names exactly one port.
func (e PortExclusion) IsSingleton() bool {
	return e.Start == e.End
}

// ExclusionSet is a compact, queryable set of excluded ports, backed by a
// sorted slice of non-overlapping ranges after Compact() has been called.
// An uncompacted set still answers queries correctly, just less efficiently.
type ExclusionSet struct {
	entries []PortExclusion
}

// NewExclusionSet builds a set from the given exclusions. The set is not
// compacted automatically; call Compact() once construction is complete.
func NewExclusionSet(exclusions ...PortExclusion) *ExclusionSet {
	es := &ExclusionSet{entries: append([]PortExclusion(nil), exclusions...)}
	sort.Slice(es.entries, func(i, j int) bool { return es.entries[i].Start < es.entries[j].Start })
	return es
}

// IsExcluded reports whether port is covered by any entry. Entries are
// always kept sorted by Start, so a binary search finds the last entry
// whose Start <= port and a hit on it returns at once. Otherwise the
// earlier entries are checked as well, because before Compact a wider
// entry that starts earlier can still cover port; a miss therefore scans
// every entry before that point.
func (es *ExclusionSet) IsExcluded(port Port) bool {
	entries := es.entries
	// Binary search for the last entry whose Start <= port.
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Start > port })
	for j := i - 1; j >= 0; j-- {
		if entries[j].Contains(port) {
			return true
		}
	}
	return false
}

// ExcludedInRange returns every excluded port within r, in ascending order.
func (es *ExclusionSet) ExcludedInRange(r PortRange) []Port {
	var out []Port
	r.Each(func(p Port) bool {
		if es.IsExcluded(p) {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Entries returns the current (possibly uncompacted) list of exclusions.
func (es *ExclusionSet) Entries() []PortExclusion {
	return append([]PortExclusion(nil), es.entries...)
}

// Compact sorts entries by Start and merges overlapping or adjacent
// entries (end+1 >= next.start) into minimal ranges, collapsing length-1
// ranges to singletons. Compact is idempotent: calling it twice in a row
// produces the same result as calling it once.
func (es *ExclusionSet) Compact() {
	if len(es.entries) == 0 {
		return
	}
	sort.Slice(es.entries, func(i, j int) bool { return es.entries[i].Start < es.entries[j].Start })

	merged := make([]PortExclusion, 0, len(es.entries))
	current := es.entries[0]
	for _, next := range es.entries[1:] {
		if int(current.End)+1 >= int(next.Start) {
			if next.End > current.End {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)
	es.entries = merged
}

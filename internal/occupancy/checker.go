package occupancy

import "github.com/trop-dev/trop/internal/model"

// Protocol identifies a transport protocol to probe.
type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// Family identifies an IP address family to probe.
type Family string

const (
	IPv4 Family = "ipv4"
	IPv6 Family = "ipv6"
)

// Scope identifies which interfaces a probe binds against.
type Scope string

const (
	// Loopback probes 127.0.0.1 / ::1 only.
	Loopback Scope = "loopback"
	// AllInterfaces probes the wildcard address (0.0.0.0 / ::).
	AllInterfaces Scope = "all"
)

// Probe names one (protocol, family, scope) cell to check.
type Probe struct {
	Proto  Protocol
	Family Family
	Scope  Scope
}

// AllProbes is the full TCP+UDP × IPv4+IPv6 × loopback+all-interfaces
// matrix spec.md §4.4 describes.
var AllProbes = []Probe{
	{TCP, IPv4, Loopback}, {TCP, IPv4, AllInterfaces},
	{TCP, IPv6, Loopback}, {TCP, IPv6, AllInterfaces},
	{UDP, IPv4, Loopback}, {UDP, IPv4, AllInterfaces},
	{UDP, IPv6, Loopback}, {UDP, IPv6, AllInterfaces},
}

// Checker reports whether a port is currently occupied on the host.
//
// Implementations never mutate state visible to callers; Check is expected
// to be safe to call concurrently and repeatedly.
type Checker interface {
	// Check reports whether port is occupied for the given probe.
	Check(port model.Port, probe Probe) (bool, error)
}

// IsOccupied reports whether port is occupied under any of probes. It
// stops at the first positive result.
func IsOccupied(c Checker, port model.Port, probes []Probe) (bool, error) {
	for _, p := range probes {
		occupied, err := c.Check(port, p)
		if err != nil {
			return false, err
		}
		if occupied {
			return true, nil
		}
	}
	return false, nil
}

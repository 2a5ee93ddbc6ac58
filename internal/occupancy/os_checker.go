package occupancy

import (
	"fmt"
	"net"

	"github.com/trop-dev/trop/internal/model"
)

// OSChecker asks the operating system's network stack directly: attempt
// to bind, and treat a bind failure as "occupied". This is more reliable
// than parsing /proc/net/* or shelling out to lsof/ss, and needs no
// elevated permissions.
type OSChecker struct{}

// NewOSChecker returns a Checker backed by net.Listen/net.ListenPacket.
func NewOSChecker() *OSChecker {
	return &OSChecker{}
}

// Check implements Checker.
func (c *OSChecker) Check(port model.Port, probe Probe) (bool, error) {
	network, addr, err := probeNetwork(probe, port)
	if err != nil {
		return false, err
	}

	switch probe.Proto {
	case TCP:
		l, err := net.Listen(network, addr)
		if err != nil {
			return true, nil
		}
		_ = l.Close()
		return false, nil

	case UDP:
		conn, err := net.ListenPacket(network, addr)
		if err != nil {
			return true, nil
		}
		_ = conn.Close()
		return false, nil

	default:
		return false, fmt.Errorf("occupancy: unknown protocol %q", probe.Proto)
	}
}

// probeNetwork resolves the network name and bind address for a probe.
// Scope loopback binds the family's loopback address explicitly so a
// process only listening on all interfaces doesn't mask a free
// loopback-only slot, and vice versa.
func probeNetwork(probe Probe, port model.Port) (network, addr string, err error) {
	switch probe.Proto {
	case TCP:
		network = "tcp"
	case UDP:
		network = "udp"
	default:
		return "", "", fmt.Errorf("occupancy: unknown protocol %q", probe.Proto)
	}

	switch probe.Family {
	case IPv4:
		network += "4"
		if probe.Scope == Loopback {
			addr = fmt.Sprintf("127.0.0.1:%d", port.Int())
		} else {
			addr = fmt.Sprintf("0.0.0.0:%d", port.Int())
		}
	case IPv6:
		network += "6"
		if probe.Scope == Loopback {
			addr = fmt.Sprintf("[::1]:%d", port.Int())
		} else {
			addr = fmt.Sprintf("[::]:%d", port.Int())
		}
	default:
		return "", "", fmt.Errorf("occupancy: unknown family %q", probe.Family)
	}
	return network, addr, nil
}

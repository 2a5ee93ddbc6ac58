// Package occupancy implements the occupancy checker of spec.md §4.4: given
// a port, report whether the host is currently bound to it over TCP/UDP on
// IPv4/IPv6.
//
// The Checker interface is the dynamic-dispatch boundary trop's design
// notes call out: OSChecker asks the kernel via net.Listen/net.ListenPacket;
// MockChecker is a deterministic in-memory double for allocator and
// planner tests.
package occupancy

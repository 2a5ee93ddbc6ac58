package occupancy

import (
	"sync"

	"github.com/trop-dev/trop/internal/model"
)

// mockKey addresses one (port, probe) cell in a MockChecker.
type mockKey struct {
	port  model.Port
	probe Probe
}

// MockChecker is a deterministic, in-memory Checker for tests. Every cell
// defaults to unoccupied; call Occupy to mark one as taken.
type MockChecker struct {
	mu       sync.Mutex
	occupied map[mockKey]bool
}

// NewMockChecker returns an empty MockChecker with every port reporting
// unoccupied until told otherwise.
func NewMockChecker() *MockChecker {
	return &MockChecker{occupied: make(map[mockKey]bool)}
}

// Occupy marks port as occupied for the given probe.
func (m *MockChecker) Occupy(port model.Port, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupied[mockKey{port, probe}] = true
}

// OccupyAll marks port as occupied across every probe in AllProbes.
func (m *MockChecker) OccupyAll(port model.Port) {
	for _, probe := range AllProbes {
		m.Occupy(port, probe)
	}
}

// Free clears any occupancy previously recorded for port across every
// probe in AllProbes.
func (m *MockChecker) Free(port model.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, probe := range AllProbes {
		delete(m.occupied, mockKey{port, probe})
	}
}

// Check implements Checker.
func (m *MockChecker) Check(port model.Port, probe Probe) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupied[mockKey{port, probe}], nil
}

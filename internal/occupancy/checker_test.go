package occupancy

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trop-dev/trop/internal/model"
)

func mustPort(t *testing.T, n int) model.Port {
	t.Helper()
	p, err := model.NewPort(n)
	require.NoError(t, err)
	return p
}

func TestMockChecker_DefaultsUnoccupied(t *testing.T) {
	c := NewMockChecker()
	occupied, err := c.Check(mustPort(t, 8080), Probe{TCP, IPv4, Loopback})
	require.NoError(t, err)
	assert.False(t, occupied)
}

func TestMockChecker_OccupySingleCell(t *testing.T) {
	c := NewMockChecker()
	port := mustPort(t, 8080)
	c.Occupy(port, Probe{TCP, IPv4, Loopback})

	occupied, err := c.Check(port, Probe{TCP, IPv4, Loopback})
	require.NoError(t, err)
	assert.True(t, occupied)

	occupied, err = c.Check(port, Probe{TCP, IPv4, AllInterfaces})
	require.NoError(t, err)
	assert.False(t, occupied)
}

func TestMockChecker_OccupyAllCoversEveryCombination(t *testing.T) {
	c := NewMockChecker()
	port := mustPort(t, 9090)
	c.OccupyAll(port)

	occupied, err := IsOccupied(c, port, AllProbes)
	require.NoError(t, err)
	assert.True(t, occupied)
}

func TestMockChecker_FreeClearsOccupancy(t *testing.T) {
	c := NewMockChecker()
	port := mustPort(t, 9090)
	c.OccupyAll(port)
	c.Free(port)

	occupied, err := IsOccupied(c, port, AllProbes)
	require.NoError(t, err)
	assert.False(t, occupied)
}

func TestIsOccupied_StopsAtFirstPositive(t *testing.T) {
	c := NewMockChecker()
	port := mustPort(t, 7000)
	c.Occupy(port, Probe{UDP, IPv6, AllInterfaces})

	occupied, err := IsOccupied(c, port, AllProbes)
	require.NoError(t, err)
	assert.True(t, occupied)
}

func TestOSChecker_HeldPortReportsOccupied(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port

	c := NewOSChecker()
	occupied, err := c.Check(mustPort(t, port), Probe{TCP, IPv4, Loopback})
	require.NoError(t, err)
	assert.True(t, occupied)
}

func TestOSChecker_FreePortReportsUnoccupied(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	c := NewOSChecker()
	occupied, err := c.Check(mustPort(t, port), Probe{TCP, IPv4, Loopback})
	require.NoError(t, err)
	assert.False(t, occupied)
}

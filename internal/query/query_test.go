package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trop.db")
	s, err := store.Open(path, store.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustPort(t *testing.T, n int) model.Port {
	t.Helper()
	p, err := model.NewPort(n)
	require.NoError(t, err)
	return p
}

func TestScan_ReservedTakesPriorityOverOccupied(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	key, err := model.NewReservationKey("/work/a", nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		return store.InsertReservation(ctx, tx, model.Reservation{
			Key: key, Port: mustPort(t, 5000), CreatedAt: now, LastUsedAt: now,
		})
	}))

	checker := occupancy.NewMockChecker()
	checker.OccupyAll(mustPort(t, 5000))
	checker.OccupyAll(mustPort(t, 5001))

	r, err := model.NewPortRange(5000, 5002)
	require.NoError(t, err)

	entries, err := Scan(ctx, s.DB(), checker, config.Occupancy{}, r)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Reserved, entries[0].Status)
	assert.Equal(t, Occupied, entries[1].Status)
	assert.Equal(t, Free, entries[2].Status)
}

func TestScan_SkipTrue_EverythingReservedOrFree(t *testing.T) {
	s := openTestStore(t)
	checker := occupancy.NewMockChecker()
	checker.OccupyAll(mustPort(t, 5000))

	r, err := model.NewPortRange(5000, 5000)
	require.NoError(t, err)

	entries, err := Scan(context.Background(), s.DB(), checker, config.Occupancy{Skip: true}, r)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Free, entries[0].Status)
}

func TestListProjects_ReturnsDistinctSorted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, proj := range []string{"beta", "alpha", "beta"} {
		key, err := model.NewReservationKey("/work/"+string(rune('a'+i)), nil)
		require.NoError(t, err)
		p := proj
		require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
			return store.InsertReservation(ctx, tx, model.Reservation{
				Key: key, Port: mustPort(t, 5000+i), Project: &p, CreatedAt: now, LastUsedAt: now,
			})
		}))
	}

	projects, err := ListProjects(ctx, s.DB())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, projects)
}

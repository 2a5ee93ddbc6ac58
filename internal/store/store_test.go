package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trop-dev/trop/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trop.db")
	s, err := Open(path, OpenOptions{MaximumLockWaitSeconds: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustReservation(t *testing.T, path string, port int) model.Reservation {
	t.Helper()
	key, err := model.NewReservationKey(path, nil)
	require.NoError(t, err)
	p, err := model.NewPort(port)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Reservation{Key: key, Port: p, CreatedAt: now, LastUsedAt: now}
}

func TestOpen_CreatesFreshStoreWithSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	var raw string
	err := s.DB().QueryRowContext(context.Background(), `SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	require.NoError(t, err)
	assert.Equal(t, "1", raw)
}

func TestOpen_DisableAutoinitFailsOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trop.db")
	_, err := Open(path, OpenOptions{DisableAutoinit: true})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindNoDataDirectory))
}

func TestOpen_ReopenSucceedsOnExistingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trop.db")
	s1, err := Open(path, OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, OpenOptions{})
	require.NoError(t, err)
	defer s2.Close()
}

func TestWriteTx_InsertAndGetByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := mustReservation(t, "/a/b", 6000)

	err := s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return InsertReservation(ctx, tx, r)
	})
	require.NoError(t, err)

	got, err := GetByKey(ctx, s.DB(), r.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.Port, got.Port)
}

func TestWriteTx_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := mustReservation(t, "/a/b", 6000)

	err := s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		if err := InsertReservation(ctx, tx, r); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	got, err := GetByKey(ctx, s.DB(), r.Key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertReservation_DuplicatePortRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r1 := mustReservation(t, "/a/b", 6000)
	r2 := mustReservation(t, "/a/c", 6000)

	err := s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return InsertReservation(ctx, tx, r1)
	})
	require.NoError(t, err)

	err = s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return InsertReservation(ctx, tx, r2)
	})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindPortUnavailable))
}

func TestDeleteReservation_RemovesRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := mustReservation(t, "/a/b", 6000)

	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return InsertReservation(ctx, tx, r)
	}))

	var deleted bool
	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		deleted, err = DeleteReservation(ctx, tx, r.Key)
		return err
	}))
	assert.True(t, deleted)

	got, err := GetByKey(ctx, s.DB(), r.Key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTouchReservation_NeverMovesBackward(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := mustReservation(t, "/a/b", 6000)

	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return InsertReservation(ctx, tx, r)
	}))

	earlier := r.LastUsedAt.Add(-time.Hour)
	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return TouchReservation(ctx, tx, r.Key, earlier)
	}))

	got, err := GetByKey(ctx, s.DB(), r.Key)
	require.NoError(t, err)
	assert.True(t, got.LastUsedAt.Equal(r.LastUsedAt))

	later := r.LastUsedAt.Add(time.Hour)
	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return TouchReservation(ctx, tx, r.Key, later)
	}))

	got, err = GetByKey(ctx, s.DB(), r.Key)
	require.NoError(t, err)
	assert.True(t, got.LastUsedAt.Equal(later))
}

func TestReservedPortsInRange_ReturnsAscending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, port := range []int{6050, 6010, 6030} {
		r := mustReservation(t, filepath.Join("/a", string(rune('a'+i))), port)
		require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
			return InsertReservation(ctx, tx, r)
		}))
	}

	portRange, err := model.NewPortRange(6000, 6100)
	require.NoError(t, err)
	ports, err := ReservedPortsInRange(ctx, s.DB(), portRange)
	require.NoError(t, err)
	require.Len(t, ports, 3)
	assert.Equal(t, 6010, ports[0].Int())
	assert.Equal(t, 6030, ports[1].Int())
	assert.Equal(t, 6050, ports[2].Int())
}

func TestAnyExpired_DetectsOldReservations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := mustReservation(t, "/a/b", 6000)

	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
		return InsertReservation(ctx, tx, r)
	}))

	expired, err := AnyExpired(ctx, s.DB(), r.LastUsedAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = AnyExpired(ctx, s.DB(), r.LastUsedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestListProjects_DistinctAndSorted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r1 := mustReservation(t, "/a/b", 6000)
	r1.Project = model.StringPtr("zeta")
	r2 := mustReservation(t, "/a/c", 6001)
	r2.Project = model.StringPtr("alpha")
	r3 := mustReservation(t, "/a/d", 6002)
	r3.Project = model.StringPtr("alpha")

	for _, r := range []model.Reservation{r1, r2, r3} {
		r := r
		require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *Tx) error {
			return InsertReservation(ctx, tx, r)
		}))
	}

	projects, err := ListProjects(ctx, s.DB())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, projects)
}

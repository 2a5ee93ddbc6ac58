package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trop-dev/trop/internal/model"
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

func insertReservation(t *testing.T, s *store.Store, path string, port model.Port, lastUsed time.Time) {
	t.Helper()
	key, err := model.NewReservationKey(path, nil)
	require.NoError(t, err)
	err = s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		return store.InsertReservation(ctx, tx, model.Reservation{
			Key: key, Port: port, CreatedAt: lastUsed, LastUsedAt: lastUsed,
		})
	})
	require.NoError(t, err)
}

func TestPrune_RemovesReservationWithMissingPath(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insertReservation(t, s, filepath.Join(t.TempDir(), "gone"), mustPort(t, 5000), now)

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Prune(ctx, tx, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())

	remaining, err := store.All(context.Background(), s.DB())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestPrune_KeepsReservationWithExistingPath(t *testing.T) {
	s := openTestStore(t)
	live := t.TempDir()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insertReservation(t, s, live, mustPort(t, 5000), now)

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Prune(ctx, tx, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count())
}

func TestPrune_DryRunLeavesStoreUnchanged(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insertReservation(t, s, filepath.Join(t.TempDir(), "gone"), mustPort(t, 5000), now)

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Prune(ctx, tx, true)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())
	assert.True(t, result.DryRun)

	remaining, err := store.All(context.Background(), s.DB())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestPrune_TreatsFileAsNonDirectory(t *testing.T) {
	s := openTestStore(t)
	file := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insertReservation(t, s, file, mustPort(t, 5000), now)

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Prune(ctx, tx, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())
}

func TestExpire_DisabledWhenDaysIsZero(t *testing.T) {
	s := openTestStore(t)
	old := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	insertReservation(t, s, t.TempDir(), mustPort(t, 5000), old)

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Expire(ctx, tx, 0, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count())
}

func TestExpire_RemovesReservationsOlderThanThreshold(t *testing.T) {
	s := openTestStore(t)
	fixedNow := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	restore := currentTime
	currentTime = func() time.Time { return fixedNow }
	defer func() { currentTime = restore }()

	old := fixedNow.Add(-60 * 24 * time.Hour)
	fresh := fixedNow.Add(-1 * time.Hour)
	insertReservation(t, s, t.TempDir(), mustPort(t, 5000), old)
	insertReservation(t, s, t.TempDir(), mustPort(t, 5001), fresh)

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Expire(ctx, tx, 30, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())
	assert.Equal(t, mustPort(t, 5000), result.Removed[0].Port)
}

func TestAutoclean_AggregatesPruneAndExpire(t *testing.T) {
	s := openTestStore(t)
	fixedNow := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	restore := currentTime
	currentTime = func() time.Time { return fixedNow }
	defer func() { currentTime = restore }()

	insertReservation(t, s, filepath.Join(t.TempDir(), "gone"), mustPort(t, 5000), fixedNow)
	insertReservation(t, s, t.TempDir(), mustPort(t, 5001), fixedNow.Add(-60*24*time.Hour))

	var result Result
	err := s.WriteTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		result, err = Autoclean(ctx, tx, 30, false)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count())
}

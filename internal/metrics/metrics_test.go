package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

func TestRefresh_PopulatesGaugesFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trop.db")
	s, err := store.Open(path, store.OpenOptions{})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key, err := model.NewReservationKey("/work/a", nil)
	require.NoError(t, err)
	project := "alpha"
	require.NoError(t, s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		return store.InsertReservation(ctx, tx, model.Reservation{
			Key: key, Port: model.Port(5000), Project: &project, CreatedAt: now, LastUsedAt: now,
		})
	}))

	portRange, err := model.NewPortRange(5000, 5999)
	require.NoError(t, err)

	c := NewCollector()
	require.NoError(t, c.Refresh(ctx, s.DB(), portRange))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trop_reservations_total 1")
	assert.Contains(t, rec.Body.String(), "trop_projects_total 1")
}

package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservationKey_RequiresAbsolutePath(t *testing.T) {
	_, err := NewReservationKey("relative/path", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidPath))
}

func TestNewReservationKey_TagValidation(t *testing.T) {
	blank := "   "
	_, err := NewReservationKey("/a/b", &blank)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	longTag := strings.Repeat("x", MaxTagLength+1)
	_, err = NewReservationKey("/a/b", &longTag)
	require.Error(t, err)
}

func TestReservationKey_DistinctWithAndWithoutTag(t *testing.T) {
	noTag, err := NewReservationKey("/a/b", nil)
	require.NoError(t, err)

	tag := "api"
	withTag, err := NewReservationKey("/a/b", &tag)
	require.NoError(t, err)

	assert.False(t, noTag.Equal(withTag))
	assert.True(t, noTag.Equal(noTag))
}

func TestReservation_Validate(t *testing.T) {
	key, _ := NewReservationKey("/a/b", nil)
	now := time.Now()

	r := &Reservation{Key: key, Port: 5000, CreatedAt: now, LastUsedAt: now}
	require.NoError(t, r.Validate())

	r.Port = 0
	require.Error(t, r.Validate())
}

func TestReservation_TouchNeverMovesBackward(t *testing.T) {
	key, _ := NewReservationKey("/a/b", nil)
	created := time.Now().Add(-time.Hour)
	r := &Reservation{Key: key, Port: 5000, CreatedAt: created, LastUsedAt: created}

	earlier := created.Add(-time.Minute)
	r.Touch(earlier)
	assert.Equal(t, created, r.LastUsedAt, "touch with an earlier time must not move last_used_at backward")

	later := time.Now()
	r.Touch(later)
	assert.Equal(t, later, r.LastUsedAt)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPort_RejectsZeroAndOutOfRange(t *testing.T) {
	_, err := NewPort(0)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidPort))

	_, err = NewPort(65536)
	require.Error(t, err)

	p, err := NewPort(5000)
	require.NoError(t, err)
	assert.Equal(t, 5000, p.Int())
}

func TestNewPortRange_MinMustNotExceedMax(t *testing.T) {
	_, err := NewPortRange(7000, 5000)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	r, err := NewPortRange(5000, 7000)
	require.NoError(t, err)
	assert.Equal(t, 2001, r.Size())
}

func TestPortRange_ContainsAndOverlaps(t *testing.T) {
	r, _ := NewPortRange(5000, 5010)
	assert.True(t, r.Contains(5005))
	assert.False(t, r.Contains(4999))

	other, _ := NewPortRange(5010, 5020)
	assert.True(t, r.Overlaps(other))

	disjoint, _ := NewPortRange(6000, 6010)
	assert.False(t, r.Overlaps(disjoint))
}

func TestExclusionSet_IsExcluded(t *testing.T) {
	es := NewExclusionSet(
		NewSingleExclusion(5005),
		mustRange(t, 6000, 6010),
	)

	assert.True(t, es.IsExcluded(5005))
	assert.False(t, es.IsExcluded(5006))
	assert.True(t, es.IsExcluded(6005))
	assert.False(t, es.IsExcluded(6011))
}

func TestExclusionSet_CompactMergesOverlappingAndAdjacent(t *testing.T) {
	es := NewExclusionSet(
		mustRange(t, 5000, 5010),
		mustRange(t, 5011, 5020), // adjacent: end+1 >= next.start
		NewSingleExclusion(5030),
		mustRange(t, 5025, 5030), // overlapping with the singleton
	)
	es.Compact()

	entries := es.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Port(5000), entries[0].Start)
	assert.Equal(t, Port(5020), entries[0].End)
	assert.Equal(t, Port(5025), entries[1].Start)
	assert.Equal(t, Port(5030), entries[1].End)
}

func TestExclusionSet_CompactIsIdempotent(t *testing.T) {
	es := NewExclusionSet(mustRange(t, 5000, 5010), NewSingleExclusion(5011))
	es.Compact()
	first := es.Entries()
	es.Compact()
	second := es.Entries()
	assert.Equal(t, first, second)
}

func TestExclusionSet_ExcludedInRange(t *testing.T) {
	es := NewExclusionSet(NewSingleExclusion(5005), mustRange(t, 5008, 5009))
	r, _ := NewPortRange(5000, 5010)
	assert.Equal(t, []Port{5005, 5008, 5009}, es.ExcludedInRange(r))
}

func mustRange(t *testing.T, start, end int) PortExclusion {
	t.Helper()
	e, err := NewRangeExclusion(Port(start), Port(end))
	require.NoError(t, err)
	return e
}

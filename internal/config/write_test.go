package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddExclusion_AppendsToFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trop.yaml")
	excl, err := ParseExclusionArg("6000..6010")
	require.NoError(t, err)

	require.NoError(t, AddExclusion(path, excl))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "6000..6010")
}

func TestAddExclusion_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("excluded_ports:\n  - \"5432\"\n"), 0o644))

	excl, err := ParseExclusionArg("7000")
	require.NoError(t, err)
	require.NoError(t, AddExclusion(path, excl))

	raw, err := loadRawForWrite(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"5432", "7000"}, raw.ExcludedPorts)
}

func TestCompactExclusions_MergesAdjacentRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("excluded_ports:\n  - \"5000\"\n  - \"5001..5002\"\n  - \"5003\"\n"), 0o644))

	result, err := CompactExclusions(path, false)
	require.NoError(t, err)
	require.Len(t, result.After, 1)
	assert.Equal(t, 5000, result.After[0].Start.Int())
	assert.Equal(t, 5003, result.After[0].End.Int())

	raw, err := loadRawForWrite(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"5000..5003"}, raw.ExcludedPorts)
}

func TestCompactExclusions_DryRunLeavesFileUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trop.yaml")
	original := "excluded_ports:\n  - \"5000\"\n  - \"5001\"\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	result, err := CompactExclusions(path, true)
	require.NoError(t, err)
	assert.Len(t, result.After, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestParseExclusionArg_RejectsInvalidRange(t *testing.T) {
	_, err := ParseExclusionArg("not-a-port")
	require.Error(t, err)
}

package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_ResolvesSymlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0o755))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(real, link))

	got, err := Canonicalize(link)
	require.NoError(t, err)

	wantReal, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, wantReal, got)
}

func TestCanonicalize_FailsOnMissingPath(t *testing.T) {
	dir := t.TempDir()
	_, err := Canonicalize(filepath.Join(dir, "does-not-exist"))
	require.Error(t, err)
}

func TestSafeCanonicalize_ReturnsRemainderForMissingTail(t *testing.T) {
	dir := t.TempDir()
	existing, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := SafeCanonicalize(filepath.Join(dir, "does", "not", "exist"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(existing, "does", "not", "exist"), got)
}

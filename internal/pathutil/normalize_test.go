package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ResolvesDotAndDotDot(t *testing.T) {
	got, err := Normalize("/a/b/../c/./d")
	require.NoError(t, err)
	assert.Equal(t, "/a/c/d", got)
}

func TestNormalize_IsIdempotent(t *testing.T) {
	once, err := Normalize("/a/b/../c")
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalize_RejectsEscapingRoot(t *testing.T) {
	_, err := Normalize("/..")
	require.Error(t, err)
}

func TestNormalize_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := Normalize("~/projects/foo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "projects", "foo"), got)
}

func TestNormalize_RelativeJoinsCWD(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got, err := Normalize("relative/dir")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "relative", "dir"), got)
}

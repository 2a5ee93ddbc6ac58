package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathRelationship_Same(t *testing.T) {
	assert.Equal(t, Same, PathRelationship("/a/b", "/a/b"))
	assert.Equal(t, Same, PathRelationship("/a/b/", "/a/b"))
}

func TestPathRelationship_AncestorAndDescendantAreSymmetric(t *testing.T) {
	assert.Equal(t, Ancestor, PathRelationship("/a", "/a/b"))
	assert.Equal(t, Descendant, PathRelationship("/a/b", "/a"))
}

func TestPathRelationship_Unrelated(t *testing.T) {
	assert.Equal(t, Unrelated, PathRelationship("/a/b", "/c/d"))
}

func TestPathRelationship_RequiresOverrideOnlyForUnrelated(t *testing.T) {
	assert.True(t, Unrelated.RequiresOverride())
	assert.False(t, Same.RequiresOverride())
	assert.False(t, Ancestor.RequiresOverride())
	assert.False(t, Descendant.RequiresOverride())
}

func TestPathRelationship_RootIsAncestorOfEverything(t *testing.T) {
	assert.Equal(t, Ancestor, PathRelationship("/", "/a/b"))
}

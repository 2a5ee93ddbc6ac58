package pathutil

import "strings"

// Relationship classifies how two normalized paths relate to each other.
type Relationship string

const (
	Same       Relationship = "same"
	Ancestor   Relationship = "ancestor"
	Descendant Relationship = "descendant"
	Unrelated  Relationship = "unrelated"
)

// RequiresOverride reports whether this relationship needs
// allow_unrelated_path or force to proceed with a mutation (spec.md §4.1:
// hierarchical relationships are allowed without override; Unrelated is
// not).
func (r Relationship) RequiresOverride() bool {
	return r == Unrelated
}

// PathRelationship computes the relationship between two already-normalized
// absolute paths by lexical prefix comparison after stripping trailing
// separators. It does not touch the filesystem.
//
// Symmetry: PathRelationship(a, b) == Ancestor implies
// PathRelationship(b, a) == Descendant, and PathRelationship(a, a) == Same.
func PathRelationship(a, b string) Relationship {
	a = strings.TrimRight(a, "/")
	b = strings.TrimRight(b, "/")
	if a == "" {
		a = "/"
	}
	if b == "" {
		b = "/"
	}

	if a == b {
		return Same
	}
	if isPrefixDir(a, b) {
		return Ancestor
	}
	if isPrefixDir(b, a) {
		return Descendant
	}
	return Unrelated
}

// isPrefixDir reports whether dir is a directory-level ancestor of path,
// i.e. path starts with dir + "/". The root "/" counts as a prefix of
// every path; equal paths are handled by the caller before this check.
func isPrefixDir(dir, path string) bool {
	if dir == "/" {
		return true
	}
	return strings.HasPrefix(path, dir+"/")
}

package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trop-dev/trop/internal/model"
)

// maxSymlinkDepth bounds symlink-loop detection during canonicalization,
// matching spec.md §4.1's depth-40 requirement.
const maxSymlinkDepth = 40

// Canonicalize resolves all symlinks in an already-normalized absolute
// path by querying the filesystem. It fails with model.KindPathNotFound if
// any path component does not exist.
//
// Per the provenance rule (spec.md §4.1), Canonicalize is only ever applied
// to implicitly-inferred paths (e.g. CWD) — paths the caller supplied
// explicitly are normalized only, never canonicalized.
func Canonicalize(path string) (string, error) {
	resolved, err := evalSymlinks(path, maxSymlinkDepth)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// SafeCanonicalize walks up from path to find the longest existing prefix,
// canonicalizes that prefix, and appends the non-existing remainder
// unchanged. It never fails on a missing path; it only fails on a genuine
// I/O error (permission denied) or a symlink loop.
func SafeCanonicalize(path string) (string, error) {
	sep := string(filepath.Separator)
	components := strings.Split(strings.TrimPrefix(path, sep), sep)

	existingLen := len(components)
	for existingLen > 0 {
		candidate := sep + strings.Join(components[:existingLen], sep)
		if _, err := os.Stat(candidate); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return "", model.WrapTropError(model.KindPermissionDenied, fmt.Sprintf("failed to stat %q", candidate), err)
		}
		existingLen--
	}

	if existingLen == 0 {
		return path, nil
	}

	existingPrefix := sep + strings.Join(components[:existingLen], sep)
	canonPrefix, err := Canonicalize(existingPrefix)
	if err != nil {
		return "", err
	}

	remainder := components[existingLen:]
	if len(remainder) == 0 {
		return canonPrefix, nil
	}
	return filepath.Join(append([]string{canonPrefix}, remainder...)...), nil
}

// evalSymlinks resolves symlinks component by component, following at most
// maxDepth redirections before declaring a loop.
func evalSymlinks(path string, maxDepth int) (string, error) {
	sep := string(filepath.Separator)
	components := strings.Split(strings.TrimPrefix(path, sep), sep)

	resolved := sep
	depth := 0
	for _, comp := range components {
		if comp == "" {
			continue
		}
		next := filepath.Join(resolved, comp)

		for {
			info, err := os.Lstat(next)
			if err != nil {
				if os.IsNotExist(err) {
					return "", model.WrapTropError(model.KindPathNotFound, fmt.Sprintf("path component %q does not exist", next), err)
				}
				return "", model.WrapTropError(model.KindPermissionDenied, fmt.Sprintf("failed to stat %q", next), err)
			}
			if info.Mode()&os.ModeSymlink == 0 {
				break
			}
			depth++
			if depth > maxDepth {
				return "", model.NewTropError(model.KindInvalidPath, fmt.Sprintf("symlink loop detected resolving %q", path))
			}
			target, err := os.Readlink(next)
			if err != nil {
				return "", model.WrapTropError(model.KindPermissionDenied, fmt.Sprintf("failed to read symlink %q", next), err)
			}
			if filepath.IsAbs(target) {
				next = filepath.Clean(target)
			} else {
				next = filepath.Join(filepath.Dir(next), target)
			}
		}
		resolved = next
	}
	return resolved, nil
}

package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/trop-dev/trop/internal/model"
)

// Normalize returns an absolute path with a leading "~" expanded to the
// caller's home directory and "."/".." components resolved lexically.
// It never touches the filesystem beyond resolving the home directory and
// is idempotent: Normalize(Normalize(p)) == Normalize(p) for any p this
// succeeds on.
//
// It fails with model.KindInvalidPath when the path's ".." components walk
// past the root (no existing-portion anchor to resolve against) or when a
// path component is not valid UTF-8.
func Normalize(p string) (string, error) {
	if p == "" {
		return "", model.NewTropError(model.KindInvalidPath, "path must not be empty")
	}

	expanded, err := expandHome(p)
	if err != nil {
		return "", err
	}

	abs := expanded
	if !filepath.IsAbs(abs) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", model.WrapTropError(model.KindInvalidPath, "failed to resolve current directory", err)
		}
		abs = filepath.Join(cwd, abs)
	}

	return resolveLexical(abs)
}

// expandHome replaces a leading "~" or "~/" with the caller's home
// directory. A bare "~other" (another user's home) is left untouched,
// matching common shell behavior for tools that don't do full user lookup.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", model.WrapTropError(model.KindInvalidPath, "failed to resolve home directory", err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// resolveLexical walks path's components, popping the stack on ".." and
// erroring if "..' would walk past the root, ignoring ".", and rejecting
// non-UTF-8 components.
func resolveLexical(path string) (string, error) {
	sep := string(filepath.Separator)
	parts := strings.Split(filepath.ToSlash(path), "/")

	var stack []string
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", model.NewTropError(model.KindInvalidPath, fmt.Sprintf("path %q has no existing-portion anchor for '..'", path))
			}
			stack = stack[:len(stack)-1]
		default:
			if !utf8.ValidString(part) {
				return "", model.NewTropError(model.KindInvalidPath, fmt.Sprintf("path component %q is not valid UTF-8", part))
			}
			stack = append(stack, part)
		}
	}

	if len(stack) == 0 {
		return sep, nil
	}
	return sep + strings.Join(stack, sep), nil
}

package unionfs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Root is the virtual path of the top of the union tree.
const Root = "/"

// Clean normalizes a path supplied by a protocol adapter into a virtual path:
// slash separated, absolute and without dot segments. The empty string is the
// root.
func Clean(p string) string {
	return path.Clean(Root + filepath.ToSlash(p))
}

// Join returns the virtual path of name inside the virtual directory dir.
func Join(dir, name string) string {
	return path.Join(Clean(dir), name)
}

// Virtualize strips the source root prefix from a physical path. The root
// itself maps to "/".
func Virtualize(root, physical string) (string, error) {
	rel, err := filepath.Rel(root, physical)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", physical, root)
	}
	return Clean(rel), nil
}

// ParseRoots splits a list of source roots separated by the OS path list
// separator. Relative roots are resolved against cwd.
func ParseRoots(list, cwd string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, configError("no source directories given")
	}
	parts := strings.Split(list, string(os.PathListSeparator))
	roots := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, configError("empty source directory at position %d in %q", i+1, list)
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		p = filepath.Clean(p)
		if seen[p] {
			return nil, configError("source directory %s given more than once", p)
		}
		seen[p] = true
		roots = append(roots, p)
	}
	return roots, nil
}

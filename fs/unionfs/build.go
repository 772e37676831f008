package unionfs

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

// Build walks every root and returns the populated index. Roots are walked
// in order, and each root in lexical order, so the same trees always produce
// the same listing order.
//
// Every root must be an existing directory. Any failure to read a root
// returns ErrConfiguration.
func Build(roots []string, opts ...Option) (*Index, error) {
	ix := &Index{
		entries: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	if len(roots) == 0 {
		return nil, configError("no source directories given")
	}

	start := time.Now()
	seen := make(map[string]bool, len(roots))
	for _, root := range roots {
		// WalkDir doesn't descend into a symlinked root
		resolved, err := filepath.EvalSymlinks(filepath.Clean(root))
		if err != nil {
			return nil, configError("source directory %s: %s", root, err)
		}
		root = resolved
		if seen[root] {
			return nil, configError("source directory %s given more than once", root)
		}
		seen[root] = true
		st, err := statPath(root)
		if err != nil {
			return nil, configError("source directory %s: %s", root, err)
		}
		if st.Kind != KindDir {
			return nil, configError("source %s is not a directory", root)
		}

		before := len(ix.entries)
		count := 0
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			vpath, err := Virtualize(root, p)
			if err != nil {
				return err
			}
			ix.entries[vpath] = append(ix.entries[vpath], p)
			count++
			return nil
		})
		if err != nil {
			return nil, configError("walking %s: %s", root, err)
		}
		ix.roots = append(ix.roots, root)
		ix.logger.Debug("unionfs.Build.root", slog.String("root", root), slog.Int("entries", count), slog.Int("new", len(ix.entries)-before))
	}

	if ix.maxOpenFiles > 0 {
		files, err := newOpenFiles(ix.maxOpenFiles)
		if err != nil {
			return nil, err
		}
		ix.files = files
	}

	ix.logger.Info("unionfs.Build",
		slog.Int("roots", len(ix.roots)),
		slog.Int("paths", len(ix.entries)),
		slog.String("policy", ix.policy.String()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return ix, nil
}

package unionfs

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
)

// unionListing accumulates the children of every directory candidate of a
// virtual directory, keeping the first-seen order of names.
type unionListing struct {
	policy  ConflictPolicy
	entries []Entry
	seen    map[string]int
	kinds   []seenKinds
}

type seenKinds struct{ file, dir bool }

func newUnionListing(policy ConflictPolicy) *unionListing {
	return &unionListing{
		policy: policy,
		entries: []Entry{
			{Name: ".", Kind: KindDir},
			{Name: "..", Kind: KindDir},
		},
		seen: make(map[string]int),
	}
}

func (l *unionListing) add(name string, kind Kind) {
	i, ok := l.seen[name]
	if !ok {
		i = len(l.kinds)
		l.seen[name] = i
		l.kinds = append(l.kinds, seenKinds{})
		l.entries = append(l.entries, Entry{Name: name})
	}
	switch kind {
	case KindFile:
		l.kinds[i].file = true
	case KindDir:
		l.kinds[i].dir = true
	}
}

// result drops names that are neither a file nor a directory in any source,
// since Resolve can never serve them.
func (l *unionListing) result() []Entry {
	entries := l.entries[:2]
	for i, k := range l.kinds {
		e := l.entries[i+2]
		e.Kind = l.policy.kind(k.file, k.dir)
		if e.Kind == KindOther {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// readSourceDir lists a physical directory sorted by name without touching
// its access time.
func readSourceDir(dir string) ([]fs.DirEntry, error) {
	f, err := openSource(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// childKind returns the kind of a directory entry, following symbolic links
// the same way Resolve does.
func childKind(dir string, d fs.DirEntry) Kind {
	t := d.Type()
	switch {
	case t.IsRegular():
		return KindFile
	case t.IsDir():
		return KindDir
	case t&fs.ModeSymlink != 0:
		st, err := statPath(filepath.Join(dir, d.Name()))
		if err != nil {
			return KindOther
		}
		return st.Kind
	default:
		return KindOther
	}
}

// ListDirectory returns the union of the immediate children of every
// directory candidate of path, each name once, after "." and "..".
//
// Candidates are re-checked on the live file system: a path none of whose
// candidates is currently a directory is not found.
func (ix *Index) ListDirectory(ctx context.Context, path string) ([]Entry, error) {
	path = Clean(path)
	candidates, ok := ix.entries[path]
	if !ok {
		return nil, notFound(path)
	}

	listing := newUnionListing(ix.policy)
	dirs, sawFile := 0, false
	for _, c := range candidates {
		st, err := statPath(c)
		if err != nil {
			if isMissing(err) {
				continue
			}
			ix.logger.ErrorContext(ctx, "unionfs.ListDirectory", "path", path, "candidate", c, "err", err)
			return nil, ioError(path, err)
		}
		if st.Kind == KindFile {
			sawFile = true
		}
		if st.Kind != KindDir {
			continue
		}

		children, err := readSourceDir(c)
		if err != nil {
			if isMissing(err) {
				continue
			}
			ix.logger.ErrorContext(ctx, "unionfs.ListDirectory", "path", path, "candidate", c, "err", err)
			return nil, ioError(path, err)
		}
		dirs++
		for _, d := range children {
			listing.add(d.Name(), childKind(c, d))
		}
	}

	if dirs == 0 || ix.policy.kind(sawFile, true) != KindDir {
		return nil, notFound(path)
	}
	return listing.result(), nil
}

// Names returns the names of a listing in order.
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

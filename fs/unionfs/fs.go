// Package unionfs implements a read-only union of local directory trees.
//
// The union is described by an Index that maps every virtual path to the
// physical paths that realize it across all source roots. The index is built
// once by walking every root and is never modified afterward, so it can be
// queried by any number of goroutines. Metadata is never cached in the index:
// every query stats the candidates live.
//
// For example, given roots [a, b]:
//
//	where a:
//	  - /x.txt   (modified at T1)
//	  - /d/p
//
//	and where b:
//	  - /x.txt   (modified at T2 > T1)
//	  - /d/q
//
// Then the union provides:
//   - /x.txt  # from b, the newest copy
//   - /d/p    # from a
//   - /d/q    # from b
package unionfs

import (
	"context"
	"io/fs"
	"log/slog"
	"sort"
	"time"
)

// FileSystem is the set of read-only operations a protocol adapter needs.
// Paths are virtual paths; see Clean.
type FileSystem interface {
	// Returns the exposed metadata of a file or directory.
	GetAttributes(ctx context.Context, path string) (Attr, error)
	// Lists a directory. The result begins with "." and "..".
	ListDirectory(ctx context.Context, path string) ([]Entry, error)
	// Reads from the winning copy of a file at the given offset. Reading at
	// or past the end of the file returns 0, nil.
	ReadFileAt(ctx context.Context, path string, p []byte, off int64) (int, error)
}

// Kind is the type of a physical or virtual entry.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "other"
	}
}

// Stat is the metadata of one physical entry as reported by the host.
type Stat struct {
	Kind  Kind
	Mode  fs.FileMode // permission bits only
	Size  int64
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// Entry is one element of a directory listing.
type Entry struct {
	Name string
	Kind Kind
}

// ConflictPolicy decides what a name is when it is a regular file under one
// root and a directory under another.
type ConflictPolicy int

const (
	// PreferDirectory treats the name as a directory if any root has a
	// directory there.
	PreferDirectory ConflictPolicy = iota
	// PreferFile treats the name as the newest regular file if any root has
	// a file there.
	PreferFile
)

func (p ConflictPolicy) String() string {
	if p == PreferFile {
		return "prefer-file"
	}
	return "prefer-directory"
}

func (p ConflictPolicy) kind(sawFile, sawDir bool) Kind {
	switch {
	case sawFile && sawDir && p == PreferFile:
		return KindFile
	case sawDir:
		return KindDir
	case sawFile:
		return KindFile
	default:
		return KindOther
	}
}

type Option func(ix *Index)

func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		ix.logger = l
	}
}

func WithConflictPolicy(p ConflictPolicy) Option {
	return func(ix *Index) {
		ix.policy = p
	}
}

// WithOpenFileCache keeps up to n winning files open between reads. Zero
// opens and closes the file on every read.
func WithOpenFileCache(n int) Option {
	return func(ix *Index) {
		ix.maxOpenFiles = n
	}
}

// Index is the union of a set of source roots. It is immutable once Build
// returns.
type Index struct {
	roots   []string
	entries map[string][]string

	policy       ConflictPolicy
	maxOpenFiles int
	files        *openFiles
	logger       *slog.Logger
}

var _ FileSystem = (*Index)(nil)

// Roots returns the physical source roots in order.
func (ix *Index) Roots() []string {
	return append([]string(nil), ix.roots...)
}

// Policy returns the conflict policy used for type conflicts.
func (ix *Index) Policy() ConflictPolicy { return ix.policy }

// Candidates returns the physical paths that realize a virtual path, in the
// order they were discovered.
func (ix *Index) Candidates(path string) ([]string, bool) {
	c, ok := ix.entries[Clean(path)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), c...), true
}

// Paths returns every virtual path in the index, sorted.
func (ix *Index) Paths() []string {
	paths := make([]string, 0, len(ix.entries))
	for p := range ix.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close releases files kept open by the open file cache. Reads after Close
// still succeed but open the source file for each read.
func (ix *Index) Close() error {
	if ix.files != nil {
		ix.files.purge()
	}
	return nil
}

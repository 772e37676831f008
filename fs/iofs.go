package fs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/jeffh/mergefs/fs/unionfs"
)

// IOFS exposes a union file system as an io/fs file system, so it can be
// used with fs.WalkDir, fs.ReadFile, http.FS and friends. Every call uses ctx.
func IOFS(ctx context.Context, f unionfs.FileSystem) fs.FS {
	return &ioFS{ctx: ctx, underlying: f}
}

type ioFS struct {
	ctx        context.Context
	underlying unionfs.FileSystem
}

var (
	_ fs.ReadDirFS = (*ioFS)(nil)
	_ fs.StatFS    = (*ioFS)(nil)
)

func virtualPath(name string) string {
	if name == "." {
		return unionfs.Root
	}
	return unionfs.Root + name
}

func baseName(name string) string {
	if name == "." {
		return "."
	}
	return path.Base(name)
}

func (r *ioFS) stat(op, name string) (*fileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	a, err := r.underlying.GetAttributes(r.ctx, virtualPath(name))
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	return &fileInfo{name: baseName(name), attr: a}, nil
}

func (r *ioFS) Open(name string) (fs.File, error) {
	info, err := r.stat("open", name)
	if err != nil {
		return nil, err
	}
	return &ioFile{fsys: r, name: name, info: info}, nil
}

func (r *ioFS) Stat(name string) (fs.FileInfo, error) {
	info, err := r.stat("stat", name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *ioFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	dir := virtualPath(name)
	entries, err := r.underlying.ListDirectory(r.ctx, dir)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	result := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		a, err := r.underlying.GetAttributes(r.ctx, unionfs.Join(dir, e.Name))
		if errors.Is(err, unionfs.ErrNotFound) {
			// removed from every source since the listing
			continue
		}
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
		}
		result = append(result, fs.FileInfoToDirEntry(&fileInfo{name: e.Name, attr: a}))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

type fileInfo struct {
	name string
	attr unionfs.Attr
}

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return i.attr.Size }
func (i *fileInfo) Mode() fs.FileMode  { return i.attr.Mode }
func (i *fileInfo) ModTime() time.Time { return i.attr.Mtime }
func (i *fileInfo) IsDir() bool        { return i.attr.IsDir() }
func (i *fileInfo) Sys() any           { return i.attr }

type ioFile struct {
	fsys   *ioFS
	name   string
	info   *fileInfo
	offset int64

	entries []fs.DirEntry
	listed  bool
}

var (
	_ fs.ReadDirFile = (*ioFile)(nil)
	_ io.ReaderAt    = (*ioFile)(nil)
)

func (f *ioFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *ioFile) Close() error               { return nil }

func (f *ioFile) ReadAt(p []byte, off int64) (int, error) {
	if f.info.IsDir() {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrInvalid}
	}
	total := 0
	for total < len(p) {
		n, err := f.fsys.underlying.ReadFileAt(f.fsys.ctx, virtualPath(f.name), p[total:], off+int64(total))
		total += n
		if err != nil {
			return total, &fs.PathError{Op: "read", Path: f.name, Err: err}
		}
		if n == 0 {
			return total, io.EOF
		}
	}
	return total, nil
}

func (f *ioFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (f *ioFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.info.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: f.name, Err: errors.New("not a directory")}
	}
	if !f.listed {
		entries, err := f.fsys.ReadDir(f.name)
		if err != nil {
			return nil, err
		}
		f.entries, f.listed = entries, true
	}
	if n <= 0 {
		rest := f.entries
		f.entries = nil
		return rest, nil
	}
	if len(f.entries) == 0 {
		return nil, io.EOF
	}
	if n > len(f.entries) {
		n = len(f.entries)
	}
	batch := f.entries[:n]
	f.entries = f.entries[n:]
	return batch, nil
}

// Mounts a union file system as a read-only, user-space local file system
// (using FUSE)
package fuse

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"syscall"
	"time"

	fs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/jeffh/mergefs/fs/unionfs"
)

// A helper function for starting a fuse mount point. It blocks until the
// file system is unmounted, and unmounts it when ctx is cancelled.
func MountAndServeFS(ctx context.Context, f unionfs.FileSystem, mountpoint string, cfg *FsConfig) error {
	if cfg == nil {
		cfg = &FsConfig{}
	}
	root := NewRoot(f, cfg)

	srv, err := fs.Mount(mountpoint, root, cfg.options())
	if err != nil {
		return err
	}
	cfg.logger().Info("fuse.Mount", slog.String("mountpoint", mountpoint))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := srv.Unmount(); err != nil {
				cfg.logger().Error("fuse.Unmount", slog.String("mountpoint", mountpoint), slog.String("err", err.Error()))
			}
		case <-done:
		}
	}()

	srv.Wait()
	cfg.logger().Info("fuse.Unmounted", slog.String("mountpoint", mountpoint))
	return nil
}

type FsConfig struct {
	Logger *slog.Logger

	// Name reported as the mount source, defaults to "mergefs"
	FsName string
	// Extra mount options passed to the kernel. "ro" is always added.
	Options    []string
	AllowOther bool
	// Print every fuse request and response
	Debug bool

	AttrTimeout  time.Duration
	EntryTimeout time.Duration
}

func (c *FsConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *FsConfig) options() *fs.Options {
	name := c.FsName
	if name == "" {
		name = "mergefs"
	}
	attrTimeout, entryTimeout := c.AttrTimeout, c.EntryTimeout
	return &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     name,
			Name:       "mergefs",
			AllowOther: c.AllowOther,
			Debug:      c.Debug,
			Options:    append([]string{"ro"}, c.Options...),
		},
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
	}
}

// NewRoot returns the root node of the union, which can be passed to fs.Mount.
func NewRoot(f unionfs.FileSystem, cfg *FsConfig) *Dir {
	return &Dir{fs: f, path: unionfs.Root, config: cfg}
}

///////////////////////////////////////////////////////////

var _ fs.NodeGetattrer = (*Dir)(nil)
var _ fs.NodeLookuper = (*Dir)(nil)
var _ fs.NodeReaddirer = (*Dir)(nil)

type Dir struct {
	fs.Inode
	fs     unionfs.FileSystem
	path   string
	config *FsConfig
}

func (n *Dir) Getattr(ctx context.Context, h fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, err := n.fs.GetAttributes(ctx, n.path)
	if err != nil {
		return mapErr(n.config.logger(), err, syscall.EIO)
	}
	fillAttr(&out.Attr, a)
	out.SetTimeout(n.config.AttrTimeout)
	return 0
}

func (n *Dir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := unionfs.Join(n.path, name)
	a, err := n.fs.GetAttributes(ctx, path)
	if err != nil {
		return nil, mapErr(n.config.logger(), err, syscall.EIO)
	}
	fillAttr(&out.Attr, a)
	out.SetEntryTimeout(n.config.EntryTimeout)
	out.SetAttrTimeout(n.config.AttrTimeout)

	if a.IsDir() {
		node := &Dir{fs: n.fs, path: path, config: n.config}
		return n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
	}
	node := &File{fs: n.fs, path: path, config: n.config}
	return n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFREG}), 0
}

func (n *Dir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	infos, err := n.fs.ListDirectory(ctx, n.path)
	if err != nil {
		return nil, mapErr(n.config.logger(), err, syscall.EIO)
	}

	entries := make([]fuse.DirEntry, 0, len(infos))
	for _, info := range infos {
		// go-fuse adds . and .. itself
		if info.Name == "." || info.Name == ".." {
			continue
		}
		entries = append(entries, fuse.DirEntry{
			Mode: kindToMode(info.Kind),
			Name: info.Name,
		})
	}
	return fs.NewListDirStream(entries), 0
}

///////////////////////////////////////////////////////////////

var _ fs.NodeGetattrer = (*File)(nil)
var _ fs.NodeOpener = (*File)(nil)
var _ fs.NodeReader = (*File)(nil)

type File struct {
	fs.Inode
	fs     unionfs.FileSystem
	path   string
	config *FsConfig
}

func (n *File) Getattr(ctx context.Context, h fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, err := n.fs.GetAttributes(ctx, n.path)
	if err != nil {
		return mapErr(n.config.logger(), err, syscall.EIO)
	}
	fillAttr(&out.Attr, a)
	out.SetTimeout(n.config.AttrTimeout)
	return 0
}

func (n *File) Open(ctx context.Context, flags uint32) (fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	if flags&syscall.O_ACCMODE != syscall.O_RDONLY || flags&syscall.O_TRUNC != 0 {
		return nil, 0, syscall.EROFS
	}
	// source trees don't change while mounted
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *File) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	c, err := n.fs.ReadFileAt(ctx, n.path, dest, off)
	if err != nil {
		return nil, mapErr(n.config.logger(), err, syscall.EIO)
	}
	return fuse.ReadResultData(dest[:c]), 0
}

///////////////////////////////////////////////////////////////////

func kindToMode(k unionfs.Kind) uint32 {
	switch k {
	case unionfs.KindDir:
		return fuse.S_IFDIR
	case unionfs.KindFile:
		return fuse.S_IFREG
	default:
		return 0
	}
}

func fillAttr(out *fuse.Attr, a unionfs.Attr) {
	out.Mode = kindToMode(a.Kind) | uint32(a.Mode.Perm())
	out.Size = uint64(a.Size)
	out.Blocks = (out.Size + 511) / 512
	out.Nlink = a.Nlink
	out.Owner = fuse.Owner{Uid: a.Uid, Gid: a.Gid}
	out.SetTimes(&a.Atime, &a.Mtime, &a.Ctime)
}

func mapErr(l *slog.Logger, err error, defErr syscall.Errno) syscall.Errno {
	if err == nil {
		return 0
	}
	if errors.Is(err, unionfs.ErrNotFound) {
		return syscall.ENOENT
	}
	if errors.Is(err, unionfs.ErrIO) {
		l.Error("fuse.io", slog.String("err", err.Error()))
		return syscall.EIO
	}
	if errors.Is(err, os.ErrNotExist) {
		return syscall.ENOENT
	}
	if errors.Is(err, os.ErrInvalid) {
		return syscall.EINVAL
	}
	if errors.Is(err, os.ErrPermission) {
		return syscall.EACCES
	}
	l.Error("fuse.unmappedError", slog.String("err", err.Error()))
	return defErr
}

package unionfs

import (
	"context"
	"io/fs"
	"time"
)

const (
	// FilePerm is the permission every exposed regular file reports.
	FilePerm fs.FileMode = 0o444
	// DirPerm is the permission every exposed directory reports.
	DirPerm fs.FileMode = 0o555
)

// Attr is the metadata exposed for a virtual path.
type Attr struct {
	Kind  Kind
	Mode  fs.FileMode
	Size  int64
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func (a Attr) IsDir() bool { return a.Kind == KindDir }

// Expose converts the physical metadata of a winner into the metadata the
// union reports. Permission bits are always replaced: files are read-only
// for everyone and directories are read and traverse only, whatever the
// physical mode is.
func Expose(st Stat) Attr {
	a := Attr{
		Kind:  st.Kind,
		Size:  st.Size,
		Uid:   st.Uid,
		Gid:   st.Gid,
		Atime: st.Atime,
		Mtime: st.Mtime,
		Ctime: st.Ctime,
	}
	if st.Kind == KindDir {
		a.Mode = fs.ModeDir | DirPerm
		a.Nlink = 2
	} else {
		a.Mode = FilePerm
		a.Nlink = 1
	}
	return a
}

// GetAttributes returns the exposed metadata of the winner for path.
func (ix *Index) GetAttributes(ctx context.Context, path string) (Attr, error) {
	w, err := ix.Resolve(path)
	if err != nil {
		if !isNotFound(err) {
			ix.logger.ErrorContext(ctx, "unionfs.GetAttributes", "path", path, "err", err)
		}
		return Attr{}, err
	}
	return Expose(w.Stat), nil
}

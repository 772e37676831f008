//go:build !linux

package unionfs

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
)

func statPath(path string) (Stat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stat{}, err
	}
	kind := KindOther
	if info.Mode().IsRegular() {
		kind = KindFile
	} else if info.IsDir() {
		kind = KindDir
	}
	return Stat{
		Kind:  kind,
		Mode:  info.Mode().Perm(),
		Size:  info.Size(),
		Atime: info.ModTime(),
		Mtime: info.ModTime(),
		Ctime: info.ModTime(),
	}, nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func openSource(path string) (*os.File, error) {
	return os.Open(path)
}

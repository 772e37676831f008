package unionfs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when a virtual path is not in the index, or
	// resolves to a type the operation cannot serve.
	ErrNotFound = fmt.Errorf("%w: no such virtual path", fs.ErrNotExist)
	// ErrIO wraps failures of the underlying file system on a resolved path.
	ErrIO = errors.New("i/o error")
	// ErrConfiguration is returned at startup for bad source roots. It is
	// never returned once the index is built.
	ErrConfiguration = errors.New("configuration error")
)

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}

func ioError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}

func configError(format string, values ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, values...))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package fs

import (
	"context"
	"log/slog"

	"github.com/jeffh/mergefs/fs/unionfs"
)

// Returns a trace file system the wraps a given file system.
//
// The trace file system logs the beginning (at debug level) and the result
// of every operation to the logger. Failed operations are logged at error
// level.
func TraceFs(fsys unionfs.FileSystem, l *slog.Logger) unionfs.FileSystem {
	return &traceFileSystem{fsys, l}
}

// traceLog is a helper that logs begin/result for an operation.
func traceLog(ctx context.Context, l *slog.Logger, op string, err error, attrs ...slog.Attr) {
	if l == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		l.LogAttrs(ctx, slog.LevelError, op, attrs...)
	} else {
		l.LogAttrs(ctx, slog.LevelInfo, op, attrs...)
	}
}

func traceBegin(ctx context.Context, l *slog.Logger, op string, attrs ...slog.Attr) {
	if l != nil {
		l.LogAttrs(ctx, slog.LevelDebug, op+".begin", attrs...)
	}
}

type traceFileSystem struct {
	Fs     unionfs.FileSystem
	Logger *slog.Logger
}

var _ unionfs.FileSystem = (*traceFileSystem)(nil)

func (f *traceFileSystem) GetAttributes(ctx context.Context, path string) (unionfs.Attr, error) {
	traceBegin(ctx, f.Logger, "FS.GetAttributes", slog.String("path", path))
	a, err := f.Fs.GetAttributes(ctx, path)
	traceLog(ctx, f.Logger, "FS.GetAttributes", err,
		slog.String("path", path),
		slog.String("kind", a.Kind.String()),
		slog.Int64("size", a.Size),
	)
	return a, err
}

func (f *traceFileSystem) ListDirectory(ctx context.Context, path string) ([]unionfs.Entry, error) {
	traceBegin(ctx, f.Logger, "FS.ListDirectory", slog.String("path", path))
	entries, err := f.Fs.ListDirectory(ctx, path)
	traceLog(ctx, f.Logger, "FS.ListDirectory", err, slog.String("path", path), slog.Int("entries", len(entries)))
	return entries, err
}

func (f *traceFileSystem) ReadFileAt(ctx context.Context, path string, p []byte, off int64) (int, error) {
	attrs := []slog.Attr{slog.String("path", path), slog.Int64("offset", off), slog.Int("len", len(p))}
	traceBegin(ctx, f.Logger, "FS.ReadFileAt", attrs...)
	n, err := f.Fs.ReadFileAt(ctx, path, p, off)
	traceLog(ctx, f.Logger, "FS.ReadFileAt", err, append(attrs, slog.Int("n", n))...)
	return n, err
}

package fs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jeffh/mergefs/fs/unionfs"
)

func newIOFS(t *testing.T) fs.FS {
	t.Helper()
	a, b := t.TempDir(), t.TempDir()
	mtime := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	files := []struct {
		path, content string
		mtime         time.Time
	}{
		{filepath.Join(a, "x.txt"), "old", mtime},
		{filepath.Join(b, "x.txt"), "newer copy", mtime.Add(time.Minute)},
		{filepath.Join(a, "d", "p"), "p", mtime},
		{filepath.Join(b, "d", "q"), "q", mtime},
		{filepath.Join(b, "d", "e", "deep"), "deep", mtime},
	}
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(f.path, f.mtime, f.mtime); err != nil {
			t.Fatal(err)
		}
	}
	ix, err := unionfs.Build([]string{a, b}, unionfs.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return IOFS(context.Background(), ix)
}

func TestIOFSConformance(t *testing.T) {
	fsys := newIOFS(t)
	if err := fstest.TestFS(fsys, "x.txt", "d/p", "d/q", "d/e/deep"); err != nil {
		t.Fatal(err)
	}
}

func TestIOFSServesUnion(t *testing.T) {
	fsys := newIOFS(t)

	data, err := fs.ReadFile(fsys, "x.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "newer copy" {
		t.Errorf("ReadFile(x.txt) => %q, expected %q", data, "newer copy")
	}

	var walked []string
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		walked = append(walked, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{".", "d", "d/e", "d/e/deep", "d/p", "d/q", "x.txt"}
	if diff := cmp.Diff(expected, walked); diff != "" {
		t.Errorf("WalkDir mismatch (-want +got):\n%s", diff)
	}

	info, err := fs.Stat(fsys, "d/p")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode() != 0o444 {
		t.Errorf("Stat(d/p).Mode() => %v, expected %v", info.Mode(), fs.FileMode(0o444))
	}
	if _, err := fs.Stat(fsys, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(missing) => %v, expected ErrNotExist", err)
	}
}

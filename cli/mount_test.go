package cli

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/jeffh/mergefs/fs/unionfs"
)

func parse(t *testing.T, args ...string) *MountConfig {
	t.Helper()
	var cfg MountConfig
	set := flag.NewFlagSet("mergefs", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	cfg.SetFlags(&StdFlags{Set: set})
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	cfg.Stderr = io.Discard
	return &cfg
}

func TestMountConfigDefaults(t *testing.T) {
	cfg := parse(t)
	if cfg.OpenFiles != 64 {
		t.Errorf("OpenFiles => %d, expected 64", cfg.OpenFiles)
	}
	if cfg.AttrTimeout != time.Second {
		t.Errorf("AttrTimeout => %v, expected 1s", cfg.AttrTimeout)
	}
	if cfg.FsName != "mergefs" {
		t.Errorf("FsName => %q, expected mergefs", cfg.FsName)
	}
	if cfg.LogLevel != "info" || cfg.PreferFiles || cfg.Dump || cfg.Trace {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestMountConfigFlags(t *testing.T) {
	cfg := parse(t, "--src", "/a:/b", "-o", "noatime, default_permissions", "-prefer-files", "-open-files", "3", "-attr-timeout", "5s", "-fsname", "media", "/mnt")
	if cfg.Sources != "/a:/b" {
		t.Errorf("Sources => %q", cfg.Sources)
	}
	if !cfg.PreferFiles || cfg.OpenFiles != 3 || cfg.AttrTimeout != 5*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
	fc := cfg.FsConfig(nil)
	if diff := cmp.Diff([]string{"noatime", "default_permissions"}, fc.Options); diff != "" {
		t.Errorf("mount options mismatch (-want +got):\n%s", diff)
	}
	if fc.FsName != "media" {
		t.Errorf("FsName => %q, expected media", fc.FsName)
	}
	if fc.EntryTimeout != 5*time.Second {
		t.Errorf("EntryTimeout => %v", fc.EntryTimeout)
	}
}

func TestCreateLogger(t *testing.T) {
	var tcs = []struct {
		level string
		ok    bool
	}{
		{"", true},
		{"debug", true},
		{"INFO", true},
		{"warn", true},
		{"error", true},
		{"loud", false},
	}
	for _, tc := range tcs {
		_, err := CreateLogger(tc.level, "", io.Discard)
		if tc.ok && err != nil {
			t.Errorf("CreateLogger(%q) => %v, expected no error", tc.level, err)
		}
		if !tc.ok && !errors.Is(err, unionfs.ErrConfiguration) {
			t.Errorf("CreateLogger(%q) => %v, expected a configuration error", tc.level, err)
		}
	}
}

func TestCreateLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := CreateLogger("warn", "mergefs", &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown app=mergefs") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestBuildIndexRequiresSources(t *testing.T) {
	cfg := parse(t)
	l, _ := cfg.CreateLogger()
	if _, err := cfg.BuildIndex(l); !errors.Is(err, unionfs.ErrConfiguration) {
		t.Errorf("BuildIndex() with no -src => %v, expected a configuration error", err)
	}

	cfg = parse(t, "-src", t.TempDir(), "-open-files", "-1")
	if _, err := cfg.BuildIndex(l); !errors.Is(err, unionfs.ErrConfiguration) {
		t.Errorf("BuildIndex() with -open-files -1 => %v, expected a configuration error", err)
	}
}

func TestDump(t *testing.T) {
	color.NoColor = true
	var a, b string
	for _, p := range []*string{&a, &b} {
		dir, err := filepath.EvalSymlinks(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		*p = dir
	}
	old := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	for _, root := range []string{a, b} {
		p := filepath.Join(root, "shared.txt")
		if err := os.WriteFile(p, []byte(root), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
		old = old.Add(time.Hour)
	}
	if err := os.WriteFile(filepath.Join(a, "only-a"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := parse(t, "-src", a+string(os.PathListSeparator)+b, "-open-files", "0")
	l, _ := cfg.CreateLogger()
	ix, err := cfg.BuildIndex(l)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	var buf bytes.Buffer
	if err := Dump(&buf, ix); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"/ -> " + a + " [2 candidates]",
		"/only-a -> " + filepath.Join(a, "only-a"),
		"/shared.txt -> " + filepath.Join(b, "shared.txt") + " [2 candidates]",
	}
	if diff := cmp.Diff(expected, lines); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
}

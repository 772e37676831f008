package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	efuse "github.com/jeffh/mergefs/exportfs/fuse"
	cfs "github.com/jeffh/mergefs/fs"
	"github.com/jeffh/mergefs/fs/unionfs"
)

// MountConfig holds the command line configuration of a union mount.
type MountConfig struct {
	Sources      string
	MountOptions string
	AllowOther   bool
	FuseDebug    bool

	// Mount source name, also tagged on every log record
	FsName string

	LogLevel string
	Trace    bool

	PreferFiles bool
	OpenFiles   int
	AttrTimeout time.Duration

	Dump bool

	Stderr io.Writer
}

func (c *MountConfig) SetFlags(f Flags) {
	if f == nil {
		f = &StdFlags{}
	}
	f.StringVar(&c.Sources, "src", "", "Source directories to merge, separated by "+string(os.PathListSeparator)+" (required)")
	f.StringVar(&c.MountOptions, "o", "", "Extra comma separated FUSE mount options")
	f.BoolVar(&c.AllowOther, "allow-other", false, "Allow other users to access the mount")
	f.BoolVar(&c.FuseDebug, "fuse-debug", false, "Print every FUSE request to stderr")
	f.StringVar(&c.FsName, "fsname", "mergefs", "Name reported as the mount source")
	f.StringVar(&c.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.BoolVar(&c.Trace, "trace", false, "Log every file system operation")
	f.BoolVar(&c.PreferFiles, "prefer-files", false, "When a name is a file in one source and a directory in another, expose the file")
	f.IntVar(&c.OpenFiles, "open-files", 64, "Number of source files to keep open between reads, 0 disables")
	f.DurationVar(&c.AttrTimeout, "attr-timeout", time.Second, "How long the kernel may cache attributes and lookups")
	f.BoolVar(&c.Dump, "dump", false, "Print the merged index instead of mounting")
}

func (c *MountConfig) stderr() io.Writer {
	if c.Stderr == nil {
		return os.Stderr
	}
	return c.Stderr
}

// CreateLogger returns a text logger writing to w at the named level.
func CreateLogger(level, prefix string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: invalid log level %q", unionfs.ErrConfiguration, level)
		}
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	if prefix != "" {
		l = l.With(slog.String("app", prefix))
	}
	return l, nil
}

func (c *MountConfig) CreateLogger() (*slog.Logger, error) {
	return CreateLogger(c.LogLevel, c.FsName, c.stderr())
}

// Roots parses the -src flag. Relative sources are resolved against the
// working directory.
func (c *MountConfig) Roots() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", unionfs.ErrConfiguration, err)
	}
	return unionfs.ParseRoots(c.Sources, cwd)
}

func (c *MountConfig) BuildIndex(l *slog.Logger) (*unionfs.Index, error) {
	roots, err := c.Roots()
	if err != nil {
		return nil, err
	}
	if c.OpenFiles < 0 {
		return nil, fmt.Errorf("%w: -open-files must not be negative", unionfs.ErrConfiguration)
	}
	policy := unionfs.PreferDirectory
	if c.PreferFiles {
		policy = unionfs.PreferFile
	}
	return unionfs.Build(
		roots,
		unionfs.WithLogger(l),
		unionfs.WithConflictPolicy(policy),
		unionfs.WithOpenFileCache(c.OpenFiles),
	)
}

// FileSystem returns what gets mounted for ix.
func (c *MountConfig) FileSystem(ix *unionfs.Index, l *slog.Logger) unionfs.FileSystem {
	var fsys unionfs.FileSystem = ix
	if c.Trace {
		fsys = cfs.TraceFs(fsys, l)
	}
	return fsys
}

func (c *MountConfig) FsConfig(l *slog.Logger) *efuse.FsConfig {
	var opts []string
	for _, o := range strings.Split(c.MountOptions, ",") {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	return &efuse.FsConfig{
		Logger:       l,
		FsName:       c.FsName,
		Options:      opts,
		AllowOther:   c.AllowOther,
		Debug:        c.FuseDebug,
		AttrTimeout:  c.AttrTimeout,
		EntryTimeout: c.AttrTimeout,
	}
}

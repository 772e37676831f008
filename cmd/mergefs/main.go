package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jeffh/mergefs/cli"
	efuse "github.com/jeffh/mergefs/exportfs/fuse"
	_ "go.uber.org/automaxprocs"
)

func main() {
	var (
		cfg cli.MountConfig

		exitCode int
	)

	defer func() {
		os.Exit(exitCode)
	}()

	cfg.SetFlags(nil)

	flag.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "merge local directories into one read-only mount\n")
		fmt.Fprintf(w, "Usage: %s [OPTIONS] MOUNTPOINT\n", os.Args[0])
		fmt.Fprintf(w, "For files present in several sources, the most recently modified copy is served.\n\n")
		fmt.Fprintf(w, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !cfg.Dump && flag.NArg() != 1 {
		flag.Usage()
		exitCode = 1
		runtime.Goexit()
	}

	logger, err := cfg.CreateLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		exitCode = 1
		runtime.Goexit()
	}

	ix, err := cfg.BuildIndex(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		exitCode = 1
		runtime.Goexit()
	}
	defer ix.Close()

	if cfg.Dump {
		cli.SupportsColor(false)
		if err := cli.Dump(os.Stdout, ix); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			exitCode = 1
		}
		runtime.Goexit()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mountpoint := flag.Arg(0)
	err = efuse.MountAndServeFS(ctx, cfg.FileSystem(ix, logger), mountpoint, cfg.FsConfig(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %s\n", err)
		exitCode = 1
		runtime.Goexit()
	}
}

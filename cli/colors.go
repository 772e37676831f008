package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// SupportsColor disables colored output when stdout isn't a terminal or when
// noColorHint is set.
func SupportsColor(noColorHint bool) {
	fd := os.Stdout.Fd()
	color.NoColor = noColorHint || (!isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd))
}

var (
	dirColor      = color.New(color.FgBlue, color.Bold)
	conflictColor = color.New(color.FgYellow)
	errorColor    = color.New(color.FgRed)
	dimColor      = color.New(color.Faint)
)

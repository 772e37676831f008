package cli

import (
	"fmt"
	"io"

	"github.com/jeffh/mergefs/fs/unionfs"
)

// Dump prints every virtual path of ix with the physical path that currently
// wins it. Paths realized by more than one source are marked with their
// candidate count.
func Dump(w io.Writer, ix *unionfs.Index) error {
	for _, p := range ix.Paths() {
		candidates, _ := ix.Candidates(p)
		name := p
		winner, err := ix.Resolve(p)
		if err != nil {
			if _, err := fmt.Fprintf(w, "%s %s\n", name, errorColor.Sprint(err)); err != nil {
				return err
			}
			continue
		}
		if winner.Kind() == unionfs.KindDir {
			name = dirColor.Sprint(p)
		}
		line := fmt.Sprintf("%s %s %s", name, dimColor.Sprint("->"), winner.Path)
		if n := len(candidates); n > 1 {
			line += " " + conflictColor.Sprintf("[%d candidates]", n)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

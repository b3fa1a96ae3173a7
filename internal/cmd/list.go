package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak"
	"github.com/nguyengg/xpak/internal"
)

type List struct {
	Exhaustive bool `short:"e" long:"exhaustive" description:"walk every record instead of trusting the metadata's embedded index"`
	Args       struct {
		File flags.Filename `positional-arg-name:"INPUT_FILE" description:"the archive to list" required:"yes"`
	} `positional-args:"yes"`
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	name := string(c.Args.File)
	ctx, stop := notifyContext(name)
	defer stop()

	l, err := xpak.List(ctx, name, c.Exhaustive)
	if err != nil {
		return fmt.Errorf(`list "%s" error: %w`, name, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, f := range l.Files {
		_, _ = fmt.Fprintf(w, "%s\t%s\t\n", humanize.IBytes(f.Size), f.Path)
	}
	if err = w.Flush(); err != nil {
		return err
	}

	internal.MustLogger(ctx).Printf("%d files, %s in total (from %s)", len(l.Files), humanize.IBytes(l.TotalSize), l.Source)
	return nil
}

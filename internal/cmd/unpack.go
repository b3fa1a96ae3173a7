package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak"
	"github.com/nguyengg/xpak/internal"
	"github.com/nguyengg/xpak/util"
)

type Unpack struct {
	Files []string `short:"f" long:"file" description:"only extract the file with this exact path in the archive; can be given multiple times" value-name:"PATH"`
	IOOptions
	Args struct {
		File flags.Filename `positional-arg-name:"INPUT_FILE" description:"the archive to extract" required:"yes"`
		Dir  flags.Filename `positional-arg-name:"OUTPUT_DIR" description:"the directory to extract to; if not given, a new directory named after the archive is created in the working directory"`
	} `positional-args:"yes"`
}

func (c *Unpack) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ioCfg, err := c.IOOptions.load()
	if err != nil {
		return err
	}

	name := string(c.Args.File)
	ctx, stop := notifyContext(name)
	defer stop()
	logger := internal.MustLogger(ctx)

	dir := string(c.Args.Dir)
	created := false
	if dir == "" {
		stem, _ := util.StemAndExt(name)
		if dir, err = util.MkExclDir(".", stem, 0755); err != nil {
			return fmt.Errorf("create output directory error: %w", err)
		}
		created = true
	}

	p := newProgress(ctx, "extracted", "extracting")

	logger.Printf(`start extracting to "%s"`, dir)
	n, err := xpak.Unpack(ctx, name, dir, func(opts *xpak.UnpackOptions) {
		opts.Selected = c.Files
		opts.BufferSize = ioCfg.BufferSize
		opts.Threshold = ioCfg.Threshold
		opts.ProgressBar = p.bar
		opts.ProgressReporter = p.reporter()
	})
	_ = p.Close()
	if err != nil {
		// only removed if nothing was extracted into it.
		if created {
			_ = os.Remove(dir)
		}

		return fmt.Errorf(`unpack "%s" error (%d files extracted): %w`, name, n, err)
	}

	logger.Printf(`done extracting %d files to "%s"`, n, dir)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak"
	"github.com/nguyengg/xpak/internal"
	"github.com/nguyengg/xpak/internal/config"
	"github.com/nguyengg/xpak/util"
)

type Pack struct {
	Flat        bool   `short:"f" long:"flat" description:"discard the directory structure, keeping only the base name of each file; overrides [pack] flat"`
	Description string `short:"d" long:"description" description:"free-form description of the archive; overrides [pack] description"`
	Metadata    string `short:"m" long:"metadata" description:"user metadata as a JSON object, raw or base64-encoded" value-name:"JSON"`
	IOOptions
	Args struct {
		Dir  flags.Filename `positional-arg-name:"INPUT_DIR" description:"the directory to pack" required:"yes"`
		File flags.Filename `positional-arg-name:"OUTPUT_FILE" description:"the archive to create; if not given, a new file named after INPUT_DIR is created in the working directory"`
	} `positional-args:"yes"`
}

func (c *Pack) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	cfg, err := config.ForPack()
	if err != nil {
		return err
	}
	ioCfg, err := c.IOOptions.load()
	if err != nil {
		return err
	}

	dir := string(c.Args.Dir)
	name := string(c.Args.File)
	created := false
	if name == "" {
		f, err := util.OpenExclFile(".", filepath.Base(filepath.Clean(dir)), ".xpak", 0666)
		if err != nil {
			return fmt.Errorf("create archive error: %w", err)
		}
		name = f.Name()
		created = true
		_ = f.Close()
	}

	ctx, stop := notifyContext(name)
	defer stop()
	logger := internal.MustLogger(ctx)

	p := newProgress(ctx, "packed", "packing")

	logger.Printf(`start packing "%s"`, dir)
	err = xpak.Pack(ctx, dir, name, func(opts *xpak.PackOptions) {
		opts.Flatten = c.Flat || cfg.Flatten
		opts.Description = cfg.Description
		if c.Description != "" {
			opts.Description = &c.Description
		}
		opts.UserMetadata = c.Metadata
		opts.BufferSize = ioCfg.BufferSize
		opts.Threshold = ioCfg.Threshold
		opts.ProgressBar = p.bar
		opts.ProgressReporter = p.reporter()
	})
	_ = p.Close()
	if err != nil {
		// Pack only cleans up what it wrote; the placeholder may fail validation before that.
		if created {
			if rerr := os.Remove(name); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				logger.Printf(`clean up "%s" error: %v`, name, rerr)
			}
		}

		return fmt.Errorf(`pack "%s" error: %w`, dir, err)
	}

	if fi, err := os.Stat(name); err == nil {
		logger.Printf("done packing (%s)", humanize.IBytes(uint64(fi.Size())))
	} else {
		logger.Printf("done packing")
	}

	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak"
	"github.com/nguyengg/xpak/internal"
)

type Update struct {
	Description *string `short:"d" long:"description" description:"replace the description"`
	Metadata    string  `short:"m" long:"metadata" description:"user metadata to merge key by key, as a JSON object raw or base64-encoded" value-name:"JSON"`
	Regenerate  bool    `long:"regenerate" description:"rebuild the file index, files_count, and total_size by scanning every record"`
	IOOptions
	Args struct {
		File flags.Filename `positional-arg-name:"INPUT_FILE" description:"the archive to update" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Update) Execute(args []string) error {
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

	logger.Printf("start updating metadata")
	if err = xpak.UpdateMetadata(ctx, name, func(opts *xpak.UpdateOptions) {
		opts.Description = c.Description
		opts.UserMetadata = c.Metadata
		opts.RegenerateAll = c.Regenerate
		opts.BufferSize = ioCfg.BufferSize
	}); err != nil {
		return fmt.Errorf(`update "%s" error: %w`, name, err)
	}

	logger.Printf("done updating metadata")
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
)

type Metadata struct {
	Args struct {
		File flags.Filename `positional-arg-name:"INPUT_FILE" description:"the archive whose metadata is printed" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Metadata) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	return printMetadata(os.Stdout, string(c.Args.File))
}

// printMetadata prints the metadata section of the named archive as a tree.
//
// Only the magic and the metadata section are read so that archives with a damaged end marker or data region still
// have their metadata printed.
func printMetadata(w io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = format.ReadMagic(f); err != nil {
		return fmt.Errorf(`read "%s" error: %w`, name, err)
	}

	data, err := format.ReadMetadataSection(f)
	if err != nil {
		return fmt.Errorf(`read metadata of "%s" error: %w`, name, err)
	}

	return metadata.Tree(w, data)
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak"
)

type Structure struct {
	Args struct {
		File flags.Filename `positional-arg-name:"INPUT_FILE" description:"the archive to inspect" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Structure) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	name := string(c.Args.File)
	ctx, stop := notifyContext(name)
	defer stop()

	rep, err := xpak.Inspect(ctx, name)
	if rep != nil {
		printStructure(os.Stdout, name, rep)
	}
	if err != nil {
		return fmt.Errorf(`inspect "%s" error: %w`, name, err)
	}

	return nil
}

func printStructure(w io.Writer, name string, rep *xpak.StructureReport) {
	_, _ = fmt.Fprintf(w, "%s (%s)\n", name, humanize.IBytes(uint64(rep.Size)))

	if !rep.MagicValid {
		_, _ = fmt.Fprintf(w, "magic: %q (invalid)\n", rep.Magic[:])
		return
	}
	_, _ = fmt.Fprintf(w, "magic: %q\n", rep.Magic[:])

	if rep.MetadataLength < 0 {
		_, _ = fmt.Fprintf(w, "metadata: unreadable: %v\n", rep.MetadataErr)
		return
	}
	_, _ = fmt.Fprintf(w, "metadata: %d bytes\n", rep.MetadataLength)
	if rep.MetadataErr != nil {
		_, _ = fmt.Fprintf(w, "  error: %v\n", rep.MetadataErr)
	}
	if m := rep.Metadata; m != nil {
		_, _ = fmt.Fprintf(w, "  version: %s\n", m.ToolVersion)
		_, _ = fmt.Fprintf(w, "  format_version: %s\n", m.FormatVersion)
		_, _ = fmt.Fprintf(w, "  created_at: %s\n", m.CreatedAt)
		_, _ = fmt.Fprintf(w, "  files_count: %d\n", m.FilesCount)
		_, _ = fmt.Fprintf(w, "  total_size: %d (%s)\n", m.TotalSize, humanize.IBytes(m.TotalSize))
		if m.Description != nil {
			_, _ = fmt.Fprintf(w, "  description: %s\n", *m.Description)
		}
		if _, err := m.Index(); err != nil {
			_, _ = fmt.Fprintf(w, "  files: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(w, "  files: %d entries\n", len(m.Files))
		}
	}

	_, _ = fmt.Fprintf(w, "end marker: %q (%s)\n", rep.EndMarker[:], rep.EndMarkerStatus)

	if rep.DataOffset < 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "data: offset %d, %d bytes\n", rep.DataOffset, rep.DataSize)
	if rep.DeclaredCount < 0 {
		_, _ = fmt.Fprintf(w, "  file count: unreadable\n")
	} else if rep.Metadata != nil && !rep.CountMatches() {
		_, _ = fmt.Fprintf(w, "  file count: %d (metadata says %d)\n", rep.DeclaredCount, rep.Metadata.FilesCount)
	} else {
		_, _ = fmt.Fprintf(w, "  file count: %d\n", rep.DeclaredCount)
	}
	if rep.DataDigest != "" {
		_, _ = fmt.Fprintf(w, "  digest: %s\n", rep.DataDigest)
	}
}

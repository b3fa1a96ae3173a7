package xpak

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
)

// Source tells where a Listing came from.
type Source int

const (
	// SourceIndex means the listing was read from the metadata's embedded index.
	SourceIndex Source = iota
	// SourceScan means the listing was derived by walking every record.
	SourceScan
)

func (s Source) String() string {
	if s == SourceIndex {
		return "index"
	}

	return "scan"
}

// Listing is the file table of an archive.
type Listing struct {
	Files     []metadata.FileEntry
	TotalSize uint64
	Source    Source
}

// List returns the file table of the named archive.
//
// If exhaustive is false, the metadata's embedded index is used without touching the data region. If the index is
// absent, malformed, or disagrees with files_count, List falls back to scanning the records.
//
// If exhaustive is true, every record is visited with Scan and the total size is computed purely from the record
// lengths, ignoring everything the metadata claims.
func List(ctx context.Context, name string, exhaustive bool) (*Listing, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, format.NewIOError(name, err)
	}
	defer f.Close()

	r, err := format.NewReader(f, 0)
	if err != nil {
		return nil, format.NewIOError(name, err)
	}

	h, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}

	if !exhaustive {
		m, err := metadata.Decode(h.Metadata)
		if err != nil {
			return nil, err
		}

		files, err := m.Index()
		if err == nil {
			l := &Listing{Files: files, Source: SourceIndex}
			for _, e := range files {
				l.TotalSize += e.Size
			}
			return l, nil
		}

		if !errors.Is(err, metadata.ErrNoIndex) {
			return nil, err
		}

		log.Printf(`"%s": %v; scanning records instead`, name, err)
	}

	return Scan(ctx, r)
}

// Scan walks every record starting at the file count region and returns the file table.
//
// The content of each record is skipped with Reader.Discard. The context is checked before each record.
func Scan(ctx context.Context, r *format.Reader) (*Listing, error) {
	count, err := r.ReadCount()
	if err != nil {
		return nil, err
	}

	l := &Listing{Files: make([]metadata.FileEntry, 0, min(count, 1024)), Source: SourceScan}
	for i := uint32(0); i < count; i++ {
		if err = ctx.Err(); err != nil {
			return nil, format.NewCancelledError(err)
		}

		h, err := r.NextRecord()
		if err != nil {
			return nil, err
		}

		if err = r.Discard(h.Size); err != nil {
			return nil, err
		}

		l.Files = append(l.Files, metadata.FileEntry{Path: h.Path, Size: uint64(h.Size)})
		l.TotalSize += uint64(h.Size)
	}

	return l, nil
}

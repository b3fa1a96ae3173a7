package xpak

import (
	"context"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
	"github.com/opencontainers/go-digest"
)

// MarkerStatus is the state of the metadata end marker.
type MarkerStatus int

const (
	// MarkerValid means the end marker is present.
	MarkerValid MarkerStatus = iota
	// MarkerNotSupported means the end marker is absent but the format version predates it.
	MarkerNotSupported
	// MarkerCorrupt means the format version requires the end marker but it is absent; the archive is likely corrupted.
	MarkerCorrupt
	// MarkerUnknown means the end marker could not be checked because an earlier region is unreadable.
	MarkerUnknown
)

func (s MarkerStatus) String() string {
	switch s {
	case MarkerValid:
		return "valid"
	case MarkerNotSupported:
		return "not supported by this format version"
	case MarkerCorrupt:
		return "invalid, archive is likely corrupted"
	default:
		return "unknown"
	}
}

// StructureReport describes the regions of an archive.
type StructureReport struct {
	// Size is the size of the archive.
	Size int64

	Magic      [4]byte
	MagicValid bool

	// MetadataLength is the declared length of the metadata section, -1 if unreadable.
	MetadataLength int64
	// Metadata is the decoded metadata, nil if it could not be decoded in which case MetadataErr explains why.
	Metadata    *metadata.Metadata
	MetadataErr error
	// FormatVersion is the declared format version, zero if it could not be parsed.
	FormatVersion format.Version

	EndMarker       [8]byte
	EndMarkerStatus MarkerStatus

	// DataOffset is the offset of the file count region, -1 if unknown.
	DataOffset int64
	// DataSize is the number of bytes from DataOffset to the end of the archive.
	DataSize int64
	// DeclaredCount is the value of the file count region, -1 if unreadable.
	DeclaredCount int64
	// DataDigest is the SHA-256 digest of the data region (file count and records).
	DataDigest digest.Digest
}

// Inspect reads the named archive region by region without ever modifying it.
//
// Problems with the archive are reported in the StructureReport rather than as errors, with one exception: if the
// magic is wrong, nothing else can be trusted so the partial report is returned along with the format.KindBadMagic
// error. Errors are also returned if the file cannot be read.
func Inspect(ctx context.Context, name string) (*StructureReport, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, format.NewIOError(name, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, format.NewIOError(name, err)
	}

	rep := &StructureReport{
		Size:            fi.Size(),
		MetadataLength:  -1,
		EndMarkerStatus: MarkerUnknown,
		DataOffset:      -1,
		DeclaredCount:   -1,
	}

	if rep.Magic, err = format.ReadMagic(f); err != nil {
		return rep, err
	}
	rep.MagicValid = true

	data, err := format.ReadMetadataSection(f)
	if err != nil {
		rep.MetadataErr = err
		return rep, nil
	}
	rep.MetadataLength = int64(len(data))
	rep.Metadata, rep.MetadataErr = metadata.Decode(data)

	version, verr := format.PeekVersion(data)
	if verr == nil {
		rep.FormatVersion = version
	} else if rep.MetadataErr == nil {
		rep.MetadataErr = verr
	}

	offset := int64(len(format.Magic)+4) + rep.MetadataLength
	rep.EndMarker, err = format.ReadEndMarker(f, offset)
	switch {
	case err == nil:
		rep.EndMarkerStatus = MarkerValid
		offset += int64(len(format.EndMarker))
	case verr == nil && !version.HasEndMarker():
		rep.EndMarkerStatus = MarkerNotSupported
	case verr == nil:
		rep.EndMarkerStatus = MarkerCorrupt
	}

	rep.DataOffset = offset
	rep.DataSize = max(rep.Size-offset, 0)
	if _, err = f.Seek(offset, io.SeekStart); err != nil {
		return rep, format.NewIOError(name, err)
	}

	digester := digest.Canonical.Digester()
	if _, err = CopyBufferWithContext(ctx, digester.Hash(), f, nil); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return rep, format.NewCancelledError(err)
		}
		return rep, format.NewIOError(name, fmt.Errorf("digest data region error: %w", err))
	}
	rep.DataDigest = digester.Digest()

	if _, err = f.Seek(offset, io.SeekStart); err == nil {
		if count, err := format.ReadCount(f); err == nil {
			rep.DeclaredCount = int64(count)
		}
	}

	return rep, nil
}

// CountMatches returns true if the file count region agrees with the metadata's files_count.
func (r *StructureReport) CountMatches() bool {
	return r.Metadata != nil && r.DeclaredCount == int64(r.Metadata.FilesCount)
}

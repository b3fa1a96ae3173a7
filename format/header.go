package format

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Header is the decoded form of the magic, metadata section, and end marker.
type Header struct {
	// Version is the format_version declared by the metadata.
	Version Version
	// Metadata is the raw JSON of the metadata section.
	Metadata []byte
	// EndMarker is true if EndMarker was present and consumed.
	//
	// Always true for Version 1.1 and later. Can be true for 1.0 archives written by older tools that emitted the
	// marker while still declaring 1.0.
	EndMarker bool
}

// Size returns the number of bytes the header occupies in the archive, which is also the offset of the file count.
func (h *Header) Size() int64 {
	n := int64(len(Magic) + 4 + len(h.Metadata))
	if h.EndMarker {
		n += int64(len(EndMarker))
	}

	return n
}

// EncodeHeader returns the header bytes for the given metadata JSON: magic, length, JSON, and EndMarker.
func EncodeHeader(metadata []byte) []byte {
	b := make([]byte, 0, len(Magic)+4+len(metadata)+len(EndMarker))
	b = append(b, Magic...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(metadata)))
	b = append(b, metadata...)
	return append(b, EndMarker...)
}

// WriteHeader writes EncodeHeader(metadata) to w and returns the number of bytes written.
func WriteHeader(w io.Writer, metadata []byte) (int64, error) {
	if uint64(len(metadata)) > MaxRecordSize {
		return 0, fmt.Errorf("metadata is too large (%d bytes)", len(metadata))
	}

	n, err := w.Write(EncodeHeader(metadata))
	return int64(n), err
}

// ReadMagic reads the first 4 bytes and checks that they are Magic.
//
// The bytes are returned even if they mismatch so that diagnostic callers can print them.
func ReadMagic(r io.Reader) (magic [4]byte, err error) {
	if n, err := io.ReadFull(r, magic[:]); err != nil {
		return magic, truncated(0, len(magic), n, err)
	}

	if string(magic[:]) != Magic {
		return magic, &Error{Kind: KindBadMagic, Offset: 0, Err: fmt.Errorf("got %q", magic[:])}
	}

	return magic, nil
}

// ReadMetadataSection reads the length-prefixed metadata JSON that follows the magic.
//
// The JSON is not validated. The buffer grows as bytes arrive so a corrupted length cannot cause a huge allocation up
// front.
func ReadMetadataSection(r io.Reader) ([]byte, error) {
	var b [4]byte
	if n, err := io.ReadFull(r, b[:]); err != nil {
		return nil, truncated(int64(len(Magic)), len(b), n, err)
	}

	size := int64(binary.LittleEndian.Uint32(b[:]))

	var buf bytes.Buffer
	if n, err := io.CopyN(&buf, r, size); err != nil {
		return nil, truncated(int64(len(Magic)+4), int(size), int(n), err)
	}

	return buf.Bytes(), nil
}

// ReadEndMarker reads 8 bytes at offset and checks that they are EndMarker.
//
// The bytes are returned even if they mismatch.
func ReadEndMarker(r io.Reader, offset int64) (marker [8]byte, err error) {
	if n, err := io.ReadFull(r, marker[:]); err != nil {
		return marker, truncated(offset, len(marker), n, err)
	}

	if string(marker[:]) != EndMarker {
		return marker, &Error{Kind: KindBadEndMarker, Offset: offset, Err: fmt.Errorf("got %q", marker[:])}
	}

	return marker, nil
}

// PeekVersion extracts and parses the format_version field from the metadata JSON.
//
// Only format_version is decoded; the rest of the metadata is left to package metadata.
func PeekVersion(metadata []byte) (Version, error) {
	var v struct {
		FormatVersion string `json:"format_version"`
	}
	if err := json.Unmarshal(metadata, &v); err != nil {
		return Version{}, &Error{Kind: KindInvalidJSON, Offset: int64(len(Magic) + 4), Err: err}
	}

	return ParseVersion(v.FormatVersion)
}

type peeker interface {
	Peek(n int) ([]byte, error)
}

// ReadHeader decodes the magic, metadata section, and end marker.
//
// The end marker is only required if the declared format version is 1.1 or later. For 1.0 archives, if r implements
// Peek (such as bufio.Reader or Reader) and the next 8 bytes happen to be EndMarker, they are consumed as well.
func ReadHeader(r io.Reader) (*Header, error) {
	if _, err := ReadMagic(r); err != nil {
		return nil, err
	}

	metadata, err := ReadMetadataSection(r)
	if err != nil {
		return nil, err
	}

	h := &Header{Metadata: metadata}
	if h.Version, err = PeekVersion(metadata); err != nil {
		return nil, err
	}

	offset := h.Size()
	if h.Version.HasEndMarker() {
		if _, err = ReadEndMarker(r, offset); err != nil {
			return nil, err
		}

		h.EndMarker = true
		return h, nil
	}

	if p, ok := r.(peeker); ok {
		if b, err := p.Peek(len(EndMarker)); err == nil && string(b) == EndMarker {
			if _, err = ReadEndMarker(r, offset); err != nil {
				return nil, err
			}

			h.EndMarker = true
		}
	}

	return h, nil
}

package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// RecordHeader is the path and content length of a record.
//
// The content itself immediately follows the header in the archive.
type RecordHeader struct {
	Path string
	Size int64
	// Offset is the offset of the record in the archive, or -1 if unknown.
	Offset int64
}

// WriteCount writes the file count region.
func WriteCount(w io.Writer, n uint32) error {
	_, err := w.Write(binary.LittleEndian.AppendUint32(nil, n))
	return err
}

// ReadCount reads the file count region.
func ReadCount(r io.Reader) (uint32, error) {
	var b [4]byte
	if n, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncated(-1, len(b), n, err)
	}

	return binary.LittleEndian.Uint32(b[:]), nil
}

// WriteRecordHeader writes the path length, path, and content length of a record.
//
// The caller must follow with exactly size bytes of content.
func WriteRecordHeader(w io.Writer, path string, size int64) error {
	if size < 0 || size > MaxRecordSize {
		return &Error{Kind: KindRecordTooLarge, Offset: -1, Path: path, Actual: size}
	}
	if uint64(len(path)) > MaxPathSize {
		return &Error{Kind: KindRecordTooLarge, Offset: -1, Path: path, Actual: int64(len(path))}
	}

	b := make([]byte, 0, 8+len(path))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(path)))
	b = append(b, path...)
	b = binary.LittleEndian.AppendUint32(b, uint32(size))

	_, err := w.Write(b)
	return err
}

// EncodeRecord returns the bytes of a complete record.
func EncodeRecord(path string, content []byte) ([]byte, error) {
	if int64(len(content)) > MaxRecordSize {
		return nil, &Error{Kind: KindRecordTooLarge, Offset: -1, Path: path, Actual: int64(len(content))}
	}

	b := make([]byte, 0, 8+len(path)+len(content))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(path)))
	b = append(b, path...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(content)))
	return append(b, content...), nil
}

// ReadRecordHeader reads the path length, path, and content length of the next record.
//
// The path bytes are read raw and must be valid UTF-8, otherwise a KindInvalidPath error is returned. The returned
// RecordHeader.Offset is -1; Reader.NextRecord fills it in.
func ReadRecordHeader(r io.Reader) (RecordHeader, error) {
	h := RecordHeader{Offset: -1}

	var b [4]byte
	if n, err := io.ReadFull(r, b[:]); err != nil {
		return h, truncated(-1, len(b), n, err)
	}

	size := int64(binary.LittleEndian.Uint32(b[:]))

	var buf bytes.Buffer
	if n, err := io.CopyN(&buf, r, size); err != nil {
		return h, truncated(-1, int(size), int(n), err)
	}

	path := buf.Bytes()
	if !utf8.Valid(path) {
		return h, &Error{Kind: KindInvalidPath, Offset: -1, Err: fmt.Errorf("path bytes %q", path)}
	}
	h.Path = string(path)

	if n, err := io.ReadFull(r, b[:]); err != nil {
		return h, truncated(-1, len(b), n, err)
	}
	h.Size = int64(binary.LittleEndian.Uint32(b[:]))

	return h, nil
}

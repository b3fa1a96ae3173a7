package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DefaultReaderSize is the default buffer size of Reader.
const DefaultReaderSize = 64 * 1024

// Reader is a buffered reader over an archive that keeps track of its absolute offset.
//
// Unlike bufio.Reader, Reader.Discard skips over bytes that are not already buffered with a relative seek so that
// skipping a record's content never reads it into memory.
type Reader struct {
	rs   io.ReadSeeker
	br   *bufio.Reader
	off  int64
	size int64
}

// NewReader returns a Reader that starts at the current offset of rs.
//
// The size of rs is determined by seeking to the end and back, so Reader.Discard can detect truncated archives.
func NewReader(rs io.ReadSeeker, bufferSize int) (*Reader, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultReaderSize
	}

	off, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek current error: %w", err)
	}

	size, err := rs.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = rs.Seek(off, io.SeekStart)
	}
	if err != nil {
		return nil, fmt.Errorf("determine size error: %w", err)
	}

	return &Reader{rs: rs, br: bufio.NewReaderSize(rs, bufferSize), off: off, size: size}, nil
}

// Offset returns the absolute offset of the next byte to be read.
func (r *Reader) Offset() int64 {
	return r.off
}

// Size returns the size of the underlying io.ReadSeeker when the Reader was created.
func (r *Reader) Size() int64 {
	return r.size
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.br.Read(p)
	r.off += int64(n)
	return
}

// Peek returns the next n bytes without advancing the reader.
func (r *Reader) Peek(n int) ([]byte, error) {
	return r.br.Peek(n)
}

// Discard skips the next n bytes.
//
// Bytes that are already buffered are dropped from the buffer; the rest are skipped with a relative seek. Returns a
// KindTruncated error if that would go past the end of the archive.
func (r *Reader) Discard(n int64) error {
	if n < 0 {
		return fmt.Errorf("negative discard: %d", n)
	}

	if remaining := r.size - r.off; n > remaining {
		return &Error{Kind: KindTruncated, Offset: r.off, Expected: n, Actual: max(remaining, 0)}
	}

	buffered := int64(r.br.Buffered())
	if n <= buffered {
		d, err := r.br.Discard(int(n))
		r.off += int64(d)
		return err
	}

	d, _ := r.br.Discard(int(buffered))
	r.off += int64(d)
	n -= int64(d)

	if _, err := r.rs.Seek(n, io.SeekCurrent); err != nil {
		return &Error{Kind: KindIO, Offset: r.off, Err: fmt.Errorf("seek error: %w", err)}
	}

	r.br.Reset(r.rs)
	r.off += n
	return nil
}

// ReadHeader calls ReadHeader on r.
func (r *Reader) ReadHeader() (*Header, error) {
	return ReadHeader(r)
}

// ReadCount calls ReadCount on r, filling in the offset of any error.
func (r *Reader) ReadCount() (uint32, error) {
	off := r.off
	n, err := ReadCount(r)
	return n, withOffset(err, off)
}

// NextRecord reads the header of the next record.
//
// The caller must then consume exactly RecordHeader.Size bytes of content, by reading or with Discard, before calling
// NextRecord again.
func (r *Reader) NextRecord() (RecordHeader, error) {
	off := r.off
	h, err := ReadRecordHeader(r)
	h.Offset = off
	return h, withOffset(err, off)
}

// Content returns an io.Reader limited to the content of the record whose header was just read.
func (r *Reader) Content(h RecordHeader) io.Reader {
	return io.LimitReader(r, h.Size)
}

func withOffset(err error, off int64) error {
	var e *Error
	if errors.As(err, &e) && e.Offset < 0 {
		e.Offset = off
	}

	return err
}

package xpak

import (
	"context"
	"fmt"
	"io"
)

const (
	// DefaultBufferSize is the size of the reusable buffer for copying small record contents, which is 64 KiB.
	DefaultBufferSize = 64 * 1024
	// DefaultThreshold is the content length at or above which a record's content is copied in bulk with io.CopyN
	// instead of being chunked through the reusable buffer, which is 1 MiB.
	DefaultThreshold = 1024 * 1024
)

// copier implements the content copy policy shared by Pack and Unpack.
//
// Content at or above threshold goes through io.CopyN so that io.ReaderFrom/io.WriterTo fast paths can kick in;
// smaller content is chunked through buf. The resulting bytes are identical either way.
type copier struct {
	buf       []byte
	threshold int64
}

func newCopier(bufferSize int, threshold int64) *copier {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &copier{buf: make([]byte, bufferSize), threshold: threshold}
}

// copyN copies exactly n bytes from src to dst.
//
// Returns io.ErrUnexpectedEOF if src has fewer than n bytes.
func (c *copier) copyN(dst io.Writer, src io.Reader, n int64) (written int64, err error) {
	if n >= c.threshold {
		if written, err = io.CopyN(dst, src, n); err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return
	}

	for written < n {
		nr, err := io.ReadFull(src, c.buf[:min(n-written, int64(len(c.buf)))])
		if nr > 0 {
			nw, werr := dst.Write(c.buf[:nr])
			written += int64(nw)
			switch {
			case werr != nil:
				return written, werr
			case nw != nr:
				return written, io.ErrShortWrite
			}
		}

		if err == io.EOF {
			return written, io.ErrUnexpectedEOF
		}
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// CopyBufferWithContext is a custom implementation of io.CopyBuffer that is cancellable via context.
//
// Similar to io.CopyBuffer, if buf is nil, a new buffer of size 32*1024 is created.
// Unlike io.CopyBuffer, it does not matter if src implements [io.WriterTo] or dst implements [io.ReaderFrom] because
// those interfaces do not support context.
//
// The context is checked for done status after every write. As a result, having too small a buffer may introduce too
// much overhead, while having a very large buffer may cause context cancellation to have a delayed effect.
func CopyBufferWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (written int64, err error) {
	if buf == nil {
		buf = make([]byte, 32*1024)
	}

	var nr, nw int
	for {
		nr, err = src.Read(buf)

		if nr > 0 {
			switch nw, err = dst.Write(buf[0:nr]); {
			case err != nil:
				return written, err
			case nr < nw:
				return written, io.ErrShortWrite
			case nr != nw:
				return written, fmt.Errorf("invalid write: expected to write %d bytes, wrote %d bytes instead", nr, nw)
			}

			written += int64(nw)

			select {
			case <-ctx.Done():
				return written, ctx.Err()
			default:
			}
		}

		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

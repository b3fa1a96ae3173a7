package xpak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gofrs/flock"
	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
)

// UpdateOptions customises UpdateMetadata.
type UpdateOptions struct {
	// Description if non-nil replaces the existing description.
	Description *string
	// UserMetadata if non-empty is merged into the existing user metadata, key by key. See metadata.ParseUser.
	UserMetadata string
	// RegenerateAll rebuilds the file index, files_count, and total_size by scanning the records instead of trusting
	// the existing metadata.
	RegenerateAll bool
	// BufferSize is the size of the buffer for copying the data region. Default to DefaultBufferSize.
	BufferSize int
}

// UpdateMetadata rewrites the metadata section of the named archive.
//
// The new archive is written to a temporary file next to the original: the new header followed by a byte-for-byte
// copy of everything after the original header (the file count and all records). Only once the copy is complete and
// both files are closed is the temporary file renamed over the original, so the original is either untouched or fully
// replaced. If the rename fails, the temporary file is left behind and its name is reported in the error.
//
// The new header always declares format.Current and has the end marker. created_at is kept.
//
// An advisory lock file (name + ".lock") prevents concurrent updates of the same archive; if the lock is held,
// a format.KindBusy error is returned. The lock file is left in place afterwards since removing it would let two
// updaters lock different inodes of the same path.
func UpdateMetadata(ctx context.Context, name string, optFns ...func(*UpdateOptions)) error {
	opts := &UpdateOptions{BufferSize: DefaultBufferSize}
	for _, fn := range optFns {
		fn(opts)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	lock := flock.New(name + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return format.NewIOError(lock.Path(), fmt.Errorf("acquire lock error: %w", err))
	}
	if !locked {
		return &format.Error{Kind: format.KindBusy, Offset: -1, Path: name, Err: fmt.Errorf(`lock "%s" is held by another process`, lock.Path())}
	}
	defer lock.Unlock()

	src, err := os.Open(name)
	if err != nil {
		return format.NewIOError(name, err)
	}
	defer src.Close()

	u := &updater{name: name, src: src, opts: opts}
	return u.update(ctx)
}

// rename is swapped out in tests.
var rename = os.Rename

type updater struct {
	name string
	src  *os.File
	opts *UpdateOptions
}

func (u *updater) update(ctx context.Context) error {
	fi, err := u.src.Stat()
	if err != nil {
		return format.NewIOError(u.name, err)
	}

	r, err := format.NewReader(u.src, u.opts.BufferSize)
	if err != nil {
		return format.NewIOError(u.name, err)
	}

	h, err := r.ReadHeader()
	if err != nil {
		return err
	}

	m, err := metadata.Decode(h.Metadata)
	if err != nil {
		return err
	}

	if u.opts.RegenerateAll {
		l, err := Scan(ctx, r)
		if err != nil {
			return fmt.Errorf("scan records error: %w", err)
		}

		m.SetFiles(l.Files)
	} else if _, err = m.Index(); err != nil {
		// an untrustworthy index is written as absent rather than as a short "files" array.
		log.Printf(`"%s": %v; dropping the index, regenerate to rebuild it`, u.name, err)
		m.DropIndex()
	}

	if u.opts.Description != nil {
		m.Description = u.opts.Description
	}
	if u.opts.UserMetadata != "" {
		if err = m.MergeUser(u.opts.UserMetadata); err != nil {
			return fmt.Errorf("parse user metadata error: %w", err)
		}
	}

	m.ToolVersion = metadata.ToolVersion
	m.FormatVersion = format.Current.String()

	data, err := m.Encode()
	if err != nil {
		return err
	}

	// everything after the original header is copied verbatim.
	start := h.Size()
	if _, err = u.src.Seek(start, io.SeekStart); err != nil {
		return format.NewIOError(u.name, fmt.Errorf("seek to data region error: %w", err))
	}

	dst, err := createTemp(u.name)
	if err != nil {
		return format.NewIOError(u.name, err)
	}
	tmp := dst.Name()

	err = u.write(ctx, dst, data, fi.Size()-start)
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = format.NewIOError(tmp, cerr)
	}
	if err != nil {
		if rerr := os.Remove(tmp); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.Printf(`clean up "%s" error: %v`, tmp, rerr)
		}

		return err
	}

	_ = u.src.Close()

	if err = rename(tmp, u.name); err != nil {
		return &format.Error{Kind: format.KindIO, Offset: -1, Path: tmp, Err: fmt.Errorf(`replace "%s" error (updated archive kept at "%s"): %w`, u.name, tmp, err)}
	}

	return nil
}

// write writes the new header then copies exactly n bytes from the current offset of src.
func (u *updater) write(ctx context.Context, dst *os.File, meta []byte, n int64) error {
	w := bufio.NewWriterSize(dst, u.opts.BufferSize)

	if _, err := format.WriteHeader(w, meta); err != nil {
		return format.NewIOError(dst.Name(), fmt.Errorf("write header error: %w", err))
	}

	written, err := CopyBufferWithContext(ctx, w, io.LimitReader(u.src, n), make([]byte, u.opts.BufferSize))
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return format.NewCancelledError(err)
	case err != nil:
		return format.NewIOError(u.name, fmt.Errorf("copy data region error: %w", err))
	case written != n:
		return &format.Error{Kind: format.KindTruncated, Offset: -1, Path: u.name, Expected: n, Actual: written}
	}

	if err = w.Flush(); err == nil {
		err = dst.Sync()
	}
	if err != nil {
		return format.NewIOError(dst.Name(), err)
	}

	return nil
}

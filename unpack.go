package xpak

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
	"github.com/schollz/progressbar/v3"
	"github.com/tidwall/btree"
)

// UnpackOptions customises Unpack.
type UnpackOptions struct {
	// Selected if non-empty limits extraction to the records whose path exactly matches one of these paths.
	Selected []string
	// BufferSize is the size of the reusable buffer for small contents. Default to DefaultBufferSize.
	BufferSize int
	// Threshold is the content length at or above which bulk copy is used. Default to DefaultThreshold.
	Threshold int64
	// ProgressBar if given will have its max changed to the declared total size and be updated with every byte
	// extracted.
	ProgressBar *progressbar.ProgressBar
	// ProgressReporter if given is called once per extracted record.
	ProgressReporter ProgressReporter
}

// Unpack extracts the records of the named archive into directory dir and returns the number of files extracted.
//
// Records are processed in order. Records not selected by UnpackOptions.Selected are skipped with a relative seek
// without being read. Record paths that would escape dir (absolute, or with `..` segments) fail the operation with a
// format.KindUnsafePath error before anything is written for that record. Existing files are overwritten, so if the
// archive has several records with the same path, the last one wins.
//
// The context is checked before each record. On cancellation, files that have already been extracted are left on disk.
func Unpack(ctx context.Context, name, dir string, optFns ...func(*UnpackOptions)) (n int, err error) {
	opts := &UnpackOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	f, err := os.Open(name)
	if err != nil {
		return 0, format.NewIOError(name, err)
	}
	defer f.Close()

	r, err := format.NewReader(f, opts.BufferSize)
	if err != nil {
		return 0, format.NewIOError(name, err)
	}

	h, err := r.ReadHeader()
	if err != nil {
		return 0, err
	}

	m, err := metadata.Decode(h.Metadata)
	if err != nil {
		return 0, err
	}

	offset := r.Offset()
	count, err := r.ReadCount()
	if err != nil {
		return 0, err
	}
	if count != m.FilesCount {
		return 0, &format.Error{Kind: format.KindCountMismatch, Offset: offset, Expected: int64(m.FilesCount), Actual: int64(count)}
	}

	if err = os.MkdirAll(dir, 0755); err != nil {
		return 0, format.NewIOError(dir, err)
	}

	var pending *btree.Set[string]
	if len(opts.Selected) != 0 {
		pending = &btree.Set[string]{}
		for _, p := range opts.Selected {
			pending.Insert(p)
		}
	}

	if opts.ProgressBar != nil {
		opts.ProgressBar.ChangeMax64(int64(m.TotalSize))
	}

	u := &unpacker{
		copier:   newCopier(opts.BufferSize, opts.Threshold),
		selected: make(map[string]bool, len(opts.Selected)),
		bar:      opts.ProgressBar,
		reporter: opts.ProgressReporter,
	}
	for _, p := range opts.Selected {
		u.selected[p] = true
	}

	for i := uint32(0); i < count; i++ {
		if err = ctx.Err(); err != nil {
			return n, format.NewCancelledError(err)
		}

		rh, err := r.NextRecord()
		if err != nil {
			return n, err
		}

		if len(u.selected) != 0 && !u.selected[rh.Path] {
			if err = r.Discard(rh.Size); err != nil {
				return n, err
			}
			continue
		}

		if err = u.extract(r, rh, dir); err != nil {
			return n, err
		}

		n++
		if pending != nil {
			pending.Delete(rh.Path)
		}
	}

	if pending != nil && pending.Len() != 0 {
		log.Printf("%d selected file(s) not found in archive: %s", pending.Len(), strings.Join(pending.Keys(), ", "))
	}

	return n, nil
}

type unpacker struct {
	*copier
	selected map[string]bool
	bar      *progressbar.ProgressBar
	reporter ProgressReporter
}

func (u *unpacker) extract(r *format.Reader, h format.RecordHeader, dir string) error {
	path, err := joinLocal(dir, h)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return format.NewIOError(path, fmt.Errorf("create parent directories error: %w", err))
	}

	w, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return format.NewIOError(path, err)
	}

	var dst io.Writer = w
	if u.bar != nil {
		dst = io.MultiWriter(w, u.bar)
	}

	written, err := u.copyN(dst, r, h.Size)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err == io.ErrUnexpectedEOF {
		return &format.Error{Kind: format.KindTruncated, Offset: r.Offset(), Path: h.Path, Expected: h.Size, Actual: written}
	}
	if err != nil {
		return format.NewIOError(path, fmt.Errorf("write file error: %w", err))
	}

	if u.reporter != nil {
		u.reporter(h.Path, path, written, true)
	}

	return nil
}

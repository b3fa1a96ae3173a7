package xpak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
	"github.com/schollz/progressbar/v3"
)

// ProgressReporter is called after each record has been written (Pack) or materialised (Unpack).
//
//   - src: path of the file being read (Pack) or the record path (Unpack)
//   - dst: record path (Pack) or the path of the file being written (Unpack)
//   - written: number of content bytes copied
//   - done: is true once the record's content has been copied in its entirety
//
// The reporter is called exactly once per record with done being true.
type ProgressReporter func(src, dst string, written int64, done bool)

// DefaultProgressReporter only logs after a file has been added to or extracted from an archive.
func DefaultProgressReporter(src, dst string, written int64, done bool) {
	if done {
		log.Printf(`added "%s" to archive`, dst)
	}
}

// PackOptions customises Pack.
type PackOptions struct {
	// Flatten discards the directory structure, keeping only the base name of each file.
	//
	// Files that share the same base name collide into a single record; the last one enumerated wins.
	Flatten bool
	// Description is the optional free-form description.
	Description *string
	// UserMetadata is the optional user metadata, a JSON object as raw text or base64. See metadata.ParseUser.
	UserMetadata string
	// BufferSize is the size of the reusable buffer for small contents. Default to DefaultBufferSize.
	BufferSize int
	// Threshold is the content length at or above which bulk copy is used. Default to DefaultThreshold.
	Threshold int64
	// ProgressBar if given will have its max changed to the total size and be updated with every written byte.
	ProgressBar *progressbar.ProgressBar
	// ProgressReporter if given is called once per record.
	ProgressReporter ProgressReporter
}

// source is a file to be packed.
type source struct {
	path string // path on disk.
	name string // path in archive.
	size int64
}

// Pack recursively packs the regular files of the root directory into a new archive named name.
//
// The context is checked before each file is written. Mid-file cancellation is not observed: once a file's record has
// started, its content is copied in full. If the context is cancelled, or anything else fails, the partially written
// archive is removed so that no partial archive is left behind.
func Pack(ctx context.Context, root, name string, optFns ...func(*PackOptions)) (err error) {
	opts := &PackOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	if fi, err := os.Stat(root); err != nil {
		return format.NewIOError(root, err)
	} else if !fi.IsDir() {
		return format.NewIOError(root, fmt.Errorf("not a directory"))
	}

	// name may already exist inside root, in which case it must not pack itself.
	out, _ := os.Stat(name)

	sources, err := enumerate(ctx, root, opts.Flatten, out)
	if err != nil {
		return err
	}

	files := make([]metadata.FileEntry, len(sources))
	var total int64
	for i, s := range sources {
		if s.size > format.MaxRecordSize {
			return &format.Error{Kind: format.KindRecordTooLarge, Offset: -1, Path: s.path, Actual: s.size}
		}

		files[i] = metadata.FileEntry{Path: s.name, Size: uint64(s.size)}
		total += s.size
	}

	m := metadata.New(files)
	m.Description = opts.Description
	if opts.UserMetadata != "" {
		if err = m.MergeUser(opts.UserMetadata); err != nil {
			return fmt.Errorf("parse user metadata error: %w", err)
		}
	}

	data, err := m.Encode()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return format.NewIOError(name, err)
	}

	if opts.ProgressBar != nil {
		opts.ProgressBar.ChangeMax64(total)
	}

	p := &packer{
		copier:   newCopier(opts.BufferSize, opts.Threshold),
		bar:      opts.ProgressBar,
		reporter: opts.ProgressReporter,
	}
	if err = p.pack(ctx, f, data, sources); err == nil {
		err = f.Close()
	} else {
		_ = f.Close()
	}

	if err != nil {
		if rerr := os.Remove(name); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.Printf(`clean up "%s" error: %v`, name, rerr)
		}

		return format.NewIOError(name, err)
	}

	return nil
}

type packer struct {
	*copier
	bar      *progressbar.ProgressBar
	reporter ProgressReporter
}

func (p *packer) pack(ctx context.Context, f *os.File, meta []byte, sources []source) (err error) {
	w := bufio.NewWriterSize(f, len(p.buf))

	if _, err = format.WriteHeader(w, meta); err != nil {
		return fmt.Errorf("write header error: %w", err)
	}
	if err = format.WriteCount(w, uint32(len(sources))); err != nil {
		return fmt.Errorf("write file count error: %w", err)
	}

	for _, s := range sources {
		if err = ctx.Err(); err != nil {
			return format.NewCancelledError(err)
		}

		if err = p.add(w, s); err != nil {
			return err
		}
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush error: %w", err)
	}

	return nil
}

func (p *packer) add(w io.Writer, s source) error {
	src, err := os.Open(s.path)
	if err != nil {
		return format.NewIOError(s.path, err)
	}
	defer src.Close()

	if err = format.WriteRecordHeader(w, s.name, s.size); err != nil {
		return fmt.Errorf(`write record header for "%s" error: %w`, s.name, err)
	}

	var dst = w
	if p.bar != nil {
		dst = io.MultiWriter(w, p.bar)
	}

	written, err := p.copyN(dst, src, s.size)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("file shrank from %d to %d bytes while packing", s.size, written)
		}
		return format.NewIOError(s.path, fmt.Errorf("add file to archive error: %w", err))
	}

	if p.reporter != nil {
		p.reporter(s.path, s.name, written, true)
	}

	return nil
}

// enumerate lists the regular files under root.
//
// With flatten, only the base name is kept and a later file replaces an earlier one with the same base name. If skip is
// non-nil, the file it describes is left out.
func enumerate(ctx context.Context, root string, flatten bool, skip os.FileInfo) ([]source, error) {
	var (
		sources []source
		seen    = make(map[string]int)
	)

	err := WalkRegularFiles(ctx, root, func(path string, d fs.DirEntry) error {
		fi, err := d.Info()
		if err != nil {
			return format.NewIOError(path, err)
		}
		if skip != nil && os.SameFile(fi, skip) {
			return nil
		}

		var name string
		if flatten {
			name = filepath.Base(path)
		} else if name, err = filepath.Rel(root, path); err != nil {
			return format.NewIOError(path, err)
		}
		name = filepath.ToSlash(name)

		s := source{path: path, name: name, size: fi.Size()}
		if i, ok := seen[name]; ok {
			log.Printf(`"%s" replaces "%s" as "%s" in archive`, path, sources[i].path, name)
			sources[i] = s
			return nil
		}

		seen[name] = len(sources)
		sources = append(sources, s)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, format.NewCancelledError(err)
		}

		return nil, fmt.Errorf("walk dir error: %w", err)
	}

	return sources, nil
}

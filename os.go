package xpak

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nguyengg/xpak/format"
)

// WalkRegularFiles is a specialisation of filepath.WalkDir that applies the callback only to regular files.
//
// Files are visited in lexical order. This is the same method that Pack will use to enumerate files.
func WalkRegularFiles(ctx context.Context, root string, fn func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			// ctx.Err is not supposed to return nil here if ctx.Done() is closed.
			if err = ctx.Err(); err == nil {
				return filepath.SkipAll
			}
			return err
		default:
			break
		}

		switch {
		case err != nil, d.IsDir(), !d.Type().IsRegular():
			return err
		default:
			return fn(path, d)
		}
	})
}

// joinLocal joins the archive path (always using `/`) to dir.
//
// Returns a format.KindUnsafePath error if the path is empty, absolute, or contains `..` segments that would escape
// dir.
func joinLocal(dir string, h format.RecordHeader) (string, error) {
	p := filepath.FromSlash(h.Path)
	if !filepath.IsLocal(p) {
		return "", &format.Error{Kind: format.KindUnsafePath, Offset: h.Offset, Path: h.Path}
	}

	return filepath.Join(dir, p), nil
}

// createTemp creates a new file next to name whose name is name plus a random suffix.
//
// The file is opened with flag `os.O_RDWR|os.O_CREATE|os.O_EXCL` so it is guaranteed to be new. Keeping it in the
// same directory as name keeps the later os.Rename on the same file system.
func createTemp(name string) (*os.File, error) {
	perm := os.FileMode(0666)
	if fi, err := os.Stat(name); err == nil {
		perm = fi.Mode().Perm()
	}

	for {
		tmp := fmt.Sprintf("%s.%s.tmp", name, uuid.New().String()[:8])
		switch f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm); {
		case err == nil:
			return f, nil
		case os.IsExist(err):
			continue
		default:
			return nil, fmt.Errorf("create temp file error: %w", err)
		}
	}
}

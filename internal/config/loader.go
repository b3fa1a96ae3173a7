package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file that Loader.Load searches for.
const Name = ".xpak"

// Loader can be used for loading .xpak configuration.
type Loader struct {
	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards from the working directory to find the first ".xpak" file
// available and load its contents into the Loader.
//
// The name of the .xpak file is returned, or empty string if none was found in which case the Loader is left with
// empty configuration.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, cur)
}

// LoadFrom is a variant of Load that starts the search at dir instead of the working directory.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	for cur := dir; ; {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		path := filepath.Join(cur, Name)
		switch fi, err := os.Stat(path); {
		case err == nil && !fi.IsDir():
			if l.cfg, err = ini.Load(path); err != nil {
				l.cfg = ini.Empty()
				return path, err
			}

			return path, nil

		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur || parent == "." {
			l.cfg = ini.Empty()
			return "", nil
		}
		cur = parent
	}
}

// LoadBytes loads configuration from the given ini content.
func (l *Loader) LoadBytes(data []byte) (err error) {
	if l.cfg, err = ini.Load(data); err != nil {
		l.cfg = ini.Empty()
	}

	return
}

func (l *Loader) section(name string) *ini.Section {
	if l.cfg == nil {
		return nil
	}

	sec, err := l.cfg.GetSection(name)
	if err != nil {
		return nil
	}

	return sec
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}

package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// PackConfig contains the defaults for the pack command.
type PackConfig struct {
	Flatten     bool
	Description *string
}

// ForPack returns configuration for pack from section "[pack]".
func (l *Loader) ForPack() (c PackConfig, err error) {
	sec := l.section("pack")
	if sec == nil {
		return c, nil
	}

	if sec.HasKey("flat") {
		if c.Flatten, err = sec.Key("flat").Bool(); err != nil {
			return c, fmt.Errorf(`parse "[pack] flat" error: %w`, err)
		}
	}

	if sec.HasKey("description") {
		v := sec.Key("description").String()
		c.Description = &v
	}

	return c, nil
}

// ForPack calls Loader.ForPack on the DefaultLoader instance.
func ForPack() (PackConfig, error) {
	return DefaultLoader.ForPack()
}

// IOConfig contains I/O tuning shared by all commands.
//
// Zero values mean the library defaults apply.
type IOConfig struct {
	BufferSize int
	Threshold  int64
}

// ForIO returns configuration from section "[io]".
//
// Sizes can be given in humanised form such as "64 KiB" or "1MB".
func (l *Loader) ForIO() (c IOConfig, err error) {
	sec := l.section("io")
	if sec == nil {
		return c, nil
	}

	if sec.HasKey("buffer-size") {
		v, err := humanize.ParseBytes(sec.Key("buffer-size").String())
		if err != nil {
			return c, fmt.Errorf(`parse "[io] buffer-size" error: %w`, err)
		}
		c.BufferSize = int(v)
	}

	if sec.HasKey("threshold") {
		v, err := humanize.ParseBytes(sec.Key("threshold").String())
		if err != nil {
			return c, fmt.Errorf(`parse "[io] threshold" error: %w`, err)
		}
		c.Threshold = int64(v)
	}

	return c, nil
}

// ForIO calls Loader.ForIO on the DefaultLoader instance.
func ForIO() (IOConfig, error) {
	return DefaultLoader.ForIO()
}

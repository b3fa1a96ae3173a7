package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak/internal"
	"github.com/nguyengg/xpak/internal/config"
	"github.com/schollz/progressbar/v3"
)

type Xpak struct {
	Pack      Pack      `command:"pack" alias:"p" description:"pack a directory into a new archive"`
	Unpack    Unpack    `command:"unpack" alias:"x" description:"extract files from an archive"`
	List      List      `command:"list" alias:"ls" description:"list the files of an archive"`
	Structure Structure `command:"structure" alias:"view" description:"show the structure of an archive region by region"`
	Metadata  Metadata  `command:"metadata" alias:"meta" description:"print the metadata of an archive as a tree"`
	Update    Update    `command:"update" description:"rewrite the metadata of an archive in place"`
}

func NewParser() (*flags.Parser, error) {
	opts := &Xpak{}

	p := flags.NewNamedParser("xpak", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}

		if name, err := config.Load(context.Background()); err != nil {
			log.Printf(`load config "%s" error: %v`, name, err)
		} else if name != "" {
			log.Printf(`using config "%s"`, name)
		}

		return command.Execute(args)
	}

	return p, nil
}

// notifyContext returns a context that is cancelled on interrupt, with a prefix logger for the given file attached.
func notifyContext(name string) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	return internal.WithPrefixLogger(ctx, internal.Prefix(0, 1, name)), stop
}

// IOOptions are the I/O tuning flags shared by commands that copy file contents.
type IOOptions struct {
	BufferSize string `long:"buffer-size" description:"size of the reusable copy buffer (e.g. 64KiB); overrides [io] buffer-size" value-name:"SIZE"`
	Threshold  string `long:"threshold" description:"content length at or above which bulk copy is used (e.g. 1MiB); overrides [io] threshold" value-name:"SIZE"`
}

// load applies the flags on top of the [io] configuration.
func (o IOOptions) load() (c config.IOConfig, err error) {
	if c, err = config.ForIO(); err != nil {
		return
	}

	if o.BufferSize != "" {
		v, err := humanize.ParseBytes(o.BufferSize)
		if err != nil {
			return c, fmt.Errorf(`invalid --buffer-size "%s": %w`, o.BufferSize, err)
		}
		c.BufferSize = int(v)
	}

	if o.Threshold != "" {
		v, err := humanize.ParseBytes(o.Threshold)
		if err != nil {
			return c, fmt.Errorf(`invalid --threshold "%s": %w`, o.Threshold, err)
		}
		c.Threshold = int64(v)
	}

	return c, nil
}

// progress is a progress bar if stderr is a terminal, otherwise a throttled progress logger.
type progress struct {
	bar    *progressbar.ProgressBar
	logger *internal.ProgressLogger
}

func newProgress(ctx context.Context, verb, description string) *progress {
	if bar := internal.DefaultBytes(-1, description); bar != nil {
		return &progress{bar: bar}
	}

	return &progress{logger: internal.NewProgressLogger(internal.MustLogger(ctx), verb, 5*time.Second)}
}

// reporter returns the per-record callback which is only used when there is no progress bar.
func (p *progress) reporter() func(src, dst string, written int64, done bool) {
	if p.logger == nil {
		return nil
	}

	return p.logger.Report
}

func (p *progress) Close() error {
	if p.bar != nil {
		return p.bar.Close()
	}

	return p.logger.Close()
}

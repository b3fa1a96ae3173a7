package internal

import (
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// IsTerminal returns true if stderr is a terminal, in which case progress bars are preferred over progress logs.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// ProgressLogger logs per-file progress no more often than its interval.
//
// Its Report method matches xpak.ProgressReporter.
type ProgressLogger struct {
	logger *log.Logger
	verb   string
	rate   *rate.Sometimes

	files, size int64
}

// NewProgressLogger creates a ProgressLogger that logs with the given verb (e.g. "packed", "extracted").
func NewProgressLogger(logger *log.Logger, verb string, interval time.Duration) *ProgressLogger {
	return &ProgressLogger{
		logger: logger,
		verb:   verb,
		rate:   &rate.Sometimes{Interval: interval},
	}
}

// Report tallies one record.
func (l *ProgressLogger) Report(src, dst string, written int64, done bool) {
	if !done {
		return
	}

	l.files++
	l.size += written

	l.rate.Do(func() {
		l.logger.Printf(`%s %d files (%s) so far, last "%s"`, l.verb, l.files, humanize.IBytes(uint64(l.size)), src)
	})
}

// Close logs the final tally.
func (l *ProgressLogger) Close() error {
	l.logger.Printf("%s %d files (%s) in total", l.verb, l.files, humanize.IBytes(uint64(l.size)))
	return nil
}

// DefaultBytes is equivalent to progressbar.DefaultBytes but with higher progressbar.OptionThrottle.
//
// Returns nil if stderr is not a terminal.
func DefaultBytes(maxBytes int64, description string, options ...progressbar.Option) *progressbar.ProgressBar {
	if !IsTerminal() {
		return nil
	}

	return progressbar.NewOptions64(maxBytes,
		append([]progressbar.Option{
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(1 * time.Second),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = os.Stderr.WriteString("\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true)},
			options...)...)
}

package internal

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nguyengg/xpak/util"
)

// Prefix creates a consistent prefix for all file-based commands to use.
//
// i and n are the zero-based ordinal and expected count. If n is 1, the ordinal is omitted.
func Prefix(i, n int, name string) string {
	base := util.TruncateRightWithSuffix(filepath.Base(name), 30, "...")
	if n == 1 {
		return fmt.Sprintf(`"%s" - `, base)
	}

	return fmt.Sprintf(`[%d/%d] "%s" - `, i+1, n, base)
}

type loggerKey struct{}

// WithPrefixLogger creates a new logger using the given prefix, then attaches it to context.
func WithPrefixLogger(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, loggerKey{}, log.New(os.Stderr, prefix, 0))
}

// MustLogger returns the logger attached to the given context.
func MustLogger(ctx context.Context) *log.Logger {
	return ctx.Value(loggerKey{}).(*log.Logger)
}

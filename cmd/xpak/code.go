package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak/format"
)

// exitCode maps the error returned by the parser to the process exit code.
//
// 0 on success or if help was printed, 130 if interrupted, 3 for damaged archives, 2 for bad metadata, 1 otherwise.
func exitCode(err error) int {
	if err == nil || flags.WroteHelp(err) {
		return 0
	}

	switch format.KindOf(err).Class() {
	case format.Cancelled:
		return 130
	case format.FormatError, format.InconsistencyError:
		return 3
	case format.MetadataError:
		return 2
	default:
		return 1
	}
}

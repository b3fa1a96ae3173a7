// Package format describes the byte layout of an XPAK archive.
//
// An archive is, in order:
//
//	Magic                "XPAK"
//	metadata length      u32 little-endian L
//	metadata             L bytes of UTF-8 JSON
//	EndMarker            "XPAK_END", only for format versions 1.1 and later
//	file count           u32 little-endian N
//	N records            u32 path length, path, u32 content length, content
//
// Every length and count is 32 bits, so a single record cannot hold more than MaxRecordSize bytes even though the
// metadata's total_size is 64 bits.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// Magic is the 4-byte tag that starts every archive.
	Magic = "XPAK"
	// EndMarker is the 8-byte tag that follows the metadata section since format version 1.1.
	EndMarker = "XPAK_END"

	// MaxRecordSize is the largest content length a record can declare.
	MaxRecordSize = math.MaxUint32
	// MaxPathSize is the largest path length a record can declare.
	MaxPathSize = math.MaxUint32
)

// Version is a parsed format_version.
type Version struct {
	Major, Minor int
}

var (
	// V1_0 is the legacy format that does not have EndMarker.
	V1_0 = Version{1, 0}
	// V1_1 introduces EndMarker.
	V1_1 = Version{1, 1}
	// Current is the version that every writer in this module produces.
	Current = V1_1
)

// ParseVersion parses "major.minor".
//
// Only major version 1 is supported; anything else returns a KindUnsupportedVersion error.
func ParseVersion(s string) (v Version, err error) {
	major, minor, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		minor = "0"
	}

	if v.Major, err = strconv.Atoi(major); err == nil {
		v.Minor, err = strconv.Atoi(minor)
	}
	if err != nil || v.Major < 0 || v.Minor < 0 {
		return Version{}, &Error{Kind: KindUnsupportedVersion, Offset: -1, Err: fmt.Errorf(`invalid format version "%s"`, s)}
	}

	if v.Major != 1 {
		return v, &Error{Kind: KindUnsupportedVersion, Offset: -1, Err: fmt.Errorf(`format version "%s" is not supported`, s)}
	}

	return v, nil
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// HasEndMarker returns true if archives of this version must have EndMarker after the metadata section.
func (v Version) HasEndMarker() bool {
	return v.Major > 1 || (v.Major == 1 && v.Minor >= 1)
}

// Less returns true if v is older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}

	return v.Minor < other.Minor
}

package format

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Kind enumerates every way an archive operation can fail.
type Kind int

const (
	// KindIO is a failure propagated from the underlying file system.
	KindIO Kind = iota
	// KindBusy means another process holds the archive's update lock.
	KindBusy
	// KindBadMagic means the first 4 bytes are not Magic.
	KindBadMagic
	// KindBadEndMarker means a format version that requires EndMarker does not have it.
	KindBadEndMarker
	// KindUnsupportedVersion means the format_version could not be parsed or has an unknown major version.
	KindUnsupportedVersion
	// KindInvalidPath means a record's path is not valid UTF-8.
	KindInvalidPath
	// KindUnsafePath means a record's path would escape the output directory.
	KindUnsafePath
	// KindTruncated means the archive ended in the middle of a region.
	KindTruncated
	// KindRecordTooLarge means a file's content does not fit the 32-bit record length.
	KindRecordTooLarge
	// KindCountMismatch means the FileCount region disagrees with the metadata's files_count.
	KindCountMismatch
	// KindInvalidJSON means metadata is not valid JSON.
	KindInvalidJSON
	// KindNotAnObject means metadata is valid JSON but not a JSON object.
	KindNotAnObject
	// KindCancelled means the context was cancelled.
	KindCancelled
)

// Class groups kinds into the error taxonomy.
type Class int

const (
	IOError Class = iota
	FormatError
	InconsistencyError
	MetadataError
	Cancelled
)

func (c Class) String() string {
	switch c {
	case IOError:
		return "io error"
	case FormatError:
		return "format error"
	case InconsistencyError:
		return "inconsistency error"
	case MetadataError:
		return "metadata error"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Class returns the taxonomy group of the kind.
func (k Kind) Class() Class {
	switch k {
	case KindBadMagic, KindBadEndMarker, KindUnsupportedVersion, KindInvalidPath, KindUnsafePath, KindTruncated, KindRecordTooLarge:
		return FormatError
	case KindCountMismatch:
		return InconsistencyError
	case KindInvalidJSON, KindNotAnObject:
		return MetadataError
	case KindCancelled:
		return Cancelled
	default:
		return IOError
	}
}

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindBusy:
		return "busy"
	case KindBadMagic:
		return "bad magic"
	case KindBadEndMarker:
		return "bad end marker"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindInvalidPath:
		return "invalid path"
	case KindUnsafePath:
		return "unsafe path"
	case KindTruncated:
		return "truncated"
	case KindRecordTooLarge:
		return "record too large"
	case KindCountMismatch:
		return "count mismatch"
	case KindInvalidJSON:
		return "invalid json"
	case KindNotAnObject:
		return "not an object"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by every archive operation.
//
// Offset is the absolute byte offset of the offending structure, or -1 if not applicable. Expected and Actual are
// filled in for kinds that compare two values (count mismatch, truncation). Path names the record or file involved.
type Error struct {
	Kind     Kind
	Offset   int64
	Path     string
	Expected int64
	Actual   int64
	Err      error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindBadMagic:
		msg = fmt.Sprintf("bad magic at offset %d, expected %q", e.Offset, Magic)
	case KindBadEndMarker:
		msg = fmt.Sprintf("bad metadata end marker at offset %d", e.Offset)
	case KindCountMismatch:
		msg = fmt.Sprintf("file count mismatch at offset %d: metadata declares %d, archive has %d", e.Offset, e.Expected, e.Actual)
	case KindTruncated:
		msg = fmt.Sprintf("archive truncated at offset %d: need %d bytes, have %d", e.Offset, e.Expected, e.Actual)
	case KindRecordTooLarge:
		msg = fmt.Sprintf(`file "%s" is too large (%d bytes) for a record`, e.Path, e.Actual)
	case KindInvalidPath:
		msg = fmt.Sprintf("record path at offset %d is not valid UTF-8", e.Offset)
	case KindUnsafePath:
		msg = fmt.Sprintf(`record path "%s" at offset %d escapes the output directory`, e.Path, e.Offset)
	case KindCancelled:
		msg = "operation cancelled"
	case KindIO:
		if e.Path != "" {
			msg = fmt.Sprintf(`io error on "%s"`, e.Path)
		} else {
			msg = "io error"
		}
	default:
		msg = e.Kind.String()
		if e.Offset >= 0 {
			msg += fmt.Sprintf(" at offset %d", e.Offset)
		}
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// KindOf returns the Kind of the first Error in err's chain.
//
// Errors that are not an Error are reported as KindCancelled if they wrap context.Canceled or
// context.DeadlineExceeded, KindIO otherwise.
func KindOf(err error) Kind {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindIO
	}
}

// IsKind is a convenient method to compare KindOf(err) against kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// NewIOError wraps err as a KindIO error about the named file.
//
// If err is already an Error, it is returned as-is.
func NewIOError(name string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return &Error{Kind: KindIO, Offset: -1, Path: name, Err: err}
}

// NewCancelledError wraps the context's error as a KindCancelled error.
func NewCancelledError(cause error) error {
	return &Error{Kind: KindCancelled, Offset: -1, Err: cause}
}

// truncated converts a short read at offset into a KindTruncated error.
func truncated(offset int64, need, have int, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: KindTruncated, Offset: offset, Expected: int64(need), Actual: int64(have)}
	}

	return &Error{Kind: KindIO, Offset: offset, Err: err}
}

// Package metadata is the JSON model stored in an archive's metadata section.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nguyengg/xpak/format"
)

// ToolVersion is written to the "version" field of every metadata produced by this module.
var ToolVersion = "0.3.0"

// FileEntry is one entry of the embedded file index.
type FileEntry struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

// Metadata is the decoded metadata section.
//
// FilesCount and TotalSize are declared values copied at creation time; they are not re-verified against the data
// region. Files is the embedded index which Index validates before use.
type Metadata struct {
	ToolVersion   string           `json:"version"`
	FormatVersion string           `json:"format_version"`
	CreatedAt     time.Time        `json:"created_at"`
	FilesCount    uint32           `json:"files_count"`
	TotalSize     uint64           `json:"total_size"`
	Description   *string          `json:"description,omitempty"`
	Common        map[string]Value `json:"common,omitempty"`
	Files         []FileEntry      `json:"files"`

	// indexErr is set by Decode if the "files" field is present but malformed.
	indexErr error
	// noIndex omits the "files" field from Encode.
	noIndex bool
}

// ErrNoIndex is returned by Metadata.Index if the embedded index cannot be trusted.
var ErrNoIndex = errors.New("embedded file index is absent or malformed")

// New creates a new Metadata for the given files at the current format version.
func New(files []FileEntry) *Metadata {
	m := &Metadata{
		ToolVersion:   ToolVersion,
		FormatVersion: format.Current.String(),
		CreatedAt:     time.Now().UTC(),
	}
	m.SetFiles(files)
	return m
}

// SetFiles replaces the index and recomputes FilesCount and TotalSize from it.
func (m *Metadata) SetFiles(files []FileEntry) {
	m.Files = files
	m.FilesCount = uint32(len(files))
	m.TotalSize = 0
	for _, f := range files {
		m.TotalSize += f.Size
	}
	m.indexErr = nil
	m.noIndex = false
}

// DropIndex removes the embedded index so that Encode omits the "files" field entirely.
//
// FilesCount and TotalSize are kept. Readers of an archive without index fall back to scanning the records.
func (m *Metadata) DropIndex() {
	m.Files = nil
	m.indexErr = nil
	m.noIndex = true
}

// Index returns the embedded file index.
//
// Returns an error wrapping ErrNoIndex if the index was malformed, or if its length disagrees with FilesCount (an
// absent index is only acceptable for an empty archive).
func (m *Metadata) Index() ([]FileEntry, error) {
	switch {
	case m.indexErr != nil:
		return nil, fmt.Errorf("%w: %v", ErrNoIndex, m.indexErr)
	case uint64(len(m.Files)) != uint64(m.FilesCount):
		return nil, fmt.Errorf("%w: index has %d entries but files_count is %d", ErrNoIndex, len(m.Files), m.FilesCount)
	default:
		return m.Files, nil
	}
}

// Format parses FormatVersion.
func (m *Metadata) Format() (format.Version, error) {
	return format.ParseVersion(m.FormatVersion)
}

// Merge overwrites Common with every key from common; keys not present in common are kept.
func (m *Metadata) Merge(common map[string]Value) {
	if len(common) == 0 {
		return
	}

	if m.Common == nil {
		m.Common = make(map[string]Value, len(common))
	}
	for k, v := range common {
		m.Common[k] = v
	}
}

// MergeUser parses user metadata with ParseUser then merges it with Merge.
func (m *Metadata) MergeUser(s string) error {
	common, err := ParseUser(s)
	if err != nil {
		return err
	}

	m.Merge(common)
	return nil
}

// Encode returns the JSON encoding of the metadata.
//
// A nil index is written as an empty "files" array unless DropIndex was called.
func (m *Metadata) Encode() ([]byte, error) {
	var (
		data []byte
		err  error
	)

	type alias Metadata
	if m.noIndex {
		// the outer field shadows alias.Files.
		data, err = json.Marshal(&struct {
			*alias
			Files []FileEntry `json:"files,omitempty"`
		}{alias: (*alias)(m)})
	} else {
		c := *m
		if c.Files == nil {
			c.Files = []FileEntry{}
		}
		data, err = json.Marshal(&c)
	}
	if err != nil {
		return nil, fmt.Errorf("encode metadata error: %w", err)
	}

	return data, nil
}

// Decode parses the metadata section's JSON.
//
// A malformed "files" index does not fail Decode; it is reported later by Metadata.Index so that callers can fall back
// to scanning the records. Anything else that does not decode returns a format.KindInvalidJSON error, or
// format.KindNotAnObject if the JSON is not an object.
func Decode(data []byte) (*Metadata, error) {
	if err := requireObject(data); err != nil {
		return nil, err
	}

	type alias Metadata
	var raw struct {
		*alias
		Files json.RawMessage `json:"files"`
	}
	m := &Metadata{}
	raw.alias = (*alias)(m)

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &format.Error{Kind: format.KindInvalidJSON, Offset: -1, Err: err}
	}

	if files := bytes.TrimSpace(raw.Files); len(files) != 0 && !bytes.Equal(files, []byte("null")) {
		if err := json.Unmarshal(files, &m.Files); err != nil {
			m.Files = nil
			m.indexErr = err
		}
	}

	return m, nil
}

// requireObject returns an error if data is not valid JSON, or is valid JSON but not an object.
func requireObject(data []byte) error {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return &format.Error{Kind: format.KindInvalidJSON, Offset: -1, Err: err}
	}

	if b := bytes.TrimSpace(data); len(b) == 0 || b[0] != '{' {
		return &format.Error{Kind: format.KindNotAnObject, Offset: -1, Err: fmt.Errorf("got %s", kindOf(b))}
	}

	return nil
}

func kindOf(b []byte) Kind {
	switch {
	case len(b) == 0, b[0] == 'n':
		return Null
	case b[0] == 't', b[0] == 'f':
		return Bool
	case b[0] == '"':
		return String
	case b[0] == '[':
		return Array
	case b[0] == '{':
		return Object
	default:
		return Number
	}
}

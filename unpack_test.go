package xpak

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyengg/xpak/format"
	"github.com/nguyengg/xpak/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	path    string
	content []byte
}

// writeArchive writes an archive by hand so that tests can produce archives Pack never would.
//
// If marker is false, the end marker is omitted which is only valid if m declares format 1.0.
func writeArchive(t *testing.T, m *metadata.Metadata, marker bool, count uint32, records ...testRecord) string {
	t.Helper()

	data, err := m.Encode()
	require.NoError(t, err)

	b := format.EncodeHeader(data)
	if !marker {
		b = b[:len(b)-len(format.EndMarker)]
	}

	buf := bytes.NewBuffer(b)
	require.NoError(t, format.WriteCount(buf, count))
	for _, r := range records {
		rb, err := format.EncodeRecord(r.path, r.content)
		require.NoError(t, err)
		buf.Write(rb)
	}

	name := filepath.Join(t.TempDir(), "test.xpak")
	require.NoError(t, os.WriteFile(name, buf.Bytes(), 0666))
	return name
}

func entries(records ...testRecord) []metadata.FileEntry {
	files := make([]metadata.FileEntry, 0, len(records))
	for _, r := range records {
		files = append(files, metadata.FileEntry{Path: r.path, Size: uint64(len(r.content))})
	}
	return files
}

func TestUnpack_Selected(t *testing.T) {
	name := packTree(t, testTree)

	dir := t.TempDir()
	n, err := Unpack(context.Background(), name, dir, func(opts *UnpackOptions) {
		opts.Selected = []string{"path/b.txt", "does/not/exist.txt"}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string][]byte{"path/b.txt": testTree["path/b.txt"]}, readTree(t, dir))
}

func TestUnpack_SelectedSkipsEarlierRecords(t *testing.T) {
	records := []testRecord{
		{path: "first.bin", content: bytes.Repeat([]byte{1}, 100*1024)},
		{path: "second.bin", content: []byte("second")},
		{path: "third.bin", content: bytes.Repeat([]byte{3}, 10)},
	}
	name := writeArchive(t, metadata.New(entries(records...)), true, 3, records...)

	dir := t.TempDir()
	n, err := Unpack(context.Background(), name, dir, func(opts *UnpackOptions) {
		opts.Selected = []string{"second.bin", "third.bin"}
		opts.BufferSize = 16
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string][]byte{
		"second.bin": records[1].content,
		"third.bin":  records[2].content,
	}, readTree(t, dir))
}

func TestUnpack_UnsafePath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "parent", path: "../evil.txt"},
		{name: "nested parent", path: "a/../../evil.txt"},
		{name: "absolute", path: "/evil.txt"},
		{name: "empty", path: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []testRecord{{path: "ok.txt", content: []byte("ok")}, {path: tt.path, content: []byte("evil")}}
			name := writeArchive(t, metadata.New(entries(records...)), true, 2, records...)

			parent := t.TempDir()
			dir := filepath.Join(parent, "out")
			n, err := Unpack(context.Background(), name, dir)
			assert.True(t, format.IsKind(err, format.KindUnsafePath), "Unpack() error = %v", err)
			assert.Equal(t, 1, n)
			assert.NoFileExists(t, filepath.Join(parent, "evil.txt"))
			assert.FileExists(t, filepath.Join(dir, "ok.txt"))
		})
	}
}

func TestUnpack_CountMismatch(t *testing.T) {
	records := []testRecord{{path: "a.txt", content: []byte("a")}}
	m := metadata.New(entries(records...))
	m.FilesCount = 2
	name := writeArchive(t, m, true, 1, records...)

	dir := filepath.Join(t.TempDir(), "out")
	_, err := Unpack(context.Background(), name, dir)

	var e *format.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, format.KindCountMismatch, e.Kind)
	assert.Equal(t, int64(2), e.Expected)
	assert.Equal(t, int64(1), e.Actual)
	assert.NoDirExists(t, dir)
}

func TestUnpack_BadMagic(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.xpak")
	require.NoError(t, os.WriteFile(name, []byte("NOPE and some more bytes"), 0666))

	dir := filepath.Join(t.TempDir(), "out")
	_, err := Unpack(context.Background(), name, dir)

	var e *format.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, format.KindBadMagic, e.Kind)
	assert.Equal(t, int64(0), e.Offset)
	assert.NoDirExists(t, dir)
}

func TestUnpack_Truncated(t *testing.T) {
	name := packTree(t, map[string][]byte{"a.bin": bytes.Repeat([]byte("a"), 1000)})

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(name, data[:len(data)-10], 0666))

	_, err = Unpack(context.Background(), name, t.TempDir())
	assert.True(t, format.IsKind(err, format.KindTruncated), "Unpack() error = %v", err)
	assert.Equal(t, format.FormatError, format.KindOf(err).Class())
}

func TestUnpack_Legacy(t *testing.T) {
	records := []testRecord{{path: "old/file.txt", content: []byte("legacy")}}
	m := metadata.New(entries(records...))
	m.FormatVersion = "1.0"

	for _, marker := range []bool{false, true} {
		name := writeArchive(t, m, marker, 1, records...)

		dir := t.TempDir()
		n, err := Unpack(context.Background(), name, dir)
		require.NoErrorf(t, err, "Unpack(marker=%t) error = %v", marker, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, map[string][]byte{"old/file.txt": []byte("legacy")}, readTree(t, dir))
	}
}

func TestUnpack_Cancel(t *testing.T) {
	name := packTree(t, testTree)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	n, err := Unpack(ctx, name, dir, func(opts *UnpackOptions) {
		opts.ProgressReporter = func(src, dst string, _ int64, done bool) {
			cancel()
		}
	})
	assert.True(t, format.IsKind(err, format.KindCancelled), "Unpack() error = %v", err)
	assert.Equal(t, 1, n)

	// files extracted before cancellation are kept.
	assert.Equal(t, map[string][]byte{"a.txt": testTree["a.txt"]}, readTree(t, dir))
}

package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak"
	"github.com/nguyengg/xpak/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory to a new temp directory for the duration of the test and returns it.
func chdir(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})

	return dir
}

// photos creates a directory named "photos" with one file and returns the directory.
func photos(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("not really a jpeg"), 0666))
	return dir
}

func TestPack_Execute(t *testing.T) {
	wd := chdir(t)
	src := photos(t)

	c := &Pack{}
	c.Args.Dir = flags.Filename(src)
	require.NoError(t, c.Execute(nil))
	assert.FileExists(t, filepath.Join(wd, "photos.xpak"))

	// the second archive does not overwrite the first.
	require.NoError(t, c.Execute(nil))
	assert.FileExists(t, filepath.Join(wd, "photos-1.xpak"))
}

func TestPack_Execute_FailureLeavesNothing(t *testing.T) {
	tests := []struct {
		name string
		pack func(src string) *Pack
	}{
		{
			name: "invalid metadata",
			pack: func(src string) *Pack {
				c := &Pack{Metadata: "not json at all"}
				c.Args.Dir = flags.Filename(src)
				return c
			},
		},
		{
			name: "missing directory",
			pack: func(src string) *Pack {
				c := &Pack{}
				c.Args.Dir = flags.Filename(filepath.Join(src, "does-not-exist"))
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wd := chdir(t)

			err := tt.pack(photos(t)).Execute(nil)
			assert.Error(t, err)

			entries, err := os.ReadDir(wd)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestUnpack_Execute(t *testing.T) {
	name := filepath.Join(t.TempDir(), "photos.xpak")
	require.NoError(t, xpak.Pack(context.Background(), photos(t), name))

	wd := chdir(t)

	c := &Unpack{}
	c.Args.File = flags.Filename(name)
	require.NoError(t, c.Execute(nil))
	assert.FileExists(t, filepath.Join(wd, "photos", "a.jpg"))
}

func TestUnpack_Execute_BadMagicLeavesNothing(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.xpak")
	require.NoError(t, os.WriteFile(name, []byte("NOPE and then some"), 0666))

	wd := chdir(t)

	c := &Unpack{}
	c.Args.File = flags.Filename(name)
	err := c.Execute(nil)
	assert.True(t, format.IsKind(err, format.KindBadMagic), "Execute() error = %v", err)

	entries, err := os.ReadDir(wd)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrintMetadata_DamagedEndMarker(t *testing.T) {
	desc := "holiday"
	name := filepath.Join(t.TempDir(), "photos.xpak")
	require.NoError(t, xpak.Pack(context.Background(), photos(t), name, func(opts *xpak.PackOptions) {
		opts.Description = &desc
	}))

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	l := int(binary.LittleEndian.Uint32(data[4:8]))
	copy(data[8+l:], "XPAK_BAD")
	require.NoError(t, os.WriteFile(name, data, 0666))

	var buf bytes.Buffer
	require.NoError(t, printMetadata(&buf, name))
	assert.Contains(t, buf.String(), "files_count: 1\n")
	assert.Contains(t, buf.String(), `description: "holiday"`)
}

func TestPrintMetadata_BadMagic(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.xpak")
	require.NoError(t, os.WriteFile(name, []byte("NOPE"), 0666))

	var buf bytes.Buffer
	err := printMetadata(&buf, name)
	assert.True(t, format.IsKind(err, format.KindBadMagic), "printMetadata() error = %v", err)
	assert.Empty(t, buf.String())
}

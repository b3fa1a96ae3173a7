package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadFrom(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Name), []byte("[pack]\nflat = true\n"), 0666))

	// a directory named .xpak is skipped.
	require.NoError(t, os.Mkdir(filepath.Join(root, "a", Name), 0755))

	l := &Loader{}
	name, err := l.LoadFrom(context.Background(), child)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, Name), name)

	c, err := l.ForPack()
	require.NoError(t, err)
	assert.True(t, c.Flatten)
	assert.Nil(t, c.Description)
}

func TestLoader_ForPack(t *testing.T) {
	l := &Loader{}
	require.NoError(t, l.LoadBytes([]byte(`
[pack]
flat = false
description = my archives
`)))

	c, err := l.ForPack()
	require.NoError(t, err)
	assert.False(t, c.Flatten)
	require.NotNil(t, c.Description)
	assert.Equal(t, "my archives", *c.Description)

	require.NoError(t, l.LoadBytes([]byte("[pack]\nflat = maybe\n")))
	_, err = l.ForPack()
	assert.Error(t, err)
}

func TestLoader_ForIO(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    IOConfig
		wantErr bool
	}{
		{
			name: "empty",
			data: "",
			want: IOConfig{},
		},
		{
			name: "humanised",
			data: "[io]\nbuffer-size = 128 KiB\nthreshold = 4MB\n",
			want: IOConfig{BufferSize: 128 * 1024, Threshold: 4 * 1000 * 1000},
		},
		{
			name: "plain bytes",
			data: "[io]\nthreshold = 1024\n",
			want: IOConfig{Threshold: 1024},
		},
		{
			name:    "invalid",
			data:    "[io]\nbuffer-size = lots\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Loader{}
			require.NoError(t, l.LoadBytes([]byte(tt.data)))

			got, err := l.ForIO()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_Unloaded(t *testing.T) {
	l := &Loader{}

	p, err := l.ForPack()
	assert.NoError(t, err)
	assert.Equal(t, PackConfig{}, p)

	c, err := l.ForIO()
	assert.NoError(t, err)
	assert.Equal(t, IOConfig{}, c)
}

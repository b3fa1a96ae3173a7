package metadata

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nguyengg/xpak/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New([]FileEntry{{"a.txt", 10}, {"b/c.txt", 20}, {"d", 30}})
	assert.Equal(t, uint32(3), m.FilesCount)
	assert.Equal(t, uint64(60), m.TotalSize)
	assert.Equal(t, "1.1", m.FormatVersion)
	assert.Equal(t, ToolVersion, m.ToolVersion)
	assert.False(t, m.CreatedAt.IsZero())

	files, err := m.Index()
	assert.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestEncodeDecode(t *testing.T) {
	desc := "holiday photos"
	m := New([]FileEntry{{"a.txt", 1}})
	m.Description = &desc
	require.NoError(t, m.MergeUser(`{"owner":"me","big":12345678901234567890,"tags":["x",true,null]}`))

	data, err := m.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.FilesCount, got.FilesCount)
	assert.Equal(t, m.TotalSize, got.TotalSize)
	assert.Equal(t, desc, *got.Description)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "me", got.Common["owner"].Text())
	// numbers keep their literal text.
	assert.Equal(t, json.Number("12345678901234567890"), got.Common["big"].Number())
	assert.Equal(t, Array, got.Common["tags"].Kind())
	assert.Equal(t, []FileEntry{{"a.txt", 1}}, got.Files)
}

func TestEncode_EmptyIndex(t *testing.T) {
	data, err := New(nil).Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"files":[]`)
	assert.NotContains(t, string(data), `"description"`)
	assert.NotContains(t, string(data), `"common"`)
}

func TestEncode_DropIndex(t *testing.T) {
	m := New([]FileEntry{{"a.txt", 10}, {"b.txt", 20}})
	m.DropIndex()

	data, err := m.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"files"`)
	assert.Contains(t, string(data), `"files_count":2`)
	assert.Contains(t, string(data), `"total_size":30`)

	got, err := Decode(data)
	require.NoError(t, err)
	_, err = got.Index()
	assert.ErrorIs(t, err, ErrNoIndex)

	// SetFiles brings the index back.
	m.SetFiles([]FileEntry{{"a.txt", 10}})
	data, err = m.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"files":[{"path":"a.txt","size":10}]`)
}

func TestDecode_Index(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid",
			data: `{"format_version":"1.1","files_count":1,"total_size":3,"files":[{"path":"a","size":3}]}`,
		},
		{
			name: "absent on empty archive",
			data: `{"format_version":"1.1","files_count":0,"total_size":0}`,
		},
		{
			name:    "absent",
			data:    `{"format_version":"1.0","files_count":2,"total_size":3}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			data:    `{"format_version":"1.1","files_count":1,"total_size":3,"files":"oops"}`,
			wantErr: true,
		},
		{
			name:    "inconsistent",
			data:    `{"format_version":"1.1","files_count":2,"total_size":3,"files":[{"path":"a","size":3}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.data))
			require.NoErrorf(t, err, "Decode() error = %v", err)

			_, err = m.Index()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoIndex)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"files_count":`))
	assert.True(t, format.IsKind(err, format.KindInvalidJSON), "Decode() error = %v", err)

	_, err = Decode([]byte(`[1,2]`))
	assert.True(t, format.IsKind(err, format.KindNotAnObject), "Decode() error = %v", err)

	_, err = Decode([]byte(`{"files_count":"three"}`))
	assert.True(t, format.IsKind(err, format.KindInvalidJSON), "Decode() error = %v", err)
}

func TestParseUser(t *testing.T) {
	obj := `{"owner":"me","n":1}`

	tests := []struct {
		name     string
		s        string
		wantKind format.Kind
		wantErr  bool
	}{
		{name: "raw object", s: obj},
		{name: "base64 object", s: base64.StdEncoding.EncodeToString([]byte(obj))},
		{name: "raw object with whitespace", s: "  " + obj + "\n"},
		{name: "raw array", s: `["a"]`, wantErr: true, wantKind: format.KindNotAnObject},
		{name: "base64 array", s: base64.StdEncoding.EncodeToString([]byte(`["a"]`)), wantErr: true, wantKind: format.KindNotAnObject},
		{name: "base64-shaped garbage", s: "abcd", wantErr: true, wantKind: format.KindNotAnObject},
		{name: "base64-shaped number", s: "1234", wantErr: true, wantKind: format.KindNotAnObject},
		{name: "plain text", s: "hello world", wantErr: true, wantKind: format.KindInvalidJSON},
		{name: "empty", s: "", wantErr: true, wantKind: format.KindInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUser(tt.s)
			if tt.wantErr {
				var e *format.Error
				require.Truef(t, errors.As(err, &e), "ParseUser(%q) error = %v", tt.s, err)
				assert.Equal(t, tt.wantKind, e.Kind)
				assert.Equal(t, format.MetadataError, e.Kind.Class())
				return
			}

			require.NoErrorf(t, err, "ParseUser(%q) error = %v", tt.s, err)
			assert.Equal(t, "me", got["owner"].Text())
			assert.Equal(t, json.Number("1"), got["n"].Number())
		})
	}
}

func TestMerge(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.MergeUser(`{"a":1,"b":"keep"}`))
	require.NoError(t, m.MergeUser(`{"a":2,"c":null}`))

	assert.Equal(t, json.Number("2"), m.Common["a"].Number())
	assert.Equal(t, "keep", m.Common["b"].Text())
	assert.Equal(t, Null, m.Common["c"].Kind())
	assert.Len(t, m.Common, 3)
}

func TestValue(t *testing.T) {
	v := MustValue(map[string]any{
		"s": "x",
		"b": true,
		"n": 3,
		"a": []any{1.5, nil},
	})
	assert.Equal(t, Object, v.Kind())
	assert.Equal(t, String, v.Object()["s"].Kind())
	assert.True(t, v.Object()["b"].Bool())
	assert.Equal(t, json.Number("3"), v.Object()["n"].Number())
	assert.Equal(t, Null, v.Object()["a"].Array()[1].Kind())
	assert.JSONEq(t, `{"s":"x","b":true,"n":3,"a":[1.5,null]}`, v.String())

	var zero Value
	assert.Equal(t, Null, zero.Kind())
	assert.Equal(t, "null", zero.String())
}

func TestWriteTree(t *testing.T) {
	var buf bytes.Buffer
	err := Tree(&buf, []byte(`{"b":{"x":1,"y":[true,{"z":"q"}]},"a":"s"}`))
	require.NoError(t, err)

	expected := "" +
		"├─ a: \"s\"\n" +
		"└─ b:\n" +
		"    ├─ x: 1\n" +
		"    └─ y:\n" +
		"        ├─ true\n" +
		"        └─\n" +
		"            └─ z: \"q\"\n"
	assert.Equal(t, expected, buf.String())
}

package reader

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, name := range []string{"plain", "CP1252", "Utf16"} {
		_, err := ParseKind(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseKind("latin9")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		in   []byte
		want string
	}{
		{"plain", KindPlain, []byte("caf\xc3\xa9"), "café"},
		{"cp1252", KindCP1252, []byte("caf\xe9 \x80"), "café €"},
		{"utf16 little endian", KindUTF16, []byte{'h', 0, 'i', 0}, "hi"},
		{"utf16 big endian bom", KindUTF16, []byte{0xfe, 0xff, 0, 'h', 0, 'i'}, "hi"},
		{"utf16 little endian bom", KindUTF16, []byte{0xff, 0xfe, 0xe9, 0}, "é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.kind, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestWriterRoundTrip(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(kind, &buf)
			_, err := w.Write([]byte("x := \"é\"\n"))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			back, err := Decode(kind, buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, "x := \"é\"\n", string(back))
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("\xe9t\xe9"), 0o644))

	got, err := ReadFile(KindCP1252, path)
	require.NoError(t, err)
	assert.Equal(t, "été", string(got))

	_, err = ReadFile(KindPlain, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// Package reader decodes input files into UTF-8 and encodes output back into
// the input's encoding.
package reader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Kind int

const (
	// KindPlain passes bytes through unchanged.
	KindPlain Kind = iota
	// KindCP1252 reads Windows code page 1252.
	KindCP1252
	// KindUTF16 reads UTF-16, little endian unless a byte order mark says
	// otherwise.
	KindUTF16
)

var kindNames = map[Kind]string{
	KindPlain:  "plain",
	KindCP1252: "cp1252",
	KindUTF16:  "utf16",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func Kinds() []Kind {
	return []Kind{KindPlain, KindCP1252, KindUTF16}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown reader %q", s)
}

func (k Kind) encoding() encoding.Encoding {
	switch k {
	case KindCP1252:
		return charmap.Windows1252
	case KindUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	}
	return encoding.Nop
}

// Decode converts data to UTF-8.
func Decode(kind Kind, data []byte) ([]byte, error) {
	if kind == KindPlain {
		return data, nil
	}
	out, err := kind.encoding().NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return out, nil
}

// ReadFile reads filename and converts its contents to UTF-8.
func ReadFile(kind Kind, filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Decode(kind, data)
}

// NewWriter returns a writer that converts UTF-8 written to it into the
// encoding of kind before passing it on to w. Close flushes the conversion.
func NewWriter(kind Kind, w io.Writer) io.WriteCloser {
	if kind == KindPlain {
		return nopCloser{w}
	}
	return transform.NewWriter(w, kind.encoding().NewEncoder())
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

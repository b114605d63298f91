package format

import (
	"bytes"
	"io"

	"github.com/dhamidi/iparse/tree"
)

// TextEncoder prints a tree one node per line, children indented below
// their parent.
type TextEncoder struct {
	w    io.Writer
	tree tree.Tree
}

func NewTextEncoder(w io.Writer) *TextEncoder {
	return &TextEncoder{w: w}
}

func (e *TextEncoder) Encode(t tree.Tree) error {
	e.tree = t
	return encode(e.w, e)
}

func (e *TextEncoder) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if err := tree.Print(&buf, e.tree, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LineEncoder writes a tree on a single line in the notation of
// tree.Tree.String.
type LineEncoder struct {
	w    io.Writer
	tree tree.Tree
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(t tree.Tree) error {
	e.tree = t
	return encode(e.w, e)
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	return []byte(e.tree.String() + "\n"), nil
}

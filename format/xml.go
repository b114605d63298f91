package format

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhamidi/iparse/tree"
)

// XMLEncoder writes a tree as XML elements: EMPTY, ID, STRING, INT, DOUBLE,
// CHAR, LIST and TREE with a TYPE attribute.
type XMLEncoder struct {
	w    io.Writer
	tree tree.Tree
}

func NewXMLEncoder(w io.Writer) *XMLEncoder {
	return &XMLEncoder{w: w}
}

func (e *XMLEncoder) Encode(t tree.Tree) error {
	e.tree = t
	return encode(e.w, e)
}

func (e *XMLEncoder) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeXML(&buf, e.tree, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeXML writes t one element per line, indented one space per depth.
// Empty composites are written as self-closing elements.
func writeXML(buf *bytes.Buffer, t tree.Tree, depth int) error {
	indent := strings.Repeat(" ", depth)
	var name, text string
	switch t.Kind() {
	case tree.KindEmpty:
		fmt.Fprintf(buf, "%s<EMPTY/>\n", indent)
		return nil
	case tree.KindIdent:
		name, text = "ID", t.Ident().String()
	case tree.KindString:
		name, text = "STRING", t.Str()
	case tree.KindInt:
		name, text = "INT", strconv.FormatInt(t.Int(), 10)
	case tree.KindDouble:
		name, text = "DOUBLE", strconv.FormatFloat(t.Double(), 'g', -1, 64)
	case tree.KindChar:
		name, text = "CHAR", string(t.Char())
	}

	if name != "" {
		fmt.Fprintf(buf, "%s<%s>", indent, name)
		if err := xml.EscapeText(buf, []byte(text)); err != nil {
			return err
		}
		fmt.Fprintf(buf, "</%s>\n", name)
		return nil
	}

	open := "LIST"
	if t.IsTree() {
		var typ bytes.Buffer
		if err := xml.EscapeText(&typ, []byte(t.Type().String())); err != nil {
			return err
		}
		open = fmt.Sprintf("TREE TYPE=\"%s\"", typ.String())
	}
	if t.NrParts() == 0 {
		fmt.Fprintf(buf, "%s<%s/>\n", indent, open)
		return nil
	}
	fmt.Fprintf(buf, "%s<%s>\n", indent, open)
	for kid := range t.Children() {
		if err := writeXML(buf, kid, depth+1); err != nil {
			return err
		}
	}
	close := "LIST"
	if t.IsTree() {
		close = "TREE"
	}
	fmt.Fprintf(buf, "%s</%s>\n", indent, close)
	return nil
}

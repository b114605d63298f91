package format

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dhamidi/iparse/tree"
)

// GoEncoder writes Go source for a function that rebuilds the tree with a
// tree.Builder. Every List and Tree starts a new line; leaves and closes
// continue the current one.
type GoEncoder struct {
	w    io.Writer
	pkg  string
	fn   string
	tree tree.Tree
}

func NewGoEncoder(w io.Writer, pkg, fn string) *GoEncoder {
	return &GoEncoder{w: w, pkg: pkg, fn: fn}
}

func (e *GoEncoder) Encode(t tree.Tree) error {
	e.tree = t
	return encode(e.w, e)
}

func (e *GoEncoder) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by iparse. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", e.pkg)
	fmt.Fprintf(&buf, "import \"github.com/dhamidi/iparse/tree\"\n\n")
	fmt.Fprintf(&buf, "func %s() tree.Tree {\n", e.fn)
	fmt.Fprintf(&buf, "\tvar b tree.Builder\n")

	g := goWriter{buf: &buf}
	if err := g.write(e.tree); err != nil {
		return nil, err
	}
	g.flush()

	fmt.Fprintf(&buf, "\treturn b.Root()\n}\n")
	return format.Source(buf.Bytes())
}

type goWriter struct {
	buf   *bytes.Buffer
	calls []string
}

func (g *goWriter) call(layout string, args ...any) {
	g.calls = append(g.calls, fmt.Sprintf(layout, args...))
}

func (g *goWriter) flush() {
	if len(g.calls) == 0 {
		return
	}
	fmt.Fprintf(g.buf, "\tb.%s\n", strings.Join(g.calls, "."))
	g.calls = g.calls[:0]
}

func (g *goWriter) write(t tree.Tree) error {
	switch t.Kind() {
	case tree.KindEmpty:
		g.call("None()")
	case tree.KindIdent:
		g.call("ID(%s)", strconv.Quote(t.Ident().String()))
	case tree.KindString:
		g.call("Val(%s)", strconv.Quote(t.Str()))
	case tree.KindInt:
		g.call("Val(int64(%d))", t.Int())
	case tree.KindDouble:
		f := t.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("go: cannot encode double %v", f)
		}
		g.call("Val(float64(%s))", strconv.FormatFloat(f, 'g', -1, 64))
	case tree.KindChar:
		g.call("Val(%s)", strconv.QuoteRune(t.Char()))
	case tree.KindList, tree.KindTree:
		g.flush()
		if t.IsList() {
			g.call("List()")
		} else {
			g.call("Tree(%s)", strconv.Quote(t.Type().String()))
		}
		for kid := range t.Children() {
			if err := g.write(kid); err != nil {
				return err
			}
		}
		g.call("Close()")
	}
	return nil
}

// Package format writes parse trees in the formats the driver offers.
package format

import (
	"encoding"
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/iparse/tree"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(t tree.Tree) error
}

type Kind int

const (
	KindText Kind = iota
	KindLine
	KindJSON
	KindXML
	KindGo
)

var kindNames = map[Kind]string{
	KindText: "text",
	KindLine: "line",
	KindJSON: "json",
	KindXML:  "xml",
	KindGo:   "go",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func Kinds() []Kind {
	return []Kind{KindText, KindLine, KindJSON, KindXML, KindGo}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

type options struct {
	pkg string
	fn  string
}

type Option func(*options)

// WithGoNames sets the package and function name of generated Go source.
// The defaults are main and Tree.
func WithGoNames(pkg, fn string) Option {
	return func(o *options) {
		o.pkg = pkg
		o.fn = fn
	}
}

func NewEncoder(kind Kind, w io.Writer, opts ...Option) (Encoder, error) {
	o := options{pkg: "main", fn: "Tree"}
	for _, opt := range opts {
		opt(&o)
	}
	switch kind {
	case KindText:
		return NewTextEncoder(w), nil
	case KindLine:
		return NewLineEncoder(w), nil
	case KindJSON:
		return NewJSONEncoder(w), nil
	case KindXML:
		return NewXMLEncoder(w), nil
	case KindGo:
		return NewGoEncoder(w, o.pkg, o.fn), nil
	}
	return nil, fmt.Errorf("unknown format %s", kind)
}

// encode marshals m and writes the result to w.
func encode(w io.Writer, m encoding.TextMarshaler) error {
	text, err := m.MarshalText()
	if err != nil {
		return err
	}
	_, err = w.Write(text)
	return err
}

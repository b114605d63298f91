package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/tree"
)

// JSONEncoder writes a tree as nested objects:
//
//	{"kind": "tree", "type": "add", "children": [{"kind": "int", "value": 1}]}
//
// Leaves carry their value; identifiers and chars are written as strings.
type JSONEncoder struct {
	w    io.Writer
	tree tree.Tree
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(t tree.Tree) error {
	e.tree = t
	if err := encode(e.w, e); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, "\n")
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	n, err := nodeToJSON(e.tree)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type jsonNode struct {
	Kind     string      `json:"kind"`
	Type     string      `json:"type,omitempty"`
	Value    any         `json:"value,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

const (
	jsonEmpty  = "empty"
	jsonIdent  = "ident"
	jsonString = "string"
	jsonInt    = "int"
	jsonDouble = "double"
	jsonChar   = "char"
	jsonList   = "list"
	jsonTree   = "tree"
)

func nodeToJSON(t tree.Tree) (*jsonNode, error) {
	switch t.Kind() {
	case tree.KindEmpty:
		return &jsonNode{Kind: jsonEmpty}, nil
	case tree.KindIdent:
		return &jsonNode{Kind: jsonIdent, Value: t.Ident().String()}, nil
	case tree.KindString:
		return &jsonNode{Kind: jsonString, Value: t.Str()}, nil
	case tree.KindInt:
		return &jsonNode{Kind: jsonInt, Value: t.Int()}, nil
	case tree.KindDouble:
		f := t.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("json: cannot encode double %v", f)
		}
		return &jsonNode{Kind: jsonDouble, Value: f}, nil
	case tree.KindChar:
		return &jsonNode{Kind: jsonChar, Value: string(t.Char())}, nil
	}

	jn := &jsonNode{Kind: jsonList}
	if t.IsTree() {
		jn.Kind = jsonTree
		jn.Type = t.Type().String()
	}
	for kid := range t.Children() {
		c, err := nodeToJSON(kid)
		if err != nil {
			return nil, err
		}
		jn.Children = append(jn.Children, c)
	}
	return jn, nil
}

// DecodeJSON reads a tree written by JSONEncoder.
func DecodeJSON(r io.Reader) (tree.Tree, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var n jsonNode
	if err := dec.Decode(&n); err != nil {
		return tree.Tree{}, fmt.Errorf("decode json: %w", err)
	}
	return n.toTree()
}

func (n *jsonNode) toTree() (tree.Tree, error) {
	switch n.Kind {
	case jsonEmpty:
		return tree.Tree{}, nil
	case jsonIdent:
		s, err := n.str()
		if err != nil {
			return tree.Tree{}, err
		}
		return tree.NewIdent(ident.New(s)), nil
	case jsonString:
		s, err := n.str()
		if err != nil {
			return tree.Tree{}, err
		}
		return tree.NewString(s), nil
	case jsonInt:
		num, ok := n.Value.(json.Number)
		if !ok {
			return tree.Tree{}, fmt.Errorf("decode json: int needs a number value, got %v", n.Value)
		}
		i, err := num.Int64()
		if err != nil {
			return tree.Tree{}, fmt.Errorf("decode json: %w", err)
		}
		return tree.NewInt(i), nil
	case jsonDouble:
		num, ok := n.Value.(json.Number)
		if !ok {
			return tree.Tree{}, fmt.Errorf("decode json: double needs a number value, got %v", n.Value)
		}
		f, err := num.Float64()
		if err != nil {
			return tree.Tree{}, fmt.Errorf("decode json: %w", err)
		}
		return tree.NewDouble(f), nil
	case jsonChar:
		s, err := n.str()
		if err != nil {
			return tree.Tree{}, err
		}
		if utf8.RuneCountInString(s) != 1 {
			return tree.Tree{}, fmt.Errorf("decode json: char needs a single character, got %q", s)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return tree.NewChar(r), nil
	case jsonList, jsonTree:
		var t tree.Tree
		if n.Kind == jsonList {
			t = tree.NewList()
		} else {
			if n.Type == "" {
				return tree.Tree{}, fmt.Errorf("decode json: tree without type")
			}
			t = tree.NewTree(ident.New(n.Type))
		}
		for _, c := range n.Children {
			kid, err := c.toTree()
			if err != nil {
				return tree.Tree{}, err
			}
			if err := t.AppendChild(kid); err != nil {
				return tree.Tree{}, err
			}
		}
		return t, nil
	}
	return tree.Tree{}, fmt.Errorf("decode json: unknown kind %q", n.Kind)
}

func (n *jsonNode) str() (string, error) {
	s, ok := n.Value.(string)
	if !ok {
		return "", fmt.Errorf("decode json: %s needs a string value, got %v", n.Kind, n.Value)
	}
	return s, nil
}

// Package tree implements the structural parse tree shared by grammars and
// parse results.
//
// A Tree value is a handle. Copying a Tree aliases the node it refers to:
// children appended through one copy are visible through every other copy.
// Attach and Clear rebind only the handle they are called on. The zero value
// is the Empty tree.
package tree

import (
	"fmt"
	"iter"

	"github.com/dhamidi/iparse/ident"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindIdent
	KindString
	KindInt
	KindDouble
	KindChar
	KindList
	KindTree
)

var kindNames = map[Kind]string{
	KindEmpty:  "Empty",
	KindIdent:  "Ident",
	KindString: "String",
	KindInt:    "Int",
	KindDouble: "Double",
	KindChar:   "Char",
	KindList:   "List",
	KindTree:   "Tree",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type node struct {
	kind     Kind
	id       ident.Ident // identifier leaf, or type of a Tree
	str      string
	i        int64
	f        float64
	c        rune
	children []Tree
}

type Tree struct {
	n *node
}

// StructuralError reports an operation that is not valid for a tree's kind.
type StructuralError struct {
	Op   string
	Kind Kind
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: not allowed on %s", e.Op, e.Kind)
}

func NewIdent(id ident.Ident) Tree {
	return Tree{n: &node{kind: KindIdent, id: id}}
}

func NewString(s string) Tree {
	return Tree{n: &node{kind: KindString, str: s}}
}

func NewInt(i int64) Tree {
	return Tree{n: &node{kind: KindInt, i: i}}
}

func NewDouble(f float64) Tree {
	return Tree{n: &node{kind: KindDouble, f: f}}
}

func NewChar(c rune) Tree {
	return Tree{n: &node{kind: KindChar, c: c}}
}

// NewList returns a new List holding kids.
func NewList(kids ...Tree) Tree {
	return Tree{n: &node{kind: KindList, children: kids}}
}

// NewTree returns a new Tree of the given type holding kids.
func NewTree(typ ident.Ident, kids ...Tree) Tree {
	return Tree{n: &node{kind: KindTree, id: typ, children: kids}}
}

// Literal wraps a Go value as a leaf. Supported values are strings, signed
// integers, floats, runes (passed as rune) and ident.Ident.
func Literal(v any) (Tree, error) {
	switch v := v.(type) {
	case string:
		return NewString(v), nil
	case int:
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case float64:
		return NewDouble(v), nil
	case rune:
		return NewChar(v), nil
	case ident.Ident:
		return NewIdent(v), nil
	default:
		return Tree{}, fmt.Errorf("literal: unsupported value of type %T", v)
	}
}

// CreateList rebinds t to a new, empty List.
func (t *Tree) CreateList() {
	t.n = &node{kind: KindList}
}

// CreateTree rebinds t to a new Tree of type typ without children.
func (t *Tree) CreateTree(typ ident.Ident) {
	t.n = &node{kind: KindTree, id: typ}
}

// AppendChild adds child to the node t refers to. Every alias of t observes
// the new child.
func (t Tree) AppendChild(child Tree) error {
	if t.n == nil || (t.n.kind != KindList && t.n.kind != KindTree) {
		return &StructuralError{Op: "append child", Kind: t.Kind()}
	}
	t.n.children = append(t.n.children, child)
	return nil
}

// Attach rebinds t to the node other refers to.
func (t *Tree) Attach(other Tree) {
	t.n = other.n
}

// Clear rebinds t to Empty. Other handles to the old node are unaffected.
func (t *Tree) Clear() {
	t.n = nil
}

func (t Tree) Kind() Kind {
	if t.n == nil {
		return KindEmpty
	}
	return t.n.kind
}

func (t Tree) IsEmpty() bool  { return t.Kind() == KindEmpty }
func (t Tree) IsIdent() bool  { return t.Kind() == KindIdent }
func (t Tree) IsString() bool { return t.Kind() == KindString }
func (t Tree) IsInt() bool    { return t.Kind() == KindInt }
func (t Tree) IsDouble() bool { return t.Kind() == KindDouble }
func (t Tree) IsChar() bool   { return t.Kind() == KindChar }
func (t Tree) IsList() bool   { return t.Kind() == KindList }
func (t Tree) IsTree() bool   { return t.Kind() == KindTree }

// IsTreeOf reports whether t is a Tree of the given type.
func (t Tree) IsTreeOf(typ ident.Ident) bool {
	return t.IsTree() && t.n.id == typ
}

// Type returns the type of a Tree, or the zero identifier for other kinds.
func (t Tree) Type() ident.Ident {
	if !t.IsTree() {
		return ident.Ident{}
	}
	return t.n.id
}

// Ident returns the identifier of an Ident leaf.
func (t Tree) Ident() ident.Ident {
	if !t.IsIdent() {
		return ident.Ident{}
	}
	return t.n.id
}

func (t Tree) Str() string {
	if !t.IsString() {
		return ""
	}
	return t.n.str
}

func (t Tree) Int() int64 {
	if !t.IsInt() {
		return 0
	}
	return t.n.i
}

func (t Tree) Double() float64 {
	if !t.IsDouble() {
		return 0
	}
	return t.n.f
}

func (t Tree) Char() rune {
	if !t.IsChar() {
		return 0
	}
	return t.n.c
}

// NrParts returns the number of children of a List or Tree.
func (t Tree) NrParts() int {
	if t.n == nil {
		return 0
	}
	return len(t.n.children)
}

// Child returns the i-th child, or Empty when i is out of range.
func (t Tree) Child(i int) Tree {
	if t.n == nil || i < 0 || i >= len(t.n.children) {
		return Tree{}
	}
	return t.n.children[i]
}

// Children iterates over the children present when iteration starts.
// Children appended during iteration are not visited.
func (t Tree) Children() iter.Seq[Tree] {
	return func(yield func(Tree) bool) {
		if t.n == nil {
			return
		}
		kids := t.n.children[:len(t.n.children):len(t.n.children)]
		for _, kid := range kids {
			if !yield(kid) {
				return
			}
		}
	}
}

// Same reports whether a and b refer to the same node.
func Same(a, b Tree) bool {
	return a.n == b.n
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Tree) bool {
	if a.n == b.n {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindIdent:
		return a.n.id == b.n.id
	case KindString:
		return a.n.str == b.n.str
	case KindInt:
		return a.n.i == b.n.i
	case KindDouble:
		return a.n.f == b.n.f
	case KindChar:
		return a.n.c == b.n.c
	case KindTree:
		if a.n.id != b.n.id {
			return false
		}
	}
	if len(a.n.children) != len(b.n.children) {
		return false
	}
	for i := range a.n.children {
		if !Equal(a.n.children[i], b.n.children[i]) {
			return false
		}
	}
	return true
}

func (t Tree) Equal(other Tree) bool {
	return Equal(t, other)
}

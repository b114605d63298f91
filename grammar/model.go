// Package grammar turns grammar trees into an immutable model that the
// parsing engines interpret.
//
// A grammar tree is itself a parse tree of the meta-grammar (see Bootstrap):
// a list of nt_def trees, each naming a non-terminal and listing its rules.
// Load validates that shape and resolves references; Analyze computes the
// lookahead sets used by the LL(1) engines; CheckTypes reports rules that
// produce the same tree type with different shapes.
package grammar

import (
	"fmt"
	"strings"

	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/tree"
)

// Element is one item of a rule body. The set of implementations is closed.
type Element interface {
	fmt.Stringer
	element()
}

// Literal matches a token whose text equals Text. A local literal is not a
// reserved word of the scanner.
type Literal struct {
	Text  string
	Local bool
}

// Binding says what a reference does with the value it matched.
type Binding int

const (
	// Plain contributes the matched value.
	Plain Binding = iota
	// Use requires the value to equal one already bound to Field.
	Use
	// DefineSingle binds the value to Field, which must not be bound yet.
	DefineSingle
	// DefineAppend appends the value to Field.
	DefineAppend
	// AsField contributes Tree(Field, value).
	AsField
	// AsLeaf contributes the value as a leaf.
	AsLeaf
)

var bindingNames = map[Binding]string{
	Plain:        "plain",
	Use:          "use",
	DefineSingle: "define",
	DefineAppend: "append",
	AsField:      "field",
	AsLeaf:       "leaf",
}

func (b Binding) String() string {
	if name, ok := bindingNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Binding(%d)", int(b))
}

// Ref refers to a non-terminal or to a scanner terminal. Def is nil for
// terminals.
type Ref struct {
	Name    ident.Ident
	Binding Binding
	Field   ident.Ident
	Def     *NonTerminal
}

// IsTerminal reports whether r names a scanner terminal.
func (r *Ref) IsTerminal() bool {
	return r.Def == nil
}

// Context opens (Open) or closes a scanner context.
type Context struct {
	Open bool
}

// WSTerminal matches a terminal that must directly follow the previous token.
type WSTerminal struct {
	Name ident.Ident
}

// Opt matches Body or nothing.
type Opt struct {
	Body      Element
	Avoid     bool
	NonGreedy bool
}

// Seq matches Body one or more times.
type Seq struct {
	Body  Element
	Avoid bool
}

// List matches Body zero or more times.
type List struct {
	Body  Element
	Avoid bool
}

// Chain matches one or more Body separated by Sep.
type Chain struct {
	Body  Element
	Sep   *Literal
	Avoid bool
}

// Group matches one of its rules, like an inline non-terminal.
type Group struct {
	Rules []*Rule
}

func (*Literal) element()    {}
func (*Ref) element()        {}
func (*Context) element()    {}
func (*WSTerminal) element() {}
func (*Opt) element()        {}
func (*Seq) element()        {}
func (*List) element()       {}
func (*Chain) element()      {}
func (*Group) element()      {}

// Rule is one alternative. A rule with a zero Type is transparent.
type Rule struct {
	Elements []Element
	Type     ident.Ident
	Owner    *NonTerminal
}

func (r *Rule) Transparent() bool {
	return r.Type.IsZero()
}

type NonTerminal struct {
	Name  ident.Ident
	Rules []*Rule
}

// Terminal names understood by every scanner.
const (
	TermIdent  = "ident"
	TermString = "string"
	TermInt    = "int"
	TermDouble = "double"
	TermChar   = "char"
	TermEOF    = "eof"
)

// IsBuiltinTerminal reports whether name is one of the built-in terminals.
func IsBuiltinTerminal(name string) bool {
	switch name {
	case TermIdent, TermString, TermInt, TermDouble, TermChar, TermEOF:
		return true
	}
	return false
}

type Grammar struct {
	tree     tree.Tree
	nts      map[ident.Ident]*NonTerminal
	order    []*NonTerminal
	literals []Literal
}

// Tree returns the grammar tree g was loaded from.
func (g *Grammar) Tree() tree.Tree {
	return g.tree
}

// Lookup returns the non-terminal called name, or nil.
func (g *Grammar) Lookup(name string) *NonTerminal {
	id, ok := ident.Lookup(name)
	if !ok {
		return nil
	}
	return g.nts[id]
}

// NonTerminals returns the non-terminals in definition order.
func (g *Grammar) NonTerminals() []*NonTerminal {
	return g.order
}

// Literals returns every distinct literal of the grammar, including chain
// separators, in order of appearance.
func (g *Grammar) Literals() []Literal {
	return g.literals
}

// Yields reports whether matching e contributes a value to the enclosing rule.
func Yields(e Element) bool {
	switch e := e.(type) {
	case *Literal, *Context:
		return false
	case *Ref:
		switch e.Binding {
		case Use, DefineSingle, DefineAppend:
			return false
		}
		return !(e.IsTerminal() && e.Name.String() == TermEOF)
	case *WSTerminal, *Opt, *Group:
		return true
	case *Seq:
		return Yields(e.Body)
	case *List:
		return Yields(e.Body)
	case *Chain:
		return Yields(e.Body)
	}
	return false
}

// Body returns the repeated element and the repetition bounds of a Seq, List
// or Chain.
func Body(e Element) (body Element, sep *Literal, min int, avoid bool) {
	switch e := e.(type) {
	case *Seq:
		return e.Body, nil, 1, e.Avoid
	case *List:
		return e.Body, nil, 0, e.Avoid
	case *Chain:
		return e.Body, e.Sep, 1, e.Avoid
	}
	panic(fmt.Sprintf("grammar.Body: %T is not a repetition", e))
}

func (l *Literal) String() string {
	if l.Local {
		return Quote(l.Text) + "*"
	}
	return Quote(l.Text)
}

func (r *Ref) String() string {
	switch r.Binding {
	case Use:
		return fmt.Sprintf("%s < %s", r.Name, r.Field)
	case DefineSingle:
		return fmt.Sprintf("%s > %s", r.Name, r.Field)
	case DefineAppend:
		return fmt.Sprintf("%s >+ %s", r.Name, r.Field)
	case AsField:
		return fmt.Sprintf("%s ! %s", r.Name, r.Field)
	}
	return r.Name.String()
}

func (c *Context) String() string {
	if c.Open {
		return "{"
	}
	return "}"
}

func (w *WSTerminal) String() string {
	return `\` + w.Name.String()
}

func (o *Opt) String() string {
	switch {
	case o.Avoid:
		return o.Body.String() + " OPT AVOID"
	case o.NonGreedy:
		return o.Body.String() + " OPT NONGREEDY"
	}
	return o.Body.String() + " OPT"
}

func (s *Seq) String() string {
	return s.Body.String() + " SEQ" + avoidSuffix(s.Avoid)
}

func (l *List) String() string {
	return l.Body.String() + " LIST" + avoidSuffix(l.Avoid)
}

func (c *Chain) String() string {
	return c.Body.String() + " CHAIN" + avoidSuffix(c.Avoid) + " " + Quote(c.Sep.Text)
}

func (g *Group) String() string {
	parts := make([]string, len(g.Rules))
	for i, r := range g.Rules {
		parts[i] = r.String()
	}
	return "( " + strings.Join(parts, " | ") + " )"
}

func (r *Rule) String() string {
	parts := make([]string, 0, len(r.Elements)+1)
	for _, e := range r.Elements {
		parts = append(parts, e.String())
	}
	if !r.Type.IsZero() {
		parts = append(parts, "["+r.Type.String()+"]")
	}
	return strings.Join(parts, " ")
}

func (nt *NonTerminal) String() string {
	parts := make([]string, len(nt.Rules))
	for i, r := range nt.Rules {
		parts[i] = r.String()
	}
	return nt.Name.String() + " : " + strings.Join(parts, " | ") + " ."
}

func avoidSuffix(avoid bool) string {
	if avoid {
		return " AVOID"
	}
	return ""
}

// Quote renders s as a grammar string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

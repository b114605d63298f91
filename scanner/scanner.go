// Package scanner provides the token sources the parsing engines read from.
//
// A scanner works on an in-memory buffer and never looks ahead of the
// position it is asked about, so engines can save and restore positions
// freely while backtracking. The engine never classifies tokens itself: it
// asks the scanner whether the current token is a given literal or a given
// terminal.
package scanner

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dhamidi/iparse/tree"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"
)

// Position is a location in the input. Line and Column start at 1.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Text string
	Pos  Position
}

// Literal is a fixed text the grammar matches. Local literals are not
// reserved words.
type Literal struct {
	Text  string
	Local bool
}

// State is a saved scanner position, including the context stack.
type State struct {
	off int
	ctx *frame
}

// Offset returns the input offset of s.
func (s State) Offset() int {
	return s.off
}

// Error is a fatal lexical error. It aborts the parse.
type Error struct {
	Pos Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Scanner is the capability the engines parse with.
type Scanner interface {
	// Init starts scanning src. literals are the grammar's literals.
	Init(src []byte, literals []Literal)
	// Token returns the current token without consuming it. At the end of
	// input the token text is empty.
	Token() Token
	AtEnd() bool
	// Skipped reports whether whitespace or comments precede the current
	// token.
	Skipped() bool
	// AcceptLiteral consumes the current token if its text is text.
	AcceptLiteral(text string, local bool) bool
	// AcceptTerminal consumes the current token if it is the named
	// terminal and returns its value.
	AcceptTerminal(name string) (value tree.Tree, ok bool)
	IsTerminal(name string) bool
	PushContext()
	PopContext()
	Save() State
	Restore(State)
	// Err returns the first fatal error met, if any.
	Err() error
}

// Built-in terminal names.
const (
	TermIdent  = "ident"
	TermString = "string"
	TermInt    = "int"
	TermDouble = "double"
	TermChar   = "char"
	TermEOF    = "eof"
)

func isBuiltin(name string) bool {
	switch name {
	case TermIdent, TermString, TermInt, TermDouble, TermChar, TermEOF:
		return true
	}
	return false
}

type Kind int

const (
	KindBasic Kind = iota
	KindRaw
	KindEBNF
)

var kindNames = map[Kind]string{
	KindBasic: "Basic",
	KindRaw:   "Raw",
	KindEBNF:  "EBNF",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the scanner kind named s, ignoring case.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown scanner %q", s)
}

// New returns a scanner of the given kind.
func New(kind Kind, opts ...Option) (Scanner, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	switch kind {
	case KindBasic:
		return newBasic(o), nil
	case KindRaw:
		return newRaw(o), nil
	case KindEBNF:
		if o.lexer == nil {
			return nil, fmt.Errorf("EBNF scanner needs a lexical grammar")
		}
		return newEBNF(o), nil
	}
	return nil, fmt.Errorf("unknown scanner kind %d", int(kind))
}

// frame is one entry of the persistent context stack.
type frame struct {
	parent   *frame
	reserved []string
}

// base holds what every scanner shares: the buffer, the position, the
// context stack and the reserved words.
type base struct {
	src      []byte
	off      int
	ctx      *frame
	lines    []int
	reserved map[string]bool
	err      error
	log      commonlog.Logger
	debug    bool
}

func newBase(o options) base {
	return base{
		log:   commonlog.GetLogger("iparse.scanner"),
		debug: o.debug,
	}
}

func (b *base) reset(src []byte, literals []Literal) {
	b.src = src
	b.off = 0
	b.ctx = nil
	b.err = nil
	b.lines = b.lines[:0]
	b.lines = append(b.lines, 0)
	for i, c := range src {
		if c == '\n' {
			b.lines = append(b.lines, i+1)
		}
	}
	b.reserved = make(map[string]bool)
	for _, lit := range literals {
		if !lit.Local && isIdentShaped(lit.Text) {
			b.reserved[lit.Text] = true
		}
	}
}

func (b *base) position(off int) Position {
	line := sort.Search(len(b.lines), func(i int) bool { return b.lines[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	return Position{Offset: off, Line: line + 1, Column: off - b.lines[line] + 1}
}

func (b *base) Save() State {
	return State{off: b.off, ctx: b.ctx}
}

func (b *base) Restore(s State) {
	b.off = s.off
	b.ctx = s.ctx
}

func (b *base) PushContext() {
	b.ctx = &frame{parent: b.ctx}
}

func (b *base) PopContext() {
	if b.ctx != nil {
		b.ctx = b.ctx.parent
	}
}

// reserveLocal makes a local literal a reserved word until the current
// context closes. Outside any context local literals stay unreserved.
func (b *base) reserveLocal(text string) {
	if b.ctx == nil || !isIdentShaped(text) || slices.Contains(b.ctx.reserved, text) {
		return
	}
	b.ctx = &frame{
		parent:   b.ctx.parent,
		reserved: append(slices.Clip(b.ctx.reserved), text),
	}
}

func (b *base) isReserved(word string) bool {
	if b.reserved[word] {
		return true
	}
	for f := b.ctx; f != nil; f = f.parent {
		if slices.Contains(f.reserved, word) {
			return true
		}
	}
	return false
}

func (b *base) Err() error {
	return b.err
}

func (b *base) fail(off int, format string, args ...any) {
	if b.err == nil {
		b.err = &Error{Pos: b.position(off), Msg: fmt.Sprintf(format, args...)}
	}
}

func (b *base) trace(format string, args ...any) {
	if b.debug {
		b.log.Debugf(format, args...)
	}
}

type Option func(*options)

type options struct {
	debug      bool
	lexer      ebnf.Grammar
	identKinds []string
}

// WithDebug logs every accepted token at debug level.
func WithDebug(on bool) Option {
	return func(o *options) {
		o.debug = on
	}
}

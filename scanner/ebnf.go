package scanner

import (
	"fmt"
	"os"
	"slices"
	"unicode/utf8"

	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/tree"
	"golang.org/x/exp/ebnf"
)

// WithLexer sets the lexical grammar of an EBNF scanner.
func WithLexer(g ebnf.Grammar) Option {
	return func(o *options) {
		o.lexer = g
	}
}

// WithIdentKinds names the token kinds the ident terminal accepts. The
// default is Identifier and Ident.
func WithIdentKinds(kinds ...string) Option {
	return func(o *options) {
		o.identKinds = kinds
	}
}

// LoadLexer reads an EBNF lexical grammar from a file.
func LoadLexer(filename string) (ebnf.Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open lexer: %w", err)
	}
	defer f.Close()

	g, err := ebnf.Parse(filename, f)
	if err != nil {
		return nil, fmt.Errorf("parse lexer: %w", err)
	}
	return g, nil
}

// Token kinds an EBNF scanner skips between tokens.
var skipKinds = []string{"WhiteSpace", "Comment"}

// kindError is the kind of a character no production matches. Such
// characters are single-character tokens that only literals can accept.
const kindError = "ERROR"

type memoKey struct {
	name   string
	offset int
}

// EBNF scans tokens described by the productions of an EBNF grammar whose
// names start with an upper-case letter. At each position the longest match
// wins; productions named WhiteSpace and Comment are skipped. Every token
// kind is a terminal; its value is the token text as a String, or an Ident
// for the ident kinds.
type EBNF struct {
	base
	grammar    ebnf.Grammar
	kinds      []string
	identKinds []string
	memo       map[memoKey]int
	visiting   map[memoKey]bool

	cacheOff int
	cache    ebnfToken
	cached   bool
}

type ebnfToken struct {
	kind  string
	start int
	end   int
	text  string
}

func NewEBNF(g ebnf.Grammar, opts ...Option) *EBNF {
	o := options{lexer: g}
	for _, opt := range opts {
		opt(&o)
	}
	return newEBNF(o)
}

func newEBNF(o options) *EBNF {
	s := &EBNF{
		base:       newBase(o),
		grammar:    o.lexer,
		identKinds: o.identKinds,
		memo:       make(map[memoKey]int),
		visiting:   make(map[memoKey]bool),
	}
	if len(s.identKinds) == 0 {
		s.identKinds = []string{"Identifier", "Ident"}
	}
	for name, prod := range s.grammar {
		if prod.Expr != nil && isTokenName(name) {
			s.kinds = append(s.kinds, name)
		}
	}
	slices.Sort(s.kinds)
	return s
}

func isTokenName(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (s *EBNF) Init(src []byte, literals []Literal) {
	s.reset(src, literals)
	s.cached = false
}

func (s *EBNF) current() ebnfToken {
	if s.cached && s.cacheOff == s.off {
		return s.cache
	}
	off := s.off
	tok := s.next(off)
	for slices.Contains(skipKinds, tok.kind) {
		off = tok.end
		tok = s.next(off)
	}
	s.cacheOff, s.cache, s.cached = s.off, tok, true
	return tok
}

// next returns the longest token starting at offset.
func (s *EBNF) next(offset int) ebnfToken {
	if offset >= len(s.src) {
		return ebnfToken{start: offset, end: offset}
	}

	clear(s.memo)

	var bestKind string
	var bestLen int
	for _, name := range s.kinds {
		clear(s.visiting)
		n := s.tryMatch(s.grammar[name].Expr, offset)
		if n > bestLen {
			bestLen = n
			bestKind = name
		}
	}

	if bestLen == 0 {
		r, size := utf8.DecodeRune(s.src[offset:])
		if r == utf8.RuneError && size == 1 {
			s.fail(offset, "invalid UTF-8 encoding")
		}
		return ebnfToken{kind: kindError, start: offset, end: offset + size, text: string(s.src[offset : offset+size])}
	}
	return ebnfToken{kind: bestKind, start: offset, end: offset + bestLen, text: string(s.src[offset : offset+bestLen])}
}

// tryMatch returns the length of the longest match of expr at offset, or 0.
func (s *EBNF) tryMatch(expr ebnf.Expression, offset int) int {
	switch e := expr.(type) {
	case *ebnf.Token:
		if offset+len(e.String) > len(s.src) || string(s.src[offset:offset+len(e.String)]) != e.String {
			return 0
		}
		return len(e.String)

	case *ebnf.Range:
		return s.tryMatchRange(e.Begin.String, e.End.String, offset)

	case ebnf.Sequence:
		total := 0
		for _, item := range e {
			n := s.tryMatch(item, offset+total)
			if n == 0 && !s.nullable(item) {
				return 0
			}
			total += n
		}
		return total

	case ebnf.Alternative:
		best := 0
		for _, alt := range e {
			if n := s.tryMatch(alt, offset); n > best {
				best = n
			}
		}
		return best

	case *ebnf.Repetition:
		total := 0
		for {
			n := s.tryMatch(e.Body, offset+total)
			if n == 0 {
				return total
			}
			total += n
		}

	case *ebnf.Option:
		return s.tryMatch(e.Body, offset)

	case *ebnf.Group:
		return s.tryMatch(e.Body, offset)

	case *ebnf.Name:
		return s.tryMatchName(e.String, offset)
	}
	return 0
}

// nullable reports whether expr may match empty input, so a zero-length
// match of it does not end a sequence.
func (s *EBNF) nullable(expr ebnf.Expression) bool {
	switch e := expr.(type) {
	case *ebnf.Option, *ebnf.Repetition:
		return true
	case *ebnf.Group:
		return s.nullable(e.Body)
	}
	return false
}

func (s *EBNF) tryMatchName(name string, offset int) int {
	key := memoKey{name: name, offset: offset}
	if n, ok := s.memo[key]; ok {
		return n
	}
	// A production reached again at the same offset is left recursive.
	if s.visiting[key] {
		return 0
	}
	prod, ok := s.grammar[name]
	if !ok || prod.Expr == nil {
		s.memo[key] = 0
		return 0
	}

	s.visiting[key] = true
	n := s.tryMatch(prod.Expr, offset)
	delete(s.visiting, key)

	s.memo[key] = n
	return n
}

func (s *EBNF) tryMatchRange(begin, end string, offset int) int {
	if offset >= len(s.src) {
		return 0
	}
	lo, _ := utf8.DecodeRuneInString(begin)
	hi, _ := utf8.DecodeRuneInString(end)
	r, size := utf8.DecodeRune(s.src[offset:])
	if r >= lo && r <= hi {
		return size
	}
	return 0
}

func (s *EBNF) Token() Token {
	tok := s.current()
	return Token{Text: tok.text, Pos: s.position(tok.start)}
}

func (s *EBNF) AtEnd() bool {
	return s.current().kind == ""
}

func (s *EBNF) Skipped() bool {
	return s.current().start > s.off
}

func (s *EBNF) AcceptLiteral(text string, local bool) bool {
	tok := s.current()
	if tok.kind == "" || tok.text != text {
		return false
	}
	s.off = tok.end
	if local {
		s.reserveLocal(text)
	}
	s.trace("literal %q at %s", text, s.position(tok.start))
	return true
}

func (s *EBNF) AcceptTerminal(name string) (tree.Tree, bool) {
	tok := s.current()
	var v tree.Tree
	switch {
	case name == TermEOF:
		return tree.Tree{}, tok.kind == ""
	case name == TermIdent || slices.Contains(s.identKinds, name):
		if !slices.Contains(s.identKinds, tok.kind) || (name != TermIdent && tok.kind != name) || s.isReserved(tok.text) {
			return tree.Tree{}, false
		}
		v = tree.NewIdent(ident.New(tok.text))
	case tok.kind == name:
		v = tree.NewString(tok.text)
	default:
		return tree.Tree{}, false
	}
	s.off = tok.end
	s.trace("%s %q at %s", name, tok.text, s.position(tok.start))
	return v, true
}

func (s *EBNF) IsTerminal(name string) bool {
	if name == TermEOF || name == TermIdent {
		return true
	}
	return slices.Contains(s.kinds, name)
}

package scanner

import (
	"bytes"
	"slices"
	"strings"

	"github.com/dhamidi/iparse/tree"
)

// Basic scans C-like tokens: identifiers, numbers, double-quoted strings,
// single-quoted characters and operators. Operators are split greedily using
// the grammar's non-identifier literals. White space, // comments and /* */
// comments are skipped. Identifier-shaped literals are reserved words.
type Basic struct {
	base
	ops []string

	cacheOff int
	cache    lexeme
	cached   bool
}

func NewBasic(opts ...Option) *Basic {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return newBasic(o)
}

func newBasic(o options) *Basic {
	return &Basic{base: newBase(o)}
}

func (s *Basic) Init(src []byte, literals []Literal) {
	s.reset(src, literals)
	s.ops = s.ops[:0]
	for _, lit := range literals {
		if !isIdentShaped(lit.Text) {
			s.ops = append(s.ops, lit.Text)
		}
	}
	s.ops = longestFirst(s.ops)
	s.cached = false
}

func (s *Basic) current() lexeme {
	if s.cached && s.cacheOff == s.off {
		return s.cache
	}
	start := s.skipSpaceAndComments(s.off)
	lx := s.lexAt(start)
	if lx.kind == lexOther {
		if op, ok := longestPrefix(s.src[start:], s.ops); ok {
			lx = s.lexeme(lexOther, start, start+len(op))
		}
	}
	s.cacheOff, s.cache, s.cached = s.off, lx, true
	return lx
}

func (s *Basic) Token() Token {
	lx := s.current()
	return Token{Text: lx.text, Pos: s.position(lx.start)}
}

func (s *Basic) AtEnd() bool {
	return s.current().kind == lexEOF
}

func (s *Basic) Skipped() bool {
	return s.current().start > s.off
}

func (s *Basic) AcceptLiteral(text string, local bool) bool {
	lx := s.current()
	if lx.kind == lexEOF || lx.text != text {
		return false
	}
	s.off = lx.end
	if local {
		s.reserveLocal(text)
	}
	s.trace("literal %q at %s", text, s.position(lx.start))
	return true
}

func (s *Basic) AcceptTerminal(name string) (tree.Tree, bool) {
	lx := s.current()
	v, ok := s.value(lx, name)
	if !ok {
		return tree.Tree{}, false
	}
	s.off = lx.end
	s.trace("%s %q at %s", name, lx.text, s.position(lx.start))
	return v, true
}

func (s *Basic) IsTerminal(name string) bool {
	return isBuiltin(name)
}

func longestFirst(texts []string) []string {
	out := slices.Clone(texts)
	slices.SortFunc(out, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return slices.Compact(out)
}

func longestPrefix(src []byte, texts []string) (string, bool) {
	for _, t := range texts {
		if bytes.HasPrefix(src, []byte(t)) {
			return t, true
		}
	}
	return "", false
}

package scanner

import (
	"github.com/dhamidi/iparse/tree"
)

// Raw treats the input as characters. The current token is the longest
// grammar literal at the current position, or else a single character.
// Only white space is skipped and no word is reserved. Terminals are still
// recognized by their lexical class, so ident matches a whole word.
type Raw struct {
	base
	lits []string

	cacheOff int
	cache    lexeme
	cached   bool
}

func NewRaw(opts ...Option) *Raw {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return newRaw(o)
}

func newRaw(o options) *Raw {
	return &Raw{base: newBase(o)}
}

func (s *Raw) Init(src []byte, literals []Literal) {
	s.reset(src, nil)
	s.lits = s.lits[:0]
	for _, lit := range literals {
		s.lits = append(s.lits, lit.Text)
	}
	s.lits = longestFirst(s.lits)
	s.cached = false
}

func (s *Raw) current() lexeme {
	if s.cached && s.cacheOff == s.off {
		return s.cache
	}
	start := s.skipSpace(s.off)
	var lx lexeme
	if lit, ok := longestPrefix(s.src[start:], s.lits); ok {
		lx = s.lexeme(lexOther, start, start+len(lit))
	} else if start >= len(s.src) {
		lx = lexeme{kind: lexEOF, start: start, end: start}
	} else {
		_, size := s.peekRune(start)
		lx = s.lexeme(lexOther, start, start+size)
	}
	s.cacheOff, s.cache, s.cached = s.off, lx, true
	return lx
}

func (s *Raw) Token() Token {
	lx := s.current()
	return Token{Text: lx.text, Pos: s.position(lx.start)}
}

func (s *Raw) AtEnd() bool {
	return s.current().kind == lexEOF
}

func (s *Raw) Skipped() bool {
	return s.current().start > s.off
}

func (s *Raw) AcceptLiteral(text string, local bool) bool {
	lx := s.current()
	if lx.kind == lexEOF || lx.text != text {
		return false
	}
	s.off = lx.end
	s.trace("literal %q at %s", text, s.position(lx.start))
	return true
}

func (s *Raw) AcceptTerminal(name string) (tree.Tree, bool) {
	lx := s.lexAt(s.skipSpace(s.off))
	v, ok := s.value(lx, name)
	if !ok {
		return tree.Tree{}, false
	}
	s.off = lx.end
	s.trace("%s %q at %s", name, lx.text, s.position(lx.start))
	return v, true
}

func (s *Raw) IsTerminal(name string) bool {
	return isBuiltin(name)
}

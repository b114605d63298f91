package engine

import (
	"context"
	"slices"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
	"github.com/tliron/commonlog"
)

// checkEvery is how many steps pass between context checks.
const checkEvery = 256

const endOfInput = "end of input"

// matcher matches the leaf elements of a grammar for one parse and keeps
// track of the furthest failure.
type matcher struct {
	ctx   context.Context
	sc    scanner.Scanner
	an    *grammar.Analysis
	log   commonlog.Logger
	debug Debug
	steps int

	far    FurthestFailure
	farOff int
}

func (m *matcher) start() state {
	return state{sc: m.sc.Save(), frames: &frame{}}
}

// tick counts a step and aborts the parse once the context is done.
func (m *matcher) tick() {
	m.steps++
	if m.steps%checkEvery == 0 {
		if err := m.ctx.Err(); err != nil {
			panic(abort{err: err})
		}
	}
}

// check aborts the parse on a scanner error.
func (m *matcher) check() {
	if err := m.sc.Err(); err != nil {
		panic(abort{err: err})
	}
}

// expect records that what was expected at the token following at.
func (m *matcher) expect(at scanner.State, what ...string) {
	m.sc.Restore(at)
	tok := m.sc.Token()
	m.check()
	if tok.Pos.Offset < m.farOff {
		return
	}
	if tok.Pos.Offset > m.farOff {
		m.farOff = tok.Pos.Offset
		found := tok.Text
		if m.sc.AtEnd() {
			found = endOfInput
		}
		m.far = FurthestFailure{Pos: tok.Pos, Found: found}
	}
	for _, w := range what {
		if !slices.Contains(m.far.Expected, w) {
			m.far.Expected = append(m.far.Expected, w)
		}
	}
}

func (m *matcher) failure() error {
	if m.farOff < 0 {
		m.expect(m.sc.Save())
	}
	f := m.far
	f.Expected = slices.Clone(f.Expected)
	return &ParseFailure{FurthestFailure: f}
}

func (m *matcher) literal(lit *grammar.Literal, st state) (state, bool) {
	m.tick()
	m.sc.Restore(st.sc)
	ok := m.sc.AcceptLiteral(lit.Text, lit.Local)
	m.check()
	if !ok {
		m.expect(st.sc, grammar.Quote(lit.Text))
		return st, false
	}
	m.traceElem(lit, st)
	st.sc = m.sc.Save()
	return st, true
}

func (m *matcher) context(c *grammar.Context, st state) state {
	m.sc.Restore(st.sc)
	if c.Open {
		m.sc.PushContext()
	} else {
		m.sc.PopContext()
	}
	st.sc = m.sc.Save()
	return st
}

func (m *matcher) wsTerminal(w *grammar.WSTerminal, st state) (state, bool) {
	m.tick()
	m.sc.Restore(st.sc)
	if m.sc.Skipped() {
		m.check()
		m.expect(st.sc, w.String())
		return st, false
	}
	v, ok := m.sc.AcceptTerminal(w.Name.String())
	m.check()
	if !ok {
		m.expect(st.sc, w.String())
		return st, false
	}
	m.traceElem(w, st)
	st.sc = m.sc.Save()
	return st.emit(v), true
}

// terminal matches a reference to a scanner terminal and applies its
// binding.
func (m *matcher) terminal(ref *grammar.Ref, st state) (state, bool) {
	m.tick()
	m.sc.Restore(st.sc)
	name := ref.Name.String()
	v, ok := m.sc.AcceptTerminal(name)
	m.check()
	if !ok {
		m.expect(st.sc, name)
		return st, false
	}
	m.traceElem(ref, st)
	at := st.sc
	st.sc = m.sc.Save()
	return m.bind(ref, at, st, v)
}

// bind applies ref's binding to v; a refused binding is a failure at the
// position the reference started at.
func (m *matcher) bind(ref *grammar.Ref, at scanner.State, st state, v tree.Tree) (state, bool) {
	next, ok := st.bind(ref, v)
	if !ok {
		m.expect(at, ref.String())
		return st, false
	}
	return next, true
}

// atEnd reports whether st is at the end of input.
func (m *matcher) atEnd(st state) bool {
	m.sc.Restore(st.sc)
	if m.sc.AtEnd() {
		return true
	}
	m.check()
	m.expect(st.sc, endOfInput)
	return false
}

// lookahead reports whether the token at st starts with a member of set.
func (m *matcher) lookahead(st scanner.State, set grammar.Set) bool {
	for t := range set {
		m.sc.Restore(st)
		var ok bool
		if t.Literal {
			ok = m.sc.AcceptLiteral(t.Text, t.Local)
		} else {
			_, ok = m.sc.AcceptTerminal(t.Text)
		}
		m.check()
		if ok {
			return true
		}
	}
	return false
}

// predict returns the branch one token of lookahead selects. A nil entry of
// preds is a branch that consumes nothing; otherwise an entry is the
// *grammar.Rule or grammar.Element the branch starts with. Without a
// matching branch the first nullable one is taken, and -1 means none fits.
func (m *matcher) predict(at scanner.State, preds []any) int {
	m.tick()
	fallback := -1
	for i, p := range preds {
		if p == nil || m.an.Nullable(p) {
			if fallback < 0 {
				fallback = i
			}
			if p == nil {
				continue
			}
		}
		if m.lookahead(at, m.an.First(p)) {
			return i
		}
	}

	var expected []string
	for _, p := range preds {
		if p == nil {
			continue
		}
		for _, t := range m.an.First(p).Sorted() {
			expected = append(expected, t.String())
		}
	}
	m.expect(at, expected...)
	return fallback
}

func (m *matcher) traceRule(r *grammar.Rule, st state) {
	if !m.debug.NonTerminals {
		return
	}
	m.sc.Restore(st.sc)
	name := "?"
	if r.Owner != nil {
		name = r.Owner.Name.String()
	}
	m.log.Debugf("%s: try %s at %s", name, r, m.sc.Token().Pos)
}

func (m *matcher) traceElem(e grammar.Element, st state) {
	if !m.debug.Parse {
		return
	}
	m.log.Debugf("matched %s at offset %d", e, st.sc.Offset())
}

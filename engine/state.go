package engine

import (
	"slices"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// state is everything a parse has built so far. All parts are persistent:
// extending a state never changes another state sharing its tail, so a
// choice point is just a saved state value.
type state struct {
	sc     scanner.State
	frames *frame
	env    *binding
}

// frame collects the values of one rule application, or of one repetition
// when rule is nil.
type frame struct {
	rule *grammar.Rule
	kids *cons
	n    int
	env  *binding
	next *frame
}

type cons struct {
	v    tree.Tree
	next *cons
}

// slice returns the first n values of c, oldest first.
func (c *cons) slice(n int) []tree.Tree {
	out := make([]tree.Tree, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = c.v
		c = c.next
	}
	return out
}

// binding is one field of the innermost rule application. Appending to a
// field pushes a new binding that shadows the old one and keeps its place.
type binding struct {
	field ident.Ident
	vals  *cons
	count int
	at    int
	ord   int
	seq   int
	next  *binding
}

func (s state) emit(v tree.Tree) state {
	f := *s.frames
	f.kids = &cons{v: v, next: f.kids}
	f.n++
	s.frames = &f
	return s
}

func (s state) enterRule(r *grammar.Rule) state {
	s.frames = &frame{rule: r, env: s.env, next: s.frames}
	return s
}

// leaveRule closes the innermost rule application and returns its value.
// Fields become Tree(field, values...) children at the position they were
// first bound at.
func (s state) leaveRule() (state, tree.Tree) {
	f := s.frames
	kids := f.kids.slice(f.n)

	var fields []*binding
	for b := s.env; b != f.env; b = b.next {
		if !slices.ContainsFunc(fields, func(o *binding) bool { return o.field == b.field }) {
			fields = append(fields, b)
		}
	}
	if len(fields) > 0 {
		slices.SortFunc(fields, func(a, b *binding) int {
			if a.at != b.at {
				return a.at - b.at
			}
			return a.ord - b.ord
		})
		out := make([]tree.Tree, 0, len(kids)+len(fields))
		j := 0
		for i := 0; i <= len(kids); i++ {
			for ; j < len(fields) && fields[j].at == i; j++ {
				out = append(out, tree.NewTree(fields[j].field, fields[j].vals.slice(fields[j].count)...))
			}
			if i < len(kids) {
				out = append(out, kids[i])
			}
		}
		kids = out
	}

	var v tree.Tree
	switch {
	case !f.rule.Transparent():
		v = tree.NewTree(f.rule.Type, kids...)
	case len(kids) == 1:
		v = kids[0]
	case len(kids) > 1:
		v = tree.NewList(kids...)
	}
	return state{sc: s.sc, frames: f.next, env: f.env}, v
}

func (s state) enterCollect() state {
	s.frames = &frame{next: s.frames}
	return s
}

func (s state) leaveCollect() (state, []tree.Tree) {
	f := s.frames
	s.frames = f.next
	return s, f.kids.slice(f.n)
}

// result returns the value the root reference emitted.
func (s state) result() tree.Tree {
	return s.frames.kids.v
}

// ruleFrame returns the innermost rule application.
func (s state) ruleFrame() *frame {
	for f := s.frames; f != nil; f = f.next {
		if f.rule != nil {
			return f
		}
	}
	return nil
}

func (s state) lookup(field ident.Ident) *binding {
	var stop *binding
	if rf := s.ruleFrame(); rf != nil {
		stop = rf.env
	}
	for b := s.env; b != stop; b = b.next {
		if b.field == field {
			return b
		}
	}
	return nil
}

func (s state) define(field ident.Ident, v tree.Tree) state {
	nb := &binding{field: field, next: s.env}
	if s.env != nil {
		nb.seq = s.env.seq + 1
	}
	if old := s.lookup(field); old != nil {
		nb.vals = &cons{v: v, next: old.vals}
		nb.count = old.count + 1
		nb.at, nb.ord = old.at, old.ord
	} else {
		nb.vals = &cons{v: v}
		nb.count = 1
		if rf := s.ruleFrame(); rf != nil {
			nb.at = rf.n
		}
		nb.ord = nb.seq
	}
	s.env = nb
	return s
}

// bind applies ref's binding to the value it matched. It fails when a
// field is defined twice or a used value was never bound.
func (s state) bind(ref *grammar.Ref, v tree.Tree) (state, bool) {
	switch ref.Binding {
	case grammar.AsField:
		return s.emit(tree.NewTree(ref.Field, v)), true
	case grammar.Use:
		b := s.lookup(ref.Field)
		if b == nil {
			return s, false
		}
		for c := b.vals; c != nil; c = c.next {
			if tree.Equal(c.v, v) {
				return s, true
			}
		}
		return s, false
	case grammar.DefineSingle:
		if s.lookup(ref.Field) != nil {
			return s, false
		}
		return s.define(ref.Field, v), true
	case grammar.DefineAppend:
		return s.define(ref.Field, v), true
	}
	if !grammar.Yields(ref) {
		return s, true
	}
	return s.emit(v), true
}

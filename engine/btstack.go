package engine

import (
	"context"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// BTStack is the backtracking engine that explores choices by continuation
// passing. Every element match is handed the rest of the parse, so a later
// failure returns into the most recent choice and tries its next branch.
type BTStack struct {
	core
}

func NewBTStack(sc scanner.Scanner, opts ...Option) *BTStack {
	return &BTStack{core: newCore(sc, false, opts)}
}

func (e *BTStack) Parse(ctx context.Context, src []byte, root string) (result tree.Tree, err error) {
	m, ref, err := e.begin(ctx, src, root)
	if err != nil {
		return tree.Tree{}, err
	}
	defer recoverAbort(&err)

	ok := e.elem(m, ref, m.start(), func(st state) bool {
		if !m.atEnd(st) {
			return false
		}
		result = st.result()
		return true
	})
	if !ok {
		return tree.Tree{}, m.failure()
	}
	return result, nil
}

func (e *BTStack) elem(m *matcher, el grammar.Element, st state, k func(state) bool) bool {
	switch el := el.(type) {
	case *grammar.Literal:
		st, ok := m.literal(el, st)
		return ok && k(st)

	case *grammar.Context:
		return k(m.context(el, st))

	case *grammar.WSTerminal:
		st, ok := m.wsTerminal(el, st)
		return ok && k(st)

	case *grammar.Ref:
		if el.IsTerminal() {
			st, ok := m.terminal(el, st)
			return ok && k(st)
		}
		at := st.sc
		return e.call(m, el.Def.Rules, st, func(st state, v tree.Tree) bool {
			st, ok := m.bind(el, at, st, v)
			return ok && k(st)
		})

	case *grammar.Group:
		return e.call(m, el.Rules, st, func(st state, v tree.Tree) bool {
			return k(st.emit(v))
		})

	case *grammar.Opt:
		take := func() bool {
			return e.elem(m, el.Body, st, func(st state) bool {
				if !grammar.Yields(el.Body) {
					st = st.emit(tree.Tree{})
				}
				return k(st)
			})
		}
		skip := func() bool {
			return k(st.emit(tree.Tree{}))
		}
		if el.Avoid || el.NonGreedy {
			return skip() || take()
		}
		return take() || skip()

	case *grammar.Seq, *grammar.List, *grammar.Chain:
		return e.repeat(m, el, st.enterCollect(), 0, true, k)
	}
	return false
}

// call tries rules in order. k receives the value of the rule that matched.
func (e *BTStack) call(m *matcher, rules []*grammar.Rule, st state, k func(state, tree.Tree) bool) bool {
	for _, r := range rules {
		m.tick()
		m.traceRule(r, st)
		ok := e.seq(m, r.Elements, st.enterRule(r), func(st state) bool {
			st, v := st.leaveRule()
			return k(st, v)
		})
		if ok {
			return true
		}
	}
	return false
}

func (e *BTStack) seq(m *matcher, elems []grammar.Element, st state, k func(state) bool) bool {
	if len(elems) == 0 {
		return k(st)
	}
	return e.elem(m, elems[0], st, func(st state) bool {
		return e.seq(m, elems[1:], st, k)
	})
}

// repeat continues a repetition after n items. moved reports whether the
// last item consumed input. An item that consumes nothing is only accepted
// while the repetition is short of its minimum, and it ends the repetition.
func (e *BTStack) repeat(m *matcher, el grammar.Element, st state, n int, moved bool, k func(state) bool) bool {
	body, sep, min, avoid := grammar.Body(el)

	more := func() bool {
		if n > 0 && !moved {
			return false
		}
		off := st.sc.Offset()
		s := st
		if n > 0 && sep != nil {
			var ok bool
			if s, ok = m.literal(sep, s); !ok {
				return false
			}
		}
		return e.elem(m, body, s, func(s state) bool {
			moved := s.sc.Offset() != off
			if !moved && n+1 > min {
				return false
			}
			return e.repeat(m, el, s, n+1, moved, k)
		})
	}
	stop := func() bool {
		if n < min {
			return false
		}
		s, items := st.leaveCollect()
		if grammar.Yields(body) {
			s = s.emit(tree.NewList(items...))
		}
		return k(s)
	}

	if avoid {
		return stop() || more()
	}
	return more() || stop()
}

package engine

import (
	"context"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// LL1Stack parses by recursive descent, choosing every alternative by one
// token of lookahead. It never backtracks; avoid and nongreedy have no
// effect.
type LL1Stack struct {
	core
}

func NewLL1Stack(sc scanner.Scanner, opts ...Option) *LL1Stack {
	return &LL1Stack{core: newCore(sc, true, opts)}
}

func (e *LL1Stack) Parse(ctx context.Context, src []byte, root string) (result tree.Tree, err error) {
	m, ref, err := e.begin(ctx, src, root)
	if err != nil {
		return tree.Tree{}, err
	}
	defer recoverAbort(&err)

	st, ok := e.elem(m, ref, m.start())
	if !ok || !m.atEnd(st) {
		return tree.Tree{}, m.failure()
	}
	return st.result(), nil
}

func (e *LL1Stack) elem(m *matcher, el grammar.Element, st state) (state, bool) {
	switch el := el.(type) {
	case *grammar.Literal:
		return m.literal(el, st)

	case *grammar.Context:
		return m.context(el, st), true

	case *grammar.WSTerminal:
		return m.wsTerminal(el, st)

	case *grammar.Ref:
		if el.IsTerminal() {
			return m.terminal(el, st)
		}
		at := st.sc
		st, v, ok := e.call(m, el.Def.Rules, st)
		if !ok {
			return st, false
		}
		return m.bind(el, at, st, v)

	case *grammar.Group:
		st, v, ok := e.call(m, el.Rules, st)
		if !ok {
			return st, false
		}
		return st.emit(v), true

	case *grammar.Opt:
		if m.predict(st.sc, []any{el.Body, nil}) != 0 {
			return st.emit(tree.Tree{}), true
		}
		st, ok := e.elem(m, el.Body, st)
		if !ok {
			return st, false
		}
		if !grammar.Yields(el.Body) {
			st = st.emit(tree.Tree{})
		}
		return st, true

	case *grammar.Seq, *grammar.List, *grammar.Chain:
		return e.repeat(m, el, st)
	}
	return st, false
}

func (e *LL1Stack) call(m *matcher, rules []*grammar.Rule, st state) (state, tree.Tree, bool) {
	preds := make([]any, len(rules))
	for i, r := range rules {
		preds[i] = r
	}
	i := m.predict(st.sc, preds)
	if i < 0 {
		return st, tree.Tree{}, false
	}

	r := rules[i]
	m.traceRule(r, st)
	st = st.enterRule(r)
	for _, el := range r.Elements {
		var ok bool
		if st, ok = e.elem(m, el, st); !ok {
			return st, tree.Tree{}, false
		}
	}
	st, v := st.leaveRule()
	return st, v, true
}

func (e *LL1Stack) repeat(m *matcher, el grammar.Element, st state) (state, bool) {
	body, sep, min, _ := grammar.Body(el)
	st = st.enterCollect()

	moved := true
	for n := 0; ; n++ {
		var pred any = body
		if n > 0 && sep != nil {
			pred = sep
		}

		more := n == 0 || moved
		if more && n >= min {
			more = m.predict(st.sc, []any{pred, nil}) == 0
		} else if more && m.predict(st.sc, []any{pred}) < 0 {
			return st, false
		}

		if !more {
			st, items := st.leaveCollect()
			if grammar.Yields(body) {
				st = st.emit(tree.NewList(items...))
			}
			return st, true
		}

		off := st.sc.Offset()
		var ok bool
		if n > 0 && sep != nil {
			if st, ok = m.literal(sep, st); !ok {
				return st, false
			}
		}
		if st, ok = e.elem(m, body, st); !ok {
			return st, false
		}
		moved = st.sc.Offset() != off
		if !moved && n+1 > min {
			return st, false
		}
	}
}

// LL1Heap is the LL(1) engine on the explicit goal stack of the heap
// engines.
type LL1Heap struct {
	core
}

func NewLL1Heap(sc scanner.Scanner, opts ...Option) *LL1Heap {
	return &LL1Heap{core: newCore(sc, true, opts)}
}

func (e *LL1Heap) Parse(ctx context.Context, src []byte, root string) (result tree.Tree, err error) {
	m, ref, err := e.begin(ctx, src, root)
	if err != nil {
		return tree.Tree{}, err
	}
	defer recoverAbort(&err)

	mc := machine{m}
	c := mc.start(ref)
	for !c.done {
		branches, ok := mc.step(&c)
		if !ok {
			return tree.Tree{}, m.failure()
		}
		if branches == nil {
			continue
		}
		preds := make([]any, len(branches))
		for i, b := range branches {
			preds[i] = b.pred
		}
		i := m.predict(c.st.sc, preds)
		if i < 0 {
			return tree.Tree{}, m.failure()
		}
		c = branches[i].cfg
	}
	return c.st.result(), nil
}

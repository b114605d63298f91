package engine

import (
	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// The heap engines run the grammar on an explicit stack of goals. A step
// pops one goal and either finishes it, fails, or returns the branches of a
// choice. How a choice is resolved is left to the driver: the backtracking
// driver keeps the other branches as choice points, the LL(1) driver picks
// one by lookahead and the parallel driver keeps them all running.

type opcode int

const (
	// opElem matches an element.
	opElem opcode = iota
	// opEndRule closes a rule application and leaves its value in val.
	opEndRule
	// opBind applies a reference's binding to val.
	opBind
	// opEmit adds val to the current frame.
	opEmit
	// opEndOpt finishes an optional element that matched.
	opEndOpt
	// opRepeat decides whether a repetition goes on.
	opRepeat
	// opEndIter finishes one item of a repetition.
	opEndIter
	// opEnd requires the end of input.
	opEnd
)

type goal struct {
	op    opcode
	elem  grammar.Element
	n     int
	off   int
	moved bool
	at    scanner.State
	next  *goal
}

// config is one point of a parse on the heap: the goals left and the state
// built so far. Copying a config copies only pointers to persistent data.
type config struct {
	goals *goal
	st    state
	val   tree.Tree
	done  bool
}

func (c *config) push(g goal) {
	g.next = c.goals
	c.goals = &g
}

// branch is one way to continue a choice. pred is what the branch starts
// with, for lookahead: a *grammar.Rule, a grammar.Element, or nil when the
// branch consumes nothing.
type branch struct {
	cfg  config
	pred any
}

type machine struct {
	*matcher
}

func (m *machine) start(ref *grammar.Ref) config {
	c := config{st: m.matcher.start()}
	c.push(goal{op: opEnd})
	c.push(goal{op: opElem, elem: ref})
	return c
}

// step runs the goal on top of c. It returns the branches when the goal is
// a choice, and ok false when c failed.
func (m *machine) step(c *config) (branches []branch, ok bool) {
	m.tick()
	g := c.goals
	c.goals = g.next

	switch g.op {
	case opElem:
		return m.elem(c, g.elem)

	case opEndRule:
		c.st, c.val = c.st.leaveRule()

	case opBind:
		st, ok := m.bind(g.elem.(*grammar.Ref), g.at, c.st, c.val)
		if !ok {
			return nil, false
		}
		c.st = st

	case opEmit:
		c.st = c.st.emit(c.val)

	case opEndOpt:
		if !grammar.Yields(g.elem) {
			c.st = c.st.emit(tree.Tree{})
		}

	case opRepeat:
		branches = m.repeat(c, g)
		return branches, len(branches) > 0

	case opEndIter:
		moved := c.st.sc.Offset() != g.off
		if _, _, min, _ := grammar.Body(g.elem); !moved && g.n+1 > min {
			return nil, false
		}
		c.push(goal{op: opRepeat, elem: g.elem, n: g.n + 1, moved: moved})

	case opEnd:
		if !m.atEnd(c.st) {
			return nil, false
		}
		c.done = true
	}
	return nil, true
}

func (m *machine) elem(c *config, el grammar.Element) ([]branch, bool) {
	var ok bool
	switch el := el.(type) {
	case *grammar.Literal:
		c.st, ok = m.literal(el, c.st)
		return nil, ok

	case *grammar.Context:
		c.st = m.context(el, c.st)

	case *grammar.WSTerminal:
		c.st, ok = m.wsTerminal(el, c.st)
		return nil, ok

	case *grammar.Ref:
		if el.IsTerminal() {
			c.st, ok = m.terminal(el, c.st)
			return nil, ok
		}
		c.push(goal{op: opBind, elem: el, at: c.st.sc})
		branches := m.rules(c, el.Def.Rules)
		return branches, len(branches) > 0

	case *grammar.Group:
		c.push(goal{op: opEmit})
		branches := m.rules(c, el.Rules)
		return branches, len(branches) > 0

	case *grammar.Opt:
		take := *c
		take.push(goal{op: opEndOpt, elem: el.Body})
		take.push(goal{op: opElem, elem: el.Body})
		skip := *c
		skip.st = skip.st.emit(tree.Tree{})
		if el.Avoid || el.NonGreedy {
			return []branch{{cfg: skip}, {cfg: take, pred: el.Body}}, true
		}
		return []branch{{cfg: take, pred: el.Body}, {cfg: skip}}, true

	case *grammar.Seq, *grammar.List, *grammar.Chain:
		c.st = c.st.enterCollect()
		c.push(goal{op: opRepeat, elem: el})
	}
	return nil, true
}

// rules returns one branch per rule, entering the rule and queueing its
// elements.
func (m *machine) rules(c *config, rules []*grammar.Rule) []branch {
	out := make([]branch, 0, len(rules))
	for _, r := range rules {
		m.traceRule(r, c.st)
		b := *c
		b.st = b.st.enterRule(r)
		b.push(goal{op: opEndRule})
		for i := len(r.Elements) - 1; i >= 0; i-- {
			b.push(goal{op: opElem, elem: r.Elements[i]})
		}
		out = append(out, branch{cfg: b, pred: r})
	}
	return out
}

// repeat returns the branches of a repetition after g.n items: one more
// item, or stop.
func (m *machine) repeat(c *config, g *goal) []branch {
	body, sep, min, avoid := grammar.Body(g.elem)
	var out []branch

	if g.n == 0 || g.moved {
		more := *c
		more.push(goal{op: opEndIter, elem: g.elem, n: g.n, off: c.st.sc.Offset()})
		more.push(goal{op: opElem, elem: body})
		var pred any = body
		if g.n > 0 && sep != nil {
			more.push(goal{op: opElem, elem: sep})
			pred = sep
		}
		out = append(out, branch{cfg: more, pred: pred})
	}

	if g.n >= min {
		stop := *c
		st, items := stop.st.leaveCollect()
		if grammar.Yields(body) {
			st = st.emit(tree.NewList(items...))
		}
		stop.st = st
		if avoid {
			out = append([]branch{{cfg: stop}}, out...)
		} else {
			out = append(out, branch{cfg: stop})
		}
	}
	return out
}

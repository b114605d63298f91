package grammar

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dhamidi/iparse/ident"
)

// Terminal is one lookahead symbol: a literal text or a scanner terminal
// name.
type Terminal struct {
	Text    string
	Literal bool
	Local   bool
}

func (t Terminal) String() string {
	if t.Literal {
		return Quote(t.Text)
	}
	return t.Text
}

// Set is a set of lookahead symbols.
type Set map[Terminal]struct{}

func (s Set) add(t Terminal) bool {
	if _, ok := s[t]; ok {
		return false
	}
	s[t] = struct{}{}
	return true
}

func (s Set) addAll(o Set) bool {
	changed := false
	for t := range o {
		if s.add(t) {
			changed = true
		}
	}
	return changed
}

// Sorted returns the members of s, literals first, each group ordered by
// text.
func (s Set) Sorted() []Terminal {
	out := make([]Terminal, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Terminal) int {
		if a.Literal != b.Literal {
			if a.Literal {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.Text, b.Text); c != 0 {
			return c
		}
		if a.Local == b.Local {
			return 0
		}
		if a.Local {
			return 1
		}
		return -1
	})
	return out
}

// Analysis holds nullability and FIRST/FOLLOW sets for every rule and
// element of a grammar. It is immutable once built.
type Analysis struct {
	g         *Grammar
	ntNull    map[*NonTerminal]bool
	ntFirst   map[*NonTerminal]Set
	ntFollow  map[*NonTerminal]Set
	null      map[any]bool
	first     map[any]Set
	follow    map[Element]Set
	conflicts []Conflict
}

// Analyze computes lookahead information for g.
func Analyze(g *Grammar) *Analysis {
	a := &Analysis{
		g:        g,
		ntNull:   make(map[*NonTerminal]bool),
		ntFirst:  make(map[*NonTerminal]Set),
		ntFollow: make(map[*NonTerminal]Set),
		null:     make(map[any]bool),
		first:    make(map[any]Set),
		follow:   make(map[Element]Set),
	}
	for _, nt := range g.order {
		a.ntFirst[nt] = Set{}
		a.ntFollow[nt] = Set{}
	}

	for changed := true; changed; {
		changed = false
		for _, nt := range g.order {
			null := false
			for _, r := range nt.Rules {
				if a.seqNullable(r.Elements) {
					null = true
				}
				if a.ntFirst[nt].addAll(a.seqFirst(r.Elements)) {
					changed = true
				}
			}
			if null && !a.ntNull[nt] {
				a.ntNull[nt] = true
				changed = true
			}
		}
	}

	for _, nt := range g.order {
		for _, r := range nt.Rules {
			a.memoRule(r)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, nt := range g.order {
			for _, r := range nt.Rules {
				if a.walkSeq(r.Elements, a.ntFollow[nt]) {
					changed = true
				}
			}
		}
	}

	a.conflicts = a.findConflicts()
	return a
}

// Nullable reports whether x, an Element or *Rule, can match without
// consuming input.
func (a *Analysis) Nullable(x any) bool {
	return a.null[x]
}

// First returns the lookahead symbols that can start x, an Element or *Rule.
func (a *Analysis) First(x any) Set {
	return a.first[x]
}

// Follow returns the symbols that can follow element e.
func (a *Analysis) Follow(e Element) Set {
	return a.follow[e]
}

// FollowNonTerminal returns the symbols that can follow nt.
func (a *Analysis) FollowNonTerminal(nt *NonTerminal) Set {
	return a.ntFollow[nt]
}

func (a *Analysis) nullable(e Element) bool {
	switch e := e.(type) {
	case *Literal, *WSTerminal:
		return false
	case *Ref:
		if e.IsTerminal() {
			return false
		}
		return a.ntNull[e.Def]
	case *Context, *Opt, *List:
		return true
	case *Seq:
		return a.nullable(e.Body)
	case *Chain:
		return a.nullable(e.Body)
	case *Group:
		for _, r := range e.Rules {
			if a.seqNullable(r.Elements) {
				return true
			}
		}
	}
	return false
}

func (a *Analysis) seqNullable(elems []Element) bool {
	for _, e := range elems {
		if !a.nullable(e) {
			return false
		}
	}
	return true
}

func (a *Analysis) firstOf(e Element) Set {
	s := Set{}
	switch e := e.(type) {
	case *Literal:
		s.add(Terminal{Text: e.Text, Literal: true, Local: e.Local})
	case *WSTerminal:
		s.add(Terminal{Text: e.Name.String()})
	case *Ref:
		if e.IsTerminal() {
			s.add(Terminal{Text: e.Name.String()})
		} else {
			s.addAll(a.ntFirst[e.Def])
		}
	case *Opt:
		s.addAll(a.firstOf(e.Body))
	case *Seq:
		s.addAll(a.firstOf(e.Body))
	case *List:
		s.addAll(a.firstOf(e.Body))
	case *Chain:
		s.addAll(a.firstOf(e.Body))
	case *Group:
		for _, r := range e.Rules {
			s.addAll(a.seqFirst(r.Elements))
		}
	}
	return s
}

func (a *Analysis) seqFirst(elems []Element) Set {
	s := Set{}
	for _, e := range elems {
		s.addAll(a.firstOf(e))
		if !a.nullable(e) {
			break
		}
	}
	return s
}

func (a *Analysis) memoRule(r *Rule) {
	a.null[r] = a.seqNullable(r.Elements)
	a.first[r] = a.seqFirst(r.Elements)
	for _, e := range r.Elements {
		a.memoElement(e)
	}
}

func (a *Analysis) memoElement(e Element) {
	a.null[e] = a.nullable(e)
	a.first[e] = a.firstOf(e)
	a.follow[e] = Set{}
	switch e := e.(type) {
	case *Opt:
		a.memoElement(e.Body)
	case *Seq:
		a.memoElement(e.Body)
	case *List:
		a.memoElement(e.Body)
	case *Chain:
		a.memoElement(e.Body)
		a.memoElement(e.Sep)
	case *Group:
		for _, r := range e.Rules {
			a.memoRule(r)
		}
	}
}

// walkSeq propagates tail, the follow set of the whole sequence, into its
// elements. It reports whether any set grew.
func (a *Analysis) walkSeq(elems []Element, tail Set) bool {
	changed := false
	cur := Set{}
	cur.addAll(tail)
	for i := len(elems) - 1; i >= 0; i-- {
		e := elems[i]
		if a.walkElement(e, cur) {
			changed = true
		}
		next := Set{}
		next.addAll(a.first[e])
		if a.null[e] {
			next.addAll(cur)
		}
		cur = next
	}
	return changed
}

func (a *Analysis) walkElement(e Element, follow Set) bool {
	changed := a.follow[e].addAll(follow)
	switch e := e.(type) {
	case *Ref:
		if !e.IsTerminal() && a.ntFollow[e.Def].addAll(follow) {
			changed = true
		}
	case *Opt:
		if a.walkElement(e.Body, follow) {
			changed = true
		}
	case *Seq, *List:
		body, _, _, _ := Body(e)
		inner := Set{}
		inner.addAll(a.first[body])
		inner.addAll(follow)
		if a.walkElement(body, inner) {
			changed = true
		}
	case *Chain:
		inner := Set{}
		inner.add(Terminal{Text: e.Sep.Text, Literal: true})
		inner.addAll(follow)
		if a.walkElement(e.Body, inner) {
			changed = true
		}
		if a.walkElement(e.Sep, a.first[e.Body]) {
			changed = true
		}
	case *Group:
		for _, r := range e.Rules {
			if a.walkSeq(r.Elements, follow) {
				changed = true
			}
		}
	}
	return changed
}

// Overlaps reports whether one token could match both x and y. An
// identifier-shaped literal only collides with the ident terminal when it is
// local, since other keywords are reserved.
func Overlaps(x, y Terminal) bool {
	if x.Literal == y.Literal {
		return x.Text == y.Text
	}
	lit, term := x, y
	if !lit.Literal {
		lit, term = y, x
	}
	switch term.Text {
	case TermIdent:
		return lit.Local && isIdentShaped(lit.Text)
	case TermInt:
		return isDigits(lit.Text)
	case TermDouble:
		return isNumeric(lit.Text)
	}
	return false
}

func overlap(a, b Set) []Terminal {
	var out Set
	for x := range a {
		for y := range b {
			if Overlaps(x, y) {
				if out == nil {
					out = Set{}
				}
				out.add(x)
			}
		}
	}
	if out == nil {
		return nil
	}
	return out.Sorted()
}

func isIdentShaped(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r >= '0' && r <= '9'
}

// Conflicts returns every LL(1) conflict of the grammar.
func (a *Analysis) Conflicts() []Conflict {
	return a.conflicts
}

// CheckLL1 returns a *NonLL1GrammarError when the grammar needs more than
// one token of lookahead.
func (a *Analysis) CheckLL1() error {
	if len(a.conflicts) == 0 {
		return nil
	}
	return &NonLL1GrammarError{Conflicts: a.conflicts}
}

func (a *Analysis) findConflicts() []Conflict {
	var out []Conflict
	for _, nt := range a.g.order {
		where := nt.Name.String()
		out = append(out, a.choiceConflicts(where, nt.Rules, a.ntFollow[nt])...)
		for _, r := range nt.Rules {
			out = append(out, a.seqConflicts(where, r.Elements)...)
		}
	}
	return out
}

func (a *Analysis) seqConflicts(where string, elems []Element) []Conflict {
	var out []Conflict
	for _, e := range elems {
		out = append(out, a.elementConflicts(where, e)...)
	}
	return out
}

func (a *Analysis) elementConflicts(where string, e Element) []Conflict {
	var out []Conflict
	at := fmt.Sprintf("%s: %s", where, e)
	switch e := e.(type) {
	case *Opt:
		if a.null[e.Body] {
			out = append(out, Conflict{Where: at, Reason: "optional element can match empty input"})
		}
		if ts := overlap(a.first[e.Body], a.follow[e]); ts != nil {
			out = append(out, Conflict{Where: at, Reason: "cannot decide whether to enter optional element", Terminals: ts})
		}
		out = append(out, a.elementConflicts(where, e.Body)...)
	case *Seq, *List:
		body, _, _, _ := Body(e)
		if a.null[body] {
			out = append(out, Conflict{Where: at, Reason: "repeated element can match empty input"})
		}
		if ts := overlap(a.first[body], a.follow[e]); ts != nil {
			out = append(out, Conflict{Where: at, Reason: "cannot decide whether to repeat", Terminals: ts})
		}
		out = append(out, a.elementConflicts(where, body)...)
	case *Chain:
		sep := Set{}
		sep.add(Terminal{Text: e.Sep.Text, Literal: true})
		if ts := overlap(sep, a.follow[e]); ts != nil {
			out = append(out, Conflict{Where: at, Reason: "separator can also follow the chain", Terminals: ts})
		}
		out = append(out, a.elementConflicts(where, e.Body)...)
	case *Group:
		out = append(out, a.choiceConflicts(at, e.Rules, a.follow[e])...)
		for _, r := range e.Rules {
			out = append(out, a.seqConflicts(where, r.Elements)...)
		}
	}
	return out
}

func (a *Analysis) choiceConflicts(where string, rules []*Rule, follow Set) []Conflict {
	var out []Conflict
	var nullable []int
	for i, ri := range rules {
		if a.null[ri] {
			nullable = append(nullable, i)
		}
		for j := i + 1; j < len(rules); j++ {
			if ts := overlap(a.first[ri], a.first[rules[j]]); ts != nil {
				out = append(out, Conflict{
					Where:     where,
					Reason:    fmt.Sprintf("alternatives %d and %d start alike", i+1, j+1),
					Terminals: ts,
				})
			}
		}
	}
	if len(nullable) > 1 {
		out = append(out, Conflict{Where: where, Reason: fmt.Sprintf("%d alternatives can match empty input", len(nullable))})
	}
	for _, i := range nullable {
		for j, rj := range rules {
			if j == i {
				continue
			}
			if ts := overlap(a.first[rj], follow); ts != nil {
				out = append(out, Conflict{
					Where:     where,
					Reason:    fmt.Sprintf("alternative %d starts like what follows empty alternative %d", j+1, i+1),
					Terminals: ts,
				})
			}
		}
	}
	return out
}

// LeftRecursion returns a *LeftRecursionError when some non-terminal can
// reach itself without consuming input.
func (a *Analysis) LeftRecursion() error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[*NonTerminal]int)
	var stack []*NonTerminal
	var found []ident.Ident

	var visit func(nt *NonTerminal) bool
	visit = func(nt *NonTerminal) bool {
		switch state[nt] {
		case active:
			start := slices.Index(stack, nt)
			for _, s := range stack[start:] {
				found = append(found, s.Name)
			}
			found = append(found, nt.Name)
			return true
		case done:
			return false
		}
		state[nt] = active
		stack = append(stack, nt)
		for _, next := range a.leftCalls(nt) {
			if visit(next) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		state[nt] = done
		return false
	}

	for _, nt := range a.g.order {
		if visit(nt) {
			return &LeftRecursionError{Cycle: found}
		}
	}
	return nil
}

// leftCalls lists the non-terminals nt may call before consuming input.
func (a *Analysis) leftCalls(nt *NonTerminal) []*NonTerminal {
	var out []*NonTerminal
	var seq func(elems []Element)
	var elem func(e Element)
	seq = func(elems []Element) {
		for _, e := range elems {
			elem(e)
			if !a.null[e] {
				return
			}
		}
	}
	elem = func(e Element) {
		switch e := e.(type) {
		case *Ref:
			if !e.IsTerminal() && !slices.Contains(out, e.Def) {
				out = append(out, e.Def)
			}
		case *Opt:
			elem(e.Body)
		case *Seq:
			elem(e.Body)
		case *List:
			elem(e.Body)
		case *Chain:
			elem(e.Body)
		case *Group:
			for _, r := range e.Rules {
				seq(r.Elements)
			}
		}
	}
	for _, r := range nt.Rules {
		seq(r.Elements)
	}
	return out
}

// Describe renders a lookahead set for messages: "a" or "b".
func (s Set) Describe() string {
	ts := s.Sorted()
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.String()
	}
	return strings.Join(names, " or ")
}

// Package engine interprets a grammar model against a scanner and builds
// parse trees.
//
// Five engines share one set of element semantics and differ in how they
// explore choices:
//
//	BTStack   backtracking by continuation passing on the Go stack
//	BTHeap    backtracking on an explicit goal stack, resumable step by step
//	LL1Stack  one token of lookahead, recursive descent
//	LL1Heap   one token of lookahead on the explicit goal stack
//	Par       all choices explored in lock-step on the explicit goal stack
//
// For a grammar both kinds accept, every engine builds the same tree.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
	"github.com/tliron/commonlog"
)

type Kind int

const (
	KindBTStack Kind = iota
	KindBTHeap
	KindLL1Stack
	KindLL1Heap
	KindPar
)

var kindNames = map[Kind]string{
	KindBTStack:  "BTStack",
	KindBTHeap:   "BTHeap",
	KindLL1Stack: "LL1Stack",
	KindLL1Heap:  "LL1Heap",
	KindPar:      "Par",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every engine kind.
func Kinds() []Kind {
	return []Kind{KindBTStack, KindBTHeap, KindLL1Stack, KindLL1Heap, KindPar}
}

// ParseKind returns the engine kind named s, ignoring case.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown engine %q", s)
}

// Engine parses input with a loaded grammar.
type Engine interface {
	// Load prepares g for parsing. It rejects left-recursive grammars, and
	// the LL(1) engines reject grammars that need more lookahead.
	Load(g *grammar.Grammar) error
	// Parse parses src starting at the non-terminal root. The whole input
	// must be consumed. A mismatch is reported as a *ParseFailure.
	Parse(ctx context.Context, src []byte, root string) (tree.Tree, error)
}

// New returns an engine of the given kind reading tokens from sc.
func New(kind Kind, sc scanner.Scanner, opts ...Option) (Engine, error) {
	switch kind {
	case KindBTStack:
		return NewBTStack(sc, opts...), nil
	case KindBTHeap:
		return NewBTHeap(sc, opts...), nil
	case KindLL1Stack:
		return NewLL1Stack(sc, opts...), nil
	case KindLL1Heap:
		return NewLL1Heap(sc, opts...), nil
	case KindPar:
		return NewPar(sc, opts...), nil
	}
	return nil, fmt.Errorf("unknown engine kind %d", int(kind))
}

// Debug selects what an engine traces at debug level.
type Debug struct {
	// NonTerminals traces every rule tried.
	NonTerminals bool
	// Parse traces every element matched.
	Parse bool
}

type Option func(*options)

type options struct {
	debug Debug
}

func WithDebug(d Debug) Option {
	return func(o *options) {
		o.debug = d
	}
}

// ErrNoGrammar is returned by Parse before a grammar was loaded.
var ErrNoGrammar = errors.New("no grammar loaded")

// core holds what every engine keeps between parses.
type core struct {
	sc    scanner.Scanner
	debug Debug
	log   commonlog.Logger
	ll1   bool

	g  *grammar.Grammar
	an *grammar.Analysis
}

func newCore(sc scanner.Scanner, ll1 bool, opts []Option) core {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return core{
		sc:    sc,
		debug: o.debug,
		log:   commonlog.GetLogger("iparse.engine"),
		ll1:   ll1,
	}
}

func (c *core) Load(g *grammar.Grammar) error {
	an := grammar.Analyze(g)
	if err := an.LeftRecursion(); err != nil {
		return fmt.Errorf("load grammar: %w", err)
	}
	if c.ll1 {
		if err := an.CheckLL1(); err != nil {
			return fmt.Errorf("load grammar: %w", err)
		}
	}
	c.g, c.an = g, an
	return nil
}

// begin prepares the scanner for src and returns a matcher for one parse
// together with the reference that starts it.
func (c *core) begin(ctx context.Context, src []byte, root string) (*matcher, *grammar.Ref, error) {
	if c.g == nil {
		return nil, nil, ErrNoGrammar
	}
	nt := c.g.Lookup(root)
	if nt == nil {
		return nil, nil, fmt.Errorf("unknown root non-terminal %q", root)
	}

	lits := c.g.Literals()
	sl := make([]scanner.Literal, len(lits))
	for i, l := range lits {
		sl[i] = scanner.Literal{Text: l.Text, Local: l.Local}
	}
	c.sc.Init(src, sl)

	m := &matcher{
		ctx:    ctx,
		sc:     c.sc,
		an:     c.an,
		log:    c.log,
		debug:  c.debug,
		farOff: -1,
	}
	return m, &grammar.Ref{Name: nt.Name, Def: nt}, nil
}

// Package ebnf turns grammars written in the EBNF dialect of
// golang.org/x/exp/ebnf into grammar trees.
//
// Productions whose names start with a lower-case letter become non-terminals.
// Upper-case productions are lexical: they are left to an EBNF scanner and
// referenced as terminals. Alternatives become rules, groups become inline
// rule lists, [ ] becomes OPT and { } becomes LIST. Every top-level rule of
// a production is typed with the production's name.
package ebnf

import (
	"fmt"
	"os"
	"slices"
	"text/scanner"
	"unicode"
	"unicode/utf8"

	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/tree"
	xebnf "golang.org/x/exp/ebnf"
)

var (
	idNtDef   = ident.New("nt_def")
	idRule    = ident.New("rule")
	idLiteral = ident.New("literal")
	idOpt     = ident.New("opt")
	idList    = ident.New("list")
)

// Error reports an expression that has no grammar tree equivalent.
type Error struct {
	Pos scanner.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ParseFile reads an EBNF grammar from a file.
func ParseFile(filename string) (xebnf.Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()

	g, err := xebnf.Parse(filename, f)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}
	return g, nil
}

// IsLexical reports whether the production called name is lexical.
func IsLexical(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// Convert returns the grammar tree of the syntactic productions of g, in
// name order.
func Convert(g xebnf.Grammar) (tree.Tree, error) {
	var names []string
	for name := range g {
		if !IsLexical(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return tree.Tree{}, fmt.Errorf("convert: grammar has no syntactic productions")
	}
	slices.Sort(names)

	defs := make([]tree.Tree, 0, len(names))
	for _, name := range names {
		id := ident.New(name)
		rules, err := convertRules(g[name].Expr, tree.NewIdent(id))
		if err != nil {
			return tree.Tree{}, fmt.Errorf("convert %s: %w", name, err)
		}
		defs = append(defs, tree.NewTree(idNtDef, tree.NewIdent(id), rules))
	}
	return tree.NewList(defs...), nil
}

func convertRules(x xebnf.Expression, typ tree.Tree) (tree.Tree, error) {
	alts, ok := x.(xebnf.Alternative)
	if !ok {
		alts = xebnf.Alternative{x}
	}
	rules := make([]tree.Tree, 0, len(alts))
	for _, alt := range alts {
		r, err := convertRule(alt, typ)
		if err != nil {
			return tree.Tree{}, err
		}
		rules = append(rules, r)
	}
	return tree.NewList(rules...), nil
}

func convertRule(x xebnf.Expression, typ tree.Tree) (tree.Tree, error) {
	if x == nil {
		return tree.NewTree(idRule, tree.Tree{}, typ), nil
	}
	seq, ok := x.(xebnf.Sequence)
	if !ok {
		seq = xebnf.Sequence{x}
	}
	elems := make([]tree.Tree, 0, len(seq))
	for _, item := range seq {
		e, err := convertElement(item)
		if err != nil {
			return tree.Tree{}, err
		}
		elems = append(elems, e)
	}
	return tree.NewTree(idRule, tree.NewList(elems...), typ), nil
}

func convertElement(x xebnf.Expression) (tree.Tree, error) {
	switch x := x.(type) {
	case *xebnf.Name:
		return tree.NewIdent(ident.New(x.String)), nil

	case *xebnf.Token:
		if x.String == "" {
			return tree.Tree{}, &Error{Pos: x.Pos(), Msg: "empty token"}
		}
		return tree.NewTree(idLiteral, tree.NewString(x.String), tree.Tree{}), nil

	case xebnf.Sequence, xebnf.Alternative:
		return convertRules(x, tree.Tree{})

	case *xebnf.Group:
		return convertRules(x.Body, tree.Tree{})

	case *xebnf.Option:
		body, err := convertOperand(x.Body, x.Pos())
		if err != nil {
			return tree.Tree{}, err
		}
		return tree.NewTree(idOpt, body, tree.Tree{}), nil

	case *xebnf.Repetition:
		body, err := convertOperand(x.Body, x.Pos())
		if err != nil {
			return tree.Tree{}, err
		}
		return tree.NewTree(idList, body, tree.Tree{}), nil

	case *xebnf.Range:
		return tree.Tree{}, &Error{Pos: x.Pos(), Msg: "character range outside a lexical production"}

	case *xebnf.Bad:
		return tree.Tree{}, &Error{Pos: x.Pos(), Msg: x.Error}
	}
	return tree.Tree{}, fmt.Errorf("unsupported expression %T", x)
}

func convertOperand(x xebnf.Expression, pos scanner.Position) (tree.Tree, error) {
	if x == nil {
		return tree.Tree{}, &Error{Pos: pos, Msg: "missing operand"}
	}
	return convertElement(x)
}

package grammar

import (
	"fmt"
	"strings"

	"github.com/dhamidi/iparse/ident"
)

// CheckTypes looks at every typed rule reachable from root. When two
// different rules produce trees of the same type, it reports an
// *AmbiguousTypeError if their shapes differ and an *AmbiguousTypeWarning if
// they agree. Rules referring to different non-terminals in the same places
// have the same shape.
func (g *Grammar) CheckTypes(root string) []error {
	nt := g.Lookup(root)
	if nt == nil {
		return []error{fmt.Errorf("check types: unknown non-terminal %q", root)}
	}

	var types []ident.Ident
	producers := make(map[ident.Ident][]*Rule)
	visited := make(map[*NonTerminal]bool)

	var visitRule func(r *Rule)
	var visitElement func(e Element)
	visitNT := func(nt *NonTerminal) {
		if visited[nt] {
			return
		}
		visited[nt] = true
		for _, r := range nt.Rules {
			visitRule(r)
		}
	}
	visitRule = func(r *Rule) {
		if !r.Transparent() {
			if _, ok := producers[r.Type]; !ok {
				types = append(types, r.Type)
			}
			producers[r.Type] = append(producers[r.Type], r)
		}
		for _, e := range r.Elements {
			visitElement(e)
		}
	}
	visitElement = func(e Element) {
		switch e := e.(type) {
		case *Ref:
			if !e.IsTerminal() {
				visitNT(e.Def)
			}
		case *Opt:
			visitElement(e.Body)
		case *Seq:
			visitElement(e.Body)
		case *List:
			visitElement(e.Body)
		case *Chain:
			visitElement(e.Body)
		case *Group:
			for _, r := range e.Rules {
				visitRule(r)
			}
		}
	}
	visitNT(nt)

	var issues []error
	for _, typ := range types {
		rules := producers[typ]
		first := rules[0]
		shape := Shape(first)
		for _, r := range rules[1:] {
			if Shape(r) != shape {
				issues = append(issues, &AmbiguousTypeError{Type: typ, First: first, Second: r})
			} else {
				issues = append(issues, &AmbiguousTypeWarning{Type: typ, First: first, Second: r})
			}
		}
	}
	return issues
}

// Shape renders the structure of r with non-terminal names erased.
func Shape(r *Rule) string {
	parts := make([]string, 0, len(r.Elements))
	for _, e := range r.Elements {
		parts = append(parts, shapeOf(e))
	}
	return strings.Join(parts, " ")
}

func shapeOf(e Element) string {
	switch e := e.(type) {
	case *Ref:
		if e.IsTerminal() || e.Binding != Plain {
			return e.String()
		}
		return "_"
	case *Opt:
		return shapeOf(e.Body) + "?"
	case *Seq:
		return shapeOf(e.Body) + "+"
	case *List:
		return shapeOf(e.Body) + "*"
	case *Chain:
		return "(" + shapeOf(e.Body) + " " + e.Sep.String() + ")+"
	case *Group:
		alts := make([]string, len(e.Rules))
		for i, r := range e.Rules {
			alts[i] = Shape(r)
			if !r.Transparent() {
				alts[i] += " [" + r.Type.String() + "]"
			}
		}
		return "(" + strings.Join(alts, " | ") + ")"
	}
	return e.String()
}

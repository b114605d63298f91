package grammar

import (
	"fmt"
	"strings"

	"github.com/dhamidi/iparse/ident"
)

// MalformedGrammarError reports a grammar tree that does not have the shape
// of the meta-grammar. Path lists the steps from the root to the offending
// node.
type MalformedGrammarError struct {
	Path []string
	Msg  string
}

func (e *MalformedGrammarError) Error() string {
	if len(e.Path) == 0 {
		return "malformed grammar: " + e.Msg
	}
	return fmt.Sprintf("malformed grammar at %s: %s", strings.Join(e.Path, "/"), e.Msg)
}

// AmbiguousTypeError reports two rules that produce the same tree type with
// different shapes.
type AmbiguousTypeError struct {
	Type          ident.Ident
	First, Second *Rule
}

func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("error: different rules with type %s: %s (in %s) and %s (in %s)",
		e.Type, e.First, ownerName(e.First), e.Second, ownerName(e.Second))
}

// AmbiguousTypeWarning reports a tree type that is produced by several rules
// of the same shape.
type AmbiguousTypeWarning struct {
	Type          ident.Ident
	First, Second *Rule
}

func (e *AmbiguousTypeWarning) Error() string {
	return fmt.Sprintf("warning: type %s reached through different paths: %s (in %s) and %s (in %s)",
		e.Type, e.First, ownerName(e.First), e.Second, ownerName(e.Second))
}

func ownerName(r *Rule) string {
	if r.Owner == nil {
		return "?"
	}
	return r.Owner.Name.String()
}

// Conflict is one decision that one token of lookahead cannot make.
type Conflict struct {
	Where     string
	Reason    string
	Terminals []Terminal
}

func (c Conflict) String() string {
	if len(c.Terminals) == 0 {
		return fmt.Sprintf("%s: %s", c.Where, c.Reason)
	}
	names := make([]string, len(c.Terminals))
	for i, t := range c.Terminals {
		names[i] = t.String()
	}
	return fmt.Sprintf("%s: %s on %s", c.Where, c.Reason, strings.Join(names, ", "))
}

// NonLL1GrammarError lists the conflicts that keep a grammar from being
// parsed with one token of lookahead.
type NonLL1GrammarError struct {
	Conflicts []Conflict
}

func (e *NonLL1GrammarError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "grammar is not LL(1): %d conflicts", len(e.Conflicts))
	for _, c := range e.Conflicts {
		sb.WriteString("\n  ")
		sb.WriteString(c.String())
	}
	return sb.String()
}

// LeftRecursionError reports a non-terminal that can reach itself without
// consuming input.
type LeftRecursionError struct {
	Cycle []ident.Ident
}

func (e *LeftRecursionError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		names[i] = id.String()
	}
	return "left recursion: " + strings.Join(names, " -> ")
}

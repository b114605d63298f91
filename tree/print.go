package tree

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// String renders t on a single line: leaves as Go literals, lists as
// [a, b] and trees as type(a, b).
func (t Tree) String() string {
	var sb strings.Builder
	t.writeTo(&sb)
	return sb.String()
}

func (t Tree) writeTo(sb *strings.Builder) {
	switch t.Kind() {
	case KindEmpty:
		sb.WriteString("<>")
	case KindIdent:
		sb.WriteString(t.n.id.String())
	case KindString:
		sb.WriteString(strconv.Quote(t.n.str))
	case KindInt:
		sb.WriteString(strconv.FormatInt(t.n.i, 10))
	case KindDouble:
		sb.WriteString(strconv.FormatFloat(t.n.f, 'g', -1, 64))
	case KindChar:
		sb.WriteString(strconv.QuoteRune(t.n.c))
	case KindList, KindTree:
		open, close := "[", "]"
		if t.IsTree() {
			sb.WriteString(t.n.id.String())
			open, close = "(", ")"
		}
		sb.WriteString(open)
		for i, kid := range t.n.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			kid.writeTo(sb)
		}
		sb.WriteString(close)
	}
}

// Print writes t to w with one node per line, indented two spaces per level
// starting at depth.
func Print(w io.Writer, t Tree, depth int) error {
	prefix := strings.Repeat("  ", depth)
	switch t.Kind() {
	case KindList:
		if _, err := fmt.Fprintf(w, "%slist\n", prefix); err != nil {
			return err
		}
	case KindTree:
		if _, err := fmt.Fprintf(w, "%stree %s\n", prefix, t.n.id); err != nil {
			return err
		}
	default:
		_, err := fmt.Fprintf(w, "%s%s\n", prefix, t)
		return err
	}
	for _, kid := range t.n.children {
		if err := Print(w, kid, depth+1); err != nil {
			return err
		}
	}
	return nil
}

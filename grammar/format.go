package grammar

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/iparse/tree"
)

// Format writes the grammar tree t as grammar text. Parsing the output with
// the meta-grammar yields a tree equal to t.
func Format(w io.Writer, t tree.Tree) error {
	if !t.IsList() {
		return &MalformedGrammarError{Msg: fmt.Sprintf("grammar must be a list of nt_def, got %s", t.Kind())}
	}
	for def := range t.Children() {
		if !def.IsTreeOf(idNtDef) || !def.Child(0).IsIdent() || !def.Child(1).IsList() {
			return &MalformedGrammarError{Msg: fmt.Sprintf("expected nt_def, got %s", describe(def))}
		}
		name := def.Child(0).Ident().String()
		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteString(" :")
		i := 0
		for rt := range def.Child(1).Children() {
			text, err := ruleText(rt)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(strings.Repeat(" ", len(name)+1))
				sb.WriteString("|")
			}
			if text != "" {
				sb.WriteString(" ")
				sb.WriteString(text)
			}
			i++
		}
		sb.WriteString(" .\n")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func ruleText(t tree.Tree) (string, error) {
	if !t.IsTreeOf(idRule) {
		return "", &MalformedGrammarError{Msg: fmt.Sprintf("expected rule, got %s", describe(t))}
	}
	var parts []string
	for et := range t.Child(0).Children() {
		text, err := elementText(et)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	if typ := t.Child(1); typ.IsIdent() {
		parts = append(parts, "["+typ.Ident().String()+"]")
	}
	return strings.Join(parts, " "), nil
}

func elementText(t tree.Tree) (string, error) {
	switch {
	case t.IsIdent():
		return t.Ident().String(), nil
	case t.IsList():
		var sb strings.Builder
		sb.WriteString("(")
		i := 0
		for rt := range t.Children() {
			text, err := ruleText(rt)
			if err != nil {
				return "", err
			}
			if i > 0 {
				sb.WriteString(" |")
			}
			if text != "" {
				sb.WriteString(" ")
				sb.WriteString(text)
			}
			i++
		}
		sb.WriteString(" )")
		return sb.String(), nil
	case !t.IsTree():
		return "", &MalformedGrammarError{Msg: fmt.Sprintf("unexpected %s in rule", describe(t))}
	}

	modifier := func(flag tree.Tree) string {
		if flag.IsTree() {
			return " " + strings.ToUpper(flag.Type().String())
		}
		return ""
	}
	operand := func() (string, error) {
		return elementText(t.Child(0))
	}

	switch t.Type() {
	case idLiteral:
		text := Quote(t.Child(0).Str())
		if t.Child(1).IsTreeOf(idLocal) {
			text += "*"
		}
		return text, nil
	case idOpt, idSeq, idList:
		body, err := operand()
		if err != nil {
			return "", err
		}
		return body + " " + strings.ToUpper(t.Type().String()) + modifier(t.Child(1)), nil
	case idChain:
		body, err := operand()
		if err != nil {
			return "", err
		}
		return body + " CHAIN" + modifier(t.Child(1)) + " " + Quote(t.Child(2).Str()), nil
	case idIdentDefAdd:
		return "ident >+ " + t.Child(0).Ident().String(), nil
	case idIdentDef:
		return "ident > " + t.Child(0).Ident().String(), nil
	case idIdentUse:
		return "ident < " + t.Child(0).Ident().String(), nil
	case idIdentField:
		return "ident ! " + t.Child(0).Ident().String(), nil
	case idIdentAlone:
		return "ident", nil
	case idOpenContext:
		return "{", nil
	case idCloseContext:
		return "}", nil
	case idWSTerminal:
		return `\` + t.Child(0).Ident().String(), nil
	}
	return "", &MalformedGrammarError{Msg: fmt.Sprintf("unknown element type %s", t.Type())}
}

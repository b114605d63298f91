package ebnf_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dhamidi/iparse/ebnf"
	"github.com/dhamidi/iparse/engine"
	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xebnf "golang.org/x/exp/ebnf"
)

const exprGrammar = `
expr = term { "+" term } .
term = Number | "(" expr ")" .
Number = "0" … "9" { "0" … "9" } .
WhiteSpace = " " .
`

func parseEBNF(t *testing.T, text string) xebnf.Grammar {
	t.Helper()
	g, err := xebnf.Parse("test.ebnf", strings.NewReader(text))
	require.NoError(t, err)
	return g
}

func TestConvert(t *testing.T) {
	gt, err := ebnf.Convert(parseEBNF(t, exprGrammar))
	require.NoError(t, err)
	assert.Equal(t,
		`[nt_def(expr, [rule([term, list([rule([literal("+", <>), term], <>)], <>)], expr)]), `+
			`nt_def(term, [rule([Number], term), rule([literal("(", <>), expr, literal(")", <>)], term)])]`,
		gt.String())
}

func TestConvertedGrammarParses(t *testing.T) {
	lexer := parseEBNF(t, exprGrammar)
	gt, err := ebnf.Convert(lexer)
	require.NoError(t, err)

	sc := scanner.NewEBNF(lexer)
	g, err := grammar.Load(gt, grammar.WithTerminals(sc.IsTerminal))
	require.NoError(t, err)

	for _, kind := range []engine.Kind{engine.KindBTStack, engine.KindBTHeap, engine.KindPar} {
		t.Run(kind.String(), func(t *testing.T) {
			e, err := engine.New(kind, scanner.NewEBNF(lexer))
			require.NoError(t, err)
			require.NoError(t, e.Load(g))

			result, err := e.Parse(context.Background(), []byte("1 + (23)"), "expr")
			require.NoError(t, err)
			assert.Equal(t, `expr(term("1"), [term(expr(term("23"), []))])`, result.String())

			_, err = e.Parse(context.Background(), []byte("1 +"), "expr")
			var pf *engine.ParseFailure
			assert.ErrorAs(t, err, &pf)
		})
	}
}

func TestConvertedGrammarFormats(t *testing.T) {
	gt, err := ebnf.Convert(parseEBNF(t, exprGrammar))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, grammar.Format(&buf, gt))

	meta, err := grammar.Load(grammar.Bootstrap())
	require.NoError(t, err)
	e := engine.NewBTStack(scanner.NewBasic())
	require.NoError(t, e.Load(meta))
	again, err := e.Parse(context.Background(), buf.Bytes(), "root")
	require.NoError(t, err, "formatted as:\n%s", buf.String())
	assert.True(t, tree.Equal(gt, again), "formatted as:\n%s", buf.String())
}

func TestConvertEmptyProduction(t *testing.T) {
	gt, err := ebnf.Convert(parseEBNF(t, "a = .\n"))
	require.NoError(t, err)
	assert.Equal(t, "[nt_def(a, [rule(<>, a)])]", gt.String())
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{"range", `a = "a" … "z" .`, "character range outside a lexical production"},
		{"only lexical", `A = "a" .`, "no syntactic productions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ebnf.Convert(parseEBNF(t, tt.text))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRangeErrorHasPosition(t *testing.T) {
	_, err := ebnf.Convert(parseEBNF(t, `a = "x" | "a" … "z" .`))
	var ce *ebnf.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Pos.Line)
	assert.Equal(t, 11, ce.Pos.Column)
}

func TestIsLexical(t *testing.T) {
	assert.True(t, ebnf.IsLexical("Number"))
	assert.False(t, ebnf.IsLexical("expr"))
	assert.False(t, ebnf.IsLexical(""))
}

package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadText parses grammar text with the meta-grammar and loads the result.
func loadText(t *testing.T, text string) *grammar.Grammar {
	t.Helper()
	meta, err := grammar.Load(grammar.Bootstrap())
	require.NoError(t, err)
	e := NewBTStack(scanner.NewBasic())
	require.NoError(t, e.Load(meta))
	gt, err := e.Parse(context.Background(), []byte(text), "root")
	require.NoError(t, err, "parse grammar")
	g, err := grammar.Load(gt)
	require.NoError(t, err, "load grammar")
	return g
}

func newEngine(t *testing.T, kind Kind, sc scanner.Scanner, g *grammar.Grammar) Engine {
	t.Helper()
	e, err := New(kind, sc)
	require.NoError(t, err)
	require.NoError(t, e.Load(g), "load into %s", kind)
	return e
}

var backtracking = []Kind{KindBTStack, KindBTHeap, KindPar}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(strings.ToLower(k.String()))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("lalr")
	assert.Error(t, err)
}

func TestLiteralEndToEnd(t *testing.T) {
	g := loadText(t, `root : ( "a" [a] ) ( "b" [b] | "c" [c] ) [root] .`)

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewRaw(), g)

			ab, err := e.Parse(context.Background(), []byte("ab"), "root")
			require.NoError(t, err)
			assert.Equal(t, "root(a(), b())", ab.String())

			ac, err := e.Parse(context.Background(), []byte("ac"), "root")
			require.NoError(t, err)
			assert.Equal(t, "root(a(), c())", ac.String())
			assert.Equal(t, ab.NrParts(), ac.NrParts())

			_, err = e.Parse(context.Background(), []byte("ad"), "root")
			var pf *ParseFailure
			require.ErrorAs(t, err, &pf)
			assert.Equal(t, 1, pf.Pos.Offset)
			assert.Equal(t, "d", pf.Found)
			assert.Equal(t, `expected "b" or "c" at line 1, column 2`, pf.Error())
		})
	}
}

func TestLiteralEndToEndUntyped(t *testing.T) {
	g := loadText(t, `root : "a" ( "b" | "c" ) .`)

	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewRaw(), g)

			ab, err := e.Parse(context.Background(), []byte("ab"), "root")
			require.NoError(t, err)
			ac, err := e.Parse(context.Background(), []byte("ac"), "root")
			require.NoError(t, err)
			assert.True(t, tree.Equal(ab, ac), "%s != %s", ab, ac)
			assert.Equal(t, "<>", ab.String(), "literals contribute nothing")

			_, err = e.Parse(context.Background(), []byte("ad"), "root")
			var pf *ParseFailure
			require.ErrorAs(t, err, &pf)
			assert.Equal(t, 1, pf.Pos.Offset)
			assert.Equal(t, []string{`"b"`, `"c"`}, pf.Expected)
			assert.Equal(t, `expected "b" or "c" at line 1, column 2`, pf.Error())
		})
	}
}

func TestFurthestFailure(t *testing.T) {
	g := loadText(t, `root : "ab" "d" | "ab" "c" | "x" .`)

	for _, kind := range backtracking {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewRaw(), g)
			_, err := e.Parse(context.Background(), []byte("ab$"), "root")
			var pf *ParseFailure
			require.ErrorAs(t, err, &pf)
			assert.Equal(t, 2, pf.Pos.Offset)
			assert.Equal(t, []string{`"d"`, `"c"`}, pf.Expected)
			assert.Equal(t, "$", pf.Found)
		})
	}
}

func TestTrailingInput(t *testing.T) {
	g := loadText(t, `root : "a" [a] .`)
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewRaw(), g)
			_, err := e.Parse(context.Background(), []byte("a a"), "root")
			var pf *ParseFailure
			require.ErrorAs(t, err, &pf)
			assert.Equal(t, []string{"end of input"}, pf.Expected)
			assert.Equal(t, 2, pf.Pos.Offset)
		})
	}
}

func TestChoiceOrder(t *testing.T) {
	tests := []struct {
		name    string
		grammar string
		input   string
		want    string
	}{
		{
			name:    "greedy list",
			grammar: `root : ( "a" [a] ) LIST ( "a" [b] ) LIST [root] .`,
			input:   "aa",
			want:    "root([a(), a()], [])",
		},
		{
			name:    "avoided list",
			grammar: `root : ( "a" [a] ) LIST AVOID ( "a" [b] ) LIST [root] .`,
			input:   "aa",
			want:    "root([], [b(), b()])",
		},
		{
			name:    "greedy opt",
			grammar: `root : ( "a" [a] ) OPT ( "a" [b] ) OPT [root] .`,
			input:   "a",
			want:    "root(a(), <>)",
		},
		{
			name:    "avoided opt",
			grammar: `root : ( "a" [a] ) OPT AVOID ( "a" [b] ) OPT [root] .`,
			input:   "a",
			want:    "root(<>, b())",
		},
		{
			name:    "nongreedy opt",
			grammar: `root : ( "a" [a] ) OPT NONGREEDY ( "a" [b] ) OPT [root] .`,
			input:   "a",
			want:    "root(<>, b())",
		},
		{
			name:    "list gives back items",
			grammar: `root : ( "a" [a] ) LIST "a" "b" [root] .`,
			input:   "aaab",
			want:    "root([a(), a()])",
		},
		{
			name:    "avoided seq stops at one",
			grammar: `root : ( "a" [a] ) SEQ AVOID ( "a" [b] ) LIST [root] .`,
			input:   "aaa",
			want:    "root([a()], [b(), b()])",
		},
		{
			name:    "later rule after failure",
			grammar: `root : "a" "b" [first] | "a" "c" [second] .`,
			input:   "ac",
			want:    "second()",
		},
		{
			name:    "chain",
			grammar: `root : ( "a" [a] | "b" [b] ) CHAIN "," .`,
			input:   "a,b,a",
			want:    "[a(), b(), a()]",
		},
	}

	for _, tt := range tests {
		g := loadText(t, tt.grammar)
		for _, kind := range backtracking {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				e := newEngine(t, kind, scanner.NewRaw(), g)
				got, err := e.Parse(context.Background(), []byte(tt.input), "root")
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.String())
			})
		}
	}
}

func TestRepetitionOfEmptyItemStops(t *testing.T) {
	g := loadText(t, `root : ( "a" OPT ) LIST "b" [root] .`)
	for _, kind := range backtracking {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewRaw(), g)
			got, err := e.Parse(context.Background(), []byte("aab"), "root")
			require.NoError(t, err)
			assert.Equal(t, "root([<>, <>])", got.String())
		})
	}
}

func TestRepetitionKeepsNoEmptyItemPastMinimum(t *testing.T) {
	tests := []struct {
		grammar string
		input   string
		want    string
	}{
		{`root : ( ident OPT ) LIST [r] .`, "", "r([])"},
		{`root : ( ident OPT ) LIST [r] .`, "a", "r([a])"},
		{`root : ( ident OPT ) LIST [r] .`, "a b", "r([a, b])"},
		{`root : ( ident OPT ) SEQ [r] .`, "", "r([<>])"},
		{`root : ( ident OPT ) SEQ [r] .`, "a", "r([a])"},
		{`root : ( ident OPT ) CHAIN "," [r] .`, "a,", "r([a, <>])"},
	}
	for _, tt := range tests {
		g := loadText(t, tt.grammar)
		for _, kind := range backtracking {
			t.Run(kind.String()+"/"+tt.input, func(t *testing.T) {
				e := newEngine(t, kind, scanner.NewBasic(), g)
				got, err := e.Parse(context.Background(), []byte(tt.input), "root")
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.String())
			})
		}
	}
}

func TestTransparentRules(t *testing.T) {
	g := loadText(t, `root : "(" ")" | "(" int ")" | "(" int int ")" .`)
	tests := []struct {
		input string
		want  string
	}{
		{"()", "<>"},
		{"(1)", "1"},
		{"(1 2)", "[1, 2]"},
	}
	e := newEngine(t, KindBTStack, scanner.NewBasic(), g)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := e.Parse(context.Background(), []byte(tt.input), "root")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name    string
		grammar string
		input   string
		want    string
		fails   bool
	}{
		{
			name:    "append collects in order",
			grammar: `decl : "var" ident >+ names CHAIN "," ";" [decl] .`,
			input:   "var x, y, z;",
			want:    "decl(names(x, y, z))",
		},
		{
			name:    "field keeps its first position",
			grammar: `r : "(" int ident > f int ")" [r] .`,
			input:   "(1 x 2)",
			want:    "r(1, f(x), 2)",
		},
		{
			name:    "define twice fails",
			grammar: `pair : ident > a ident > a [pair] .`,
			input:   "x y",
			fails:   true,
		},
		{
			name:    "define twice falls back to next rule",
			grammar: `pair : ident > a ident > a [pair] | ident > a ident > b [two] .`,
			input:   "x y",
			want:    "two(a(x), b(y))",
		},
		{
			name:    "use of a bound value",
			grammar: `pair : ident > a ident < a [pair] .`,
			input:   "x x",
			want:    "pair(a(x))",
		},
		{
			name:    "use of an unbound value",
			grammar: `pair : ident > a ident < a [pair] .`,
			input:   "x y",
			fails:   true,
		},
		{
			name:    "as field",
			grammar: `kv : ident ! key "=" int [kv] .`,
			input:   "k = 1",
			want:    "kv(key(k), 1)",
		},
		{
			name:    "fields are local to a rule",
			grammar: "outer : ident > a inner [outer] .\ninner : ident > a [inner] .",
			input:   "x y",
			want:    "outer(a(x), inner(a(y)))",
		},
	}

	for _, tt := range tests {
		g := loadText(t, tt.grammar)
		root := g.NonTerminals()[0].Name.String()
		for _, kind := range backtracking {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				e := newEngine(t, kind, scanner.NewBasic(), g)
				got, err := e.Parse(context.Background(), []byte(tt.input), root)
				if tt.fails {
					var pf *ParseFailure
					require.ErrorAs(t, err, &pf)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.String())
			})
		}
	}
}

const ll1Grammar = `
prog : stmt LIST eof [prog] .
stmt : "let" ident > name "=" expr ";" [let]
     | "print" expr CHAIN "," ";" [print]
     | "{" stmt LIST "}" [block] .
expr : term ( "+" term [add] ) LIST [expr] .
term : int | ident | "(" expr ")" .
`

const ll1Input = `
let x = 1 + 2;
print x, (x + 3);
{ print 1; { } }
`

func TestEngineEquivalence(t *testing.T) {
	g := loadText(t, ll1Grammar)

	var want tree.Tree
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewBasic(), g)
			got, err := e.Parse(context.Background(), []byte(ll1Input), "prog")
			require.NoError(t, err)
			if want.IsEmpty() {
				want = got
				return
			}
			assert.True(t, tree.Equal(want, got), "%s built %s, want %s", kind, got, want)
		})
	}

	require.True(t, want.IsTree())
	stmts := want.Child(0)
	require.Equal(t, 3, stmts.NrParts())
	assert.Equal(t, "let(name(x), expr(1, [add(2)]))", stmts.Child(0).String())
	assert.Equal(t, "print([expr(x, []), expr(expr(x, [add(3)]), [])])", stmts.Child(1).String())
	assert.Equal(t, "block([print([expr(1, [])]), block([])])", stmts.Child(2).String())
}

func TestEngineEquivalenceOnFailure(t *testing.T) {
	g := loadText(t, ll1Grammar)
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewBasic(), g)
			_, err := e.Parse(context.Background(), []byte("let x = ;"), "prog")
			var pf *ParseFailure
			require.ErrorAs(t, err, &pf)
			assert.Equal(t, 8, pf.Pos.Offset)
			assert.Equal(t, ";", pf.Found)
		})
	}
}

func TestLL1RejectsBootstrap(t *testing.T) {
	meta, err := grammar.Load(grammar.Bootstrap())
	require.NoError(t, err)
	for _, kind := range []Kind{KindLL1Stack, KindLL1Heap} {
		e, err := New(kind, scanner.NewBasic())
		require.NoError(t, err)
		var nonLL1 *grammar.NonLL1GrammarError
		assert.ErrorAs(t, e.Load(meta), &nonLL1, kind.String())
	}
}

func TestLeftRecursionRejected(t *testing.T) {
	g := loadText(t, `expr : expr "+" int | int .`)
	for _, kind := range Kinds() {
		e, err := New(kind, scanner.NewBasic())
		require.NoError(t, err)
		var lr *grammar.LeftRecursionError
		assert.ErrorAs(t, e.Load(g), &lr, kind.String())
	}
}

func TestBootstrapRoundTrip(t *testing.T) {
	meta, err := grammar.Load(grammar.Bootstrap())
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, grammar.Format(&text, grammar.Bootstrap()))

	for _, kind := range backtracking {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewBasic(), meta)
			got, err := e.Parse(context.Background(), text.Bytes(), "root")
			require.NoError(t, err)
			assert.True(t, tree.Equal(grammar.Bootstrap(), got), "round trip differs:\n%s", got)
		})
	}
}

func TestContinuationSteps(t *testing.T) {
	g := loadText(t, `root : ( "a" [a] ) LIST "b" [root] .`)
	e := NewBTHeap(scanner.NewRaw())
	require.NoError(t, e.Load(g))

	k, err := e.Start(context.Background(), []byte("aab"), "root")
	require.NoError(t, err)

	progressed := 0
	status := k.Step()
	for status == Progressed {
		progressed++
		status = k.Step()
	}
	require.Equal(t, Matched, status)
	assert.Greater(t, progressed, 5)
	assert.Equal(t, progressed+1, k.Steps())
	assert.Equal(t, "root([a(), a()])", k.Result().String())
	assert.Equal(t, Matched, k.Step())

	k, err = e.Start(context.Background(), []byte("aac"), "root")
	require.NoError(t, err)
	for status = k.Step(); status == Progressed; status = k.Step() {
	}
	assert.Equal(t, Failed, status)
	var pf *ParseFailure
	assert.ErrorAs(t, k.Err(), &pf)
}

func TestCancellation(t *testing.T) {
	g := loadText(t, ll1Grammar)
	input := []byte(strings.Repeat("let x = 1 + 2;\n", 200))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewBasic(), g)
			_, err := e.Parse(ctx, input, "prog")
			assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
		})
	}
}

func TestScannerErrorAborts(t *testing.T) {
	g := loadText(t, ll1Grammar)
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			e := newEngine(t, kind, scanner.NewBasic(), g)
			_, err := e.Parse(context.Background(), []byte("let x = 1; /* open"), "prog")
			var se *scanner.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 1, se.Pos.Line)
			assert.Equal(t, 12, se.Pos.Column)
		})
	}
}

func TestParseErrors(t *testing.T) {
	e := NewBTStack(scanner.NewBasic())
	_, err := e.Parse(context.Background(), nil, "root")
	assert.ErrorIs(t, err, ErrNoGrammar)

	require.NoError(t, e.Load(loadText(t, `root : int .`)))
	_, err = e.Parse(context.Background(), nil, "nope")
	assert.ErrorContains(t, err, `unknown root non-terminal "nope"`)
}

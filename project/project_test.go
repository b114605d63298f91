package project

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhamidi/iparse/engine"
	"github.com/dhamidi/iparse/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcGrammar = `
prog : stmt LIST eof [prog] .
stmt : "let" ident > name "=" expr ";" [let] .
expr : term ( "+" term [add] ) LIST [expr] .
term : int | ident | "(" expr ")" .
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestLoadFromWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, p.RootDir)
	assert.Equal(t, "btstack", p.Config.Engine)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"iparse.toml":    "extensions = [\".calc\"]\n",
		"a.calc":         "",
		"sub/b.calc":     "",
		".hidden/c.calc": "",
		"notes.txt":      "",
	})
	p, err := LoadFrom(dir)
	require.NoError(t, err)

	files, err := p.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.calc"), filepath.Join(dir, "sub", "b.calc")}, files)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"iparse.toml": "grammars = [\"calc.gr\"]\nroot = \"prog\"\nengine = \"ll1stack\"\n",
		"calc.gr":     calcGrammar,
		"ok.calc":     "let x = 1 + 2;",
		"bad.calc":    "let x = ;",
	})
	p, err := LoadFrom(filepath.Join(dir))
	require.NoError(t, err)

	ps, err := p.NewParser(context.Background())
	require.NoError(t, err)

	got, err := ps.ParseFile(context.Background(), filepath.Join(dir, "ok.calc"))
	require.NoError(t, err)
	assert.Equal(t, "prog([let(name(x), expr(1, [add(2)]))])", got.String())

	bad := filepath.Join(dir, "bad.calc")
	_, err = ps.ParseFile(context.Background(), bad)
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	var pf *engine.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Contains(t, err.Error(), bad+":1:9: expected ")
}

func TestGrammarChainThroughJSON(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"calc.gr": calcGrammar})

	meta, err := LoadChain(context.Background(), nil)
	require.NoError(t, err)
	gt, err := ReadTree(context.Background(), filepath.Join(dir, "calc.gr"), meta)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, format.NewJSONEncoder(&buf).Encode(gt))
	writeFiles(t, dir, map[string]string{
		"calc.json":   buf.String(),
		"iparse.toml": "grammars = [\"calc.json\"]\nroot = \"prog\"\n",
	})

	p, err := LoadFrom(dir)
	require.NoError(t, err)
	ps, err := p.NewParser(context.Background())
	require.NoError(t, err)
	got, err := ps.Parse(context.Background(), []byte("let y = (y);"))
	require.NoError(t, err)
	assert.Equal(t, "prog([let(name(y), expr(expr(y, []), []))])", got.String())
}

func TestEBNFProject(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"iparse.toml": "grammars = [\"expr.ebnf\"]\nroot = \"expr\"\nscanner = \"ebnf\"\nengine = \"par\"\n",
		"expr.ebnf": `
expr = term { "+" term } .
term = Number | "(" expr ")" .
Number = "0" … "9" { "0" … "9" } .
WhiteSpace = " " .
`,
	})
	p, err := LoadFrom(dir)
	require.NoError(t, err)
	ps, err := p.NewParser(context.Background())
	require.NoError(t, err)
	got, err := ps.Parse(context.Background(), []byte("1 + 2"))
	require.NoError(t, err)
	assert.Equal(t, `expr(term("1"), [term("2")])`, got.String())
}

func TestGrammarErrors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"broken.gr":   "prog : \"a\" \n",
		"undef.gr":    "prog : missing .\n",
		"iparse.toml": "grammars = [\"broken.gr\"]\n",
	})

	p, err := LoadFrom(dir)
	require.NoError(t, err)
	_, err = p.Grammar(context.Background())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, filepath.Join(dir, "broken.gr"), fe.File)

	_, err = LoadChain(context.Background(), []string{filepath.Join(dir, "undef.gr")})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "undefined non-terminal missing")
}

func TestIsGrammarFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"iparse.toml": "grammars = [\"g/calc.gr\"]\nlexer = \"calc.ebnf\"\n",
	})
	p, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.True(t, p.IsGrammarFile(filepath.Join(dir, "g", "calc.gr")))
	assert.True(t, p.IsGrammarFile(filepath.Join(dir, "calc.ebnf")))
	assert.False(t, p.IsGrammarFile(filepath.Join(dir, "in.calc")))
}

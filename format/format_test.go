package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() tree.Tree {
	var b tree.Builder
	b.List().
		Tree("add").Val(1).Val("a<b").Close().
		None().
		ID("x").
		Val(2.5).
		Val('c').
		Close()
	return b.Root()
}

func encodeString(t *testing.T, kind Kind, tr tree.Tree, opts ...Option) string {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewEncoder(kind, &buf, opts...)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(tr))
	return buf.String()
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(strings.ToUpper(k.String()))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("yaml")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	got := encodeString(t, KindText, sample())
	assert.Equal(t, `list
  tree add
    1
    "a<b"
  <>
  x
  2.5
  'c'
`, got)
}

func TestLine(t *testing.T) {
	assert.Equal(t, "[add(1, \"a<b\"), <>, x, 2.5, 'c']\n", encodeString(t, KindLine, sample()))
}

func TestXML(t *testing.T) {
	var b tree.Builder
	b.Tree("add").Val(1).Val("a<b").List().Close().Tree("nil").Close().None().
		List().ID("x").Close().Close()
	got := encodeString(t, KindXML, b.Root())
	assert.Equal(t, `<TREE TYPE="add">
 <INT>1</INT>
 <STRING>a&lt;b</STRING>
 <LIST/>
 <TREE TYPE="nil"/>
 <EMPTY/>
 <LIST>
  <ID>x</ID>
 </LIST>
</TREE>
`, got)
}

func TestJSON(t *testing.T) {
	text := encodeString(t, KindJSON, sample())
	assert.Contains(t, text, `"kind": "tree"`)
	assert.Contains(t, text, `"type": "add"`)
	assert.Contains(t, text, `"value": "a<b"`)
	assert.NotContains(t, text, `\u003c`, "strings are not HTML-escaped")

	back, err := DecodeJSON(strings.NewReader(text))
	require.NoError(t, err)
	assert.True(t, tree.Equal(sample(), back), "decoded %s", back)
}

func TestJSONBootstrapGrammar(t *testing.T) {
	text := encodeString(t, KindJSON, grammar.Bootstrap())
	back, err := DecodeJSON(strings.NewReader(text))
	require.NoError(t, err)
	_, err = grammar.Load(back)
	require.NoError(t, err)
	assert.True(t, tree.Equal(grammar.Bootstrap(), back))
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown kind", `{"kind": "set"}`},
		{"int as string", `{"kind": "int", "value": "1"}`},
		{"long char", `{"kind": "char", "value": "ab"}`},
		{"untyped tree", `{"kind": "tree"}`},
		{"syntax", `{"kind": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(strings.NewReader(tt.text))
			assert.Error(t, err)
		})
	}
}

func TestGo(t *testing.T) {
	var b tree.Builder
	b.List().Tree("add").Val(1).Val("x").Close().None().Close()
	got := encodeString(t, KindGo, b.Root(), WithGoNames("grammars", "Sample"))
	assert.Equal(t, `// Code generated by iparse. DO NOT EDIT.

package grammars

import "github.com/dhamidi/iparse/tree"

func Sample() tree.Tree {
	var b tree.Builder
	b.List()
	b.Tree("add").Val(int64(1)).Val("x").Close().None().Close()
	return b.Root()
}
`, got)
}

func TestGoNestedComposites(t *testing.T) {
	got := encodeString(t, KindGo, sample())
	assert.Contains(t, got, "package main\n")
	assert.Contains(t, got, "func Tree() tree.Tree {\n")
	assert.Contains(t, got, "\tb.List()\n\tb.Tree(\"add\").Val(int64(1)).Val(\"a<b\").Close().None().ID(\"x\").Val(float64(2.5)).Val('c').Close()\n")
}

package tree

import (
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/iparse/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsEmpty(t *testing.T) {
	var tr Tree
	assert.True(t, tr.IsEmpty())
	assert.Equal(t, KindEmpty, tr.Kind())
	assert.Equal(t, 0, tr.NrParts())
	assert.True(t, tr.Type().IsZero())
}

func TestAppendChildIsVisibleThroughAliases(t *testing.T) {
	var t1 Tree
	t1.CreateList()
	t2 := t1

	require.NoError(t, t1.AppendChild(NewInt(1)))
	assert.Equal(t, 1, t2.NrParts())
	assert.True(t, Same(t1, t2))
}

func TestAttachAndClearRebindOnlyTheHandle(t *testing.T) {
	var t1 Tree
	t1.CreateList()
	t2 := t1

	t1.Clear()
	assert.True(t, t1.IsEmpty())
	assert.True(t, t2.IsList())

	require.NoError(t, t2.AppendChild(NewString("x")))
	t1.Attach(t2)
	assert.True(t, Same(t1, t2))
	assert.Equal(t, 1, t1.NrParts())
}

func TestAppendChildRejectsLeaves(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
	}{
		{"empty", Tree{}},
		{"ident", NewIdent(ident.New("x"))},
		{"string", NewString("x")},
		{"int", NewInt(3)},
		{"double", NewDouble(1.5)},
		{"char", NewChar('c')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tree.AppendChild(NewInt(1))
			var structural *StructuralError
			require.True(t, errors.As(err, &structural))
			assert.Equal(t, tt.tree.Kind(), structural.Kind)
		})
	}
}

func TestChildrenIteratesSnapshot(t *testing.T) {
	list := NewList(NewInt(1), NewInt(2))

	var seen []int64
	for kid := range list.Children() {
		seen = append(seen, kid.Int())
		if len(seen) == 1 {
			require.NoError(t, list.AppendChild(NewInt(3)))
		}
	}
	assert.Equal(t, []int64{1, 2}, seen)

	seen = nil
	for kid := range list.Children() {
		seen = append(seen, kid.Int())
	}
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestEqual(t *testing.T) {
	rule := ident.New("rule")
	mk := func() Tree {
		return NewTree(rule, NewList(NewIdent(ident.New("a")), NewString("b")), Tree{})
	}

	assert.True(t, Equal(mk(), mk()))
	assert.False(t, Same(mk(), mk()))
	assert.False(t, Equal(mk(), NewTree(ident.New("other"), NewList(NewIdent(ident.New("a")), NewString("b")), Tree{})))
	assert.False(t, Equal(NewList(NewInt(1)), NewList(NewInt(1), NewInt(2))))
	assert.False(t, Equal(NewInt(1), NewDouble(1)))
	assert.True(t, Equal(Tree{}, Tree{}))
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		value any
		kind  Kind
	}{
		{"s", KindString},
		{42, KindInt},
		{int64(42), KindInt},
		{2.5, KindDouble},
		{'x', KindChar},
		{ident.New("id"), KindIdent},
	}
	for _, tt := range tests {
		got, err := Literal(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.kind, got.Kind())
	}

	_, err := Literal(struct{}{})
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	var b Builder
	b.List().
		Tree("pair").ID("x").Val(1).None().Close().
		Val("s").
		Close()
	got := b.Root()

	want := NewList(
		NewTree(ident.New("pair"), NewIdent(ident.New("x")), NewInt(1), Tree{}),
		NewString("s"),
	)
	assert.True(t, Equal(want, got), "got %s", got)
}

func TestBuilderPanicsWhenUnbalanced(t *testing.T) {
	assert.Panics(t, func() {
		var b Builder
		b.List()
		b.Root()
	})
	assert.Panics(t, func() {
		var b Builder
		b.Close()
	})
}

func TestString(t *testing.T) {
	tr := NewTree(ident.New("call"), NewIdent(ident.New("f")), NewList(NewInt(1), NewString("a\"b")), NewChar('c'), Tree{})
	assert.Equal(t, `call(f, [1, "a\"b"], 'c', <>)`, tr.String())
}

func TestPrint(t *testing.T) {
	tr := NewTree(ident.New("seq"), NewIdent(ident.New("x")), NewList(NewDouble(0.5)))

	var sb strings.Builder
	require.NoError(t, Print(&sb, tr, 1))
	assert.Equal(t, "  tree seq\n    x\n    list\n      0.5\n", sb.String())
}

package tree

import (
	"fmt"

	"github.com/dhamidi/iparse/ident"
)

// Builder assembles a tree from a flat sequence of calls. List and Tree open
// a composite that receives everything up to the matching Close.
//
//	var b tree.Builder
//	b.List().
//		Tree("pair").ID("x").Val(1).Close().
//		Close()
//	t := b.Root()
//
// Builder panics on unbalanced calls; it is meant for trees written out by
// hand or by the Go encoder.
type Builder struct {
	open []Tree
	root Tree
	done bool
}

func (b *Builder) add(t Tree) *Builder {
	if len(b.open) == 0 {
		if b.done {
			panic("tree.Builder: more than one root")
		}
		b.root = t
		b.done = true
		return b
	}
	if err := b.open[len(b.open)-1].AppendChild(t); err != nil {
		panic(fmt.Sprintf("tree.Builder: %v", err))
	}
	return b
}

// None adds an Empty tree.
func (b *Builder) None() *Builder {
	return b.add(Tree{})
}

// ID adds an identifier leaf.
func (b *Builder) ID(name string) *Builder {
	return b.add(NewIdent(ident.New(name)))
}

// Val adds a literal leaf. See Literal for the accepted values.
func (b *Builder) Val(v any) *Builder {
	t, err := Literal(v)
	if err != nil {
		panic(fmt.Sprintf("tree.Builder: %v", err))
	}
	return b.add(t)
}

// Tree opens a Tree of the given type.
func (b *Builder) Tree(typ string) *Builder {
	t := NewTree(ident.New(typ))
	b.add(t)
	b.open = append(b.open, t)
	return b
}

// List opens a List.
func (b *Builder) List() *Builder {
	t := NewList()
	b.add(t)
	b.open = append(b.open, t)
	return b
}

// Close ends the innermost open List or Tree.
func (b *Builder) Close() *Builder {
	if len(b.open) == 0 {
		panic("tree.Builder: close without open")
	}
	b.open = b.open[:len(b.open)-1]
	return b
}

// Root returns the finished tree.
func (b *Builder) Root() Tree {
	if len(b.open) != 0 {
		panic(fmt.Sprintf("tree.Builder: %d unclosed composites", len(b.open)))
	}
	return b.root
}

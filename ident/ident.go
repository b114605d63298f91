// Package ident provides interned identifiers.
//
// Two identifiers created from the same name are the same value for the
// life of the process, so they can be compared with == and used as map keys.
package ident

import (
	"cmp"
	"sync"
)

type entry struct {
	name string
	seq  uint64
}

// Ident is an interned name. The zero value is "no identifier".
type Ident struct {
	e *entry
}

var table = struct {
	sync.Mutex
	names map[string]*entry
	next  uint64
}{names: make(map[string]*entry)}

// New returns the identifier for name, interning it on first use.
func New(name string) Ident {
	table.Lock()
	defer table.Unlock()

	if e, ok := table.names[name]; ok {
		return Ident{e: e}
	}
	table.next++
	e := &entry{name: name, seq: table.next}
	table.names[name] = e
	return Ident{e: e}
}

// Lookup returns the identifier for name if it has been interned.
func Lookup(name string) (Ident, bool) {
	table.Lock()
	defer table.Unlock()

	e, ok := table.names[name]
	return Ident{e: e}, ok
}

func (id Ident) IsZero() bool {
	return id.e == nil
}

func (id Ident) String() string {
	if id.e == nil {
		return ""
	}
	return id.e.name
}

// Compare orders identifiers by the order in which they were first interned.
// The zero identifier sorts first.
func Compare(a, b Ident) int {
	return cmp.Compare(a.seq(), b.seq())
}

func (id Ident) seq() uint64 {
	if id.e == nil {
		return 0
	}
	return id.e.seq
}

package ident

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterns(t *testing.T) {
	a := New("nt_def")
	b := New("nt_def")
	c := New("rule")

	assert.Equal(t, a, b)
	assert.True(t, a == b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "nt_def", a.String())
}

func TestZero(t *testing.T) {
	var id Ident
	assert.True(t, id.IsZero())
	assert.Equal(t, "", id.String())
	assert.False(t, New("").IsZero())
}

func TestCompareFollowsInterningOrder(t *testing.T) {
	first := New("ident_test_compare_first")
	second := New("ident_test_compare_second")

	assert.Equal(t, -1, Compare(first, second))
	assert.Equal(t, 1, Compare(second, first))
	assert.Equal(t, 0, Compare(first, New("ident_test_compare_first")))
	assert.Equal(t, -1, Compare(Ident{}, first))
}

func TestLookup(t *testing.T) {
	_, ok := Lookup("ident_test_never_interned")
	assert.False(t, ok)

	want := New("ident_test_lookup")
	got, ok := Lookup("ident_test_lookup")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestConcurrentNew(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]Ident, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = New("ident_test_concurrent")
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
}

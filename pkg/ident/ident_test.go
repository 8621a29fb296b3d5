package ident

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternReturnsSameHandle(t *testing.T) {
	tab := NewTable()
	a := tab.Intern("x")
	b := tab.Intern("x")
	c := tab.Intern("y")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsNull())
	assert.Equal(t, "x", tab.Name(a))
	assert.Equal(t, 2, tab.Len())
}

func TestInternNormalizesToNFC(t *testing.T) {
	tab := NewTable()
	composed := tab.Intern("caf\u00e9")
	decomposed := tab.Intern("cafe\u0301")

	assert.Equal(t, composed, decomposed, "canonically equivalent names must share a handle")
	id, ok := tab.Lookup("cafe\u0301")
	require.True(t, ok)
	assert.Equal(t, composed, id)
}

func TestHashIsStable(t *testing.T) {
	tab := NewTable()
	id := tab.Intern("length")
	h := tab.Hash(id)
	tab.Intern("other")
	assert.Equal(t, h, tab.Hash(id))
	assert.Equal(t, uint32(0), tab.Hash(Null))
}

func TestLookupUnknown(t *testing.T) {
	tab := NewTable()
	_, ok := tab.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, "", tab.Name(ID(42)))
}

func TestInternConcurrent(t *testing.T) {
	tab := NewTable()
	var wg sync.WaitGroup
	ids := make([]ID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = tab.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, tab.Len())
}

package shape

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shapegraph/pkg/config"
)

func TestInlineCacheStates(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.InlineCacheEntries = 3 })
	ic := e.NewInlineCache()
	assert.Equal(t, CacheStateUninitialized, ic.State())

	shapes := make([]*Shape, 4)
	for i := range shapes {
		shapes[i] = build(t, e.Root(), fmt.Sprintf("pad%d", i), "x")
	}

	_, ok := ic.Lookup(shapes[0])
	assert.False(t, ok)
	ic.Update(shapes[0], 1)
	assert.Equal(t, CacheStateMonomorphic, ic.State())

	slot, ok := ic.Lookup(shapes[0])
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	ic.Update(shapes[1], 1)
	ic.Update(shapes[2], 1)
	assert.Equal(t, CacheStatePolymorphic, ic.State())
	for _, s := range shapes[:3] {
		_, ok := ic.Lookup(s)
		assert.True(t, ok)
	}

	ic.Update(shapes[3], 1)
	assert.Equal(t, CacheStateMegamorphic, ic.State())
	_, ok = ic.Lookup(shapes[0])
	assert.False(t, ok)
	ic.Update(shapes[0], 1)
	assert.Equal(t, CacheStateMegamorphic, ic.State())

	assert.Equal(t, uint32(4), ic.Hits())
	assert.Equal(t, uint32(2), ic.Misses())

	ic.Reset()
	assert.Equal(t, CacheStateUninitialized, ic.State())
	assert.Equal(t, uint32(4), ic.Hits())
}

func TestInlineCacheRefreshesSlot(t *testing.T) {
	e := newTestEngine(t)
	ic := e.NewInlineCache()
	s := build(t, e.Root(), "x")
	ic.Update(s, 0)
	ic.Update(s, 5)
	assert.Equal(t, CacheStateMonomorphic, ic.State())
	slot, ok := ic.Lookup(s)
	require.True(t, ok)
	assert.Equal(t, 5, slot)
}

func TestInlineCacheMovesHitToFront(t *testing.T) {
	ic := NewInlineCache(4)
	e := newTestEngine(t)
	a := build(t, e.Root(), "a")
	b := build(t, e.Root(), "b")
	ic.Update(a, 0)
	ic.Update(b, 0)

	_, ok := ic.Lookup(b)
	require.True(t, ok)
	assert.Same(t, b, ic.entries[0].shape)
	assert.Same(t, a, ic.entries[1].shape)
}

func TestInlineCacheLimitIsClamped(t *testing.T) {
	assert.Equal(t, 1, NewInlineCache(0).limit)
	assert.Equal(t, maxCacheEntries, NewInlineCache(100).limit)
}

// Equal layouts share a shape, so a site warmed by one object hits for
// another object built the same way.
func TestInlineCacheHitsAcrossConvergentBuilds(t *testing.T) {
	e := newTestEngine(t)
	ic := e.NewInlineCache()
	first := build(t, e.Root(), "a", "b")
	slot, _ := first.FindName("b")
	ic.Update(first, slot)

	second := build(t, e.Root(), "a", "b")
	got, ok := ic.Lookup(second)
	require.True(t, ok)
	assert.Equal(t, 1, got)
}

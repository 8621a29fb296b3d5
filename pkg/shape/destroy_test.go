package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shapegraph/pkg/config"
	"shapegraph/pkg/ident"
)

// populate builds a graph with prototypes, dispatch tables, accessors and
// sealed/frozen forms.
func populate(t *testing.T, e *Engine) {
	t.Helper()
	a := build(t, e.Root(), "x", "y")
	a.Sealed()
	a.Frozen()
	build(t, a.ChangePrototype(10), "z")
	a.RemoveMember(e.Idents().Intern("x"))

	dt := e.EmptyShape(3)
	b := build(t, dt.ChangePrototype(20), "p", "q")
	b.ChangePrototype(30)
	b.ChangeDispatchTable(4).ChangePrototype(40)
	g, _ := b.AddMember(e.Idents().Intern("g"), NewAccessor(true, true))
	g.NonExtensible()
}

func TestCloseDestroysEverything(t *testing.T) {
	cfg := config.Default()
	e, err := NewEngine(cfg, ident.NewTable(), nil)
	require.NoError(t, err)
	populate(t, e)

	live := e.Stats().Live
	require.Greater(t, live, 10)
	shapes := make([]*Shape, 0, live)
	e.Walk(func(s *Shape) bool {
		shapes = append(shapes, s)
		return true
	})

	e.Close()
	st := e.Stats()
	assert.Equal(t, 0, st.Live)
	assert.Equal(t, 0, st.Transitions)
	assert.Equal(t, st.Created, st.Destroyed)
	for _, s := range shapes {
		assert.True(t, s.IsDestroyed())
		assert.Nil(t, s.Transitions())
		assert.Nil(t, e.Shape(s.ID()))
	}

	// idempotent
	e.Close()
	assert.Equal(t, st, e.Stats())
}

func TestClosedEngineRejectsUse(t *testing.T) {
	e, err := NewEngine(config.Default(), nil, nil)
	require.NoError(t, err)
	s := build(t, e.Root(), "x")
	e.Close()

	requirePrecondition(t, "Root", func() { e.Root() })
	requirePrecondition(t, "MarkRoots", func() { e.MarkRoots(newRecordingMarker()) })
	requirePrecondition(t, "AddMember", func() { s.AddMember(1, DefaultData) })
	assert.Contains(t, s.String(), "destroyed")
}

func TestWalkVisitsEachLiveShapeOnce(t *testing.T) {
	e := newTestEngine(t)
	populate(t, e)

	seen := make(map[ID]int)
	e.Walk(func(s *Shape) bool {
		seen[s.ID()]++
		return true
	})
	assert.Len(t, seen, e.Stats().Live)
	for id, n := range seen {
		assert.Equal(t, 1, n, "shape %d", id)
	}
}

func TestWalkStops(t *testing.T) {
	e := newTestEngine(t)
	populate(t, e)
	n := 0
	e.Walk(func(*Shape) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}

func TestDestroySubgraph(t *testing.T) {
	e := newTestEngine(t)
	base := build(t, e.Root(), "a")
	left := build(t, base, "l")
	build(t, left, "m")
	live := e.Stats().Live

	// left's subtree is only reachable through left
	n := e.Destroy(left)
	assert.Equal(t, 2, n)
	assert.Equal(t, live-2, e.Stats().Live)
	assert.True(t, left.IsDestroyed())
	assert.False(t, base.IsDestroyed())

	assert.Zero(t, e.Destroy(left))
	assert.Zero(t, e.Destroy(nil))

	// the surviving edge base -l-> left is stale now
	requirePrecondition(t, "lookupTransition", func() { build(t, base, "l") })
}

func TestStaleEdgesFailAsPreconditions(t *testing.T) {
	e := newTestEngine(t)
	dt := e.EmptyShape(7)
	dt.ChangePrototype(10)
	require.Len(t, e.Root().Transitions(), 1)

	e.Destroy(dt)

	requirePrecondition(t, "MarkRoots", func() { e.MarkRoots(newRecordingMarker()) })
	requirePrecondition(t, "Walk", func() { e.Walk(func(*Shape) bool { return true }) })
	requirePrecondition(t, "Transitions", func() { e.Root().Transitions() })
}

func TestMarkRootsBounded(t *testing.T) {
	e := newTestEngine(t)
	populate(t, e)

	m := newRecordingMarker()
	e.MarkRoots(m)
	assert.Equal(t, map[ObjectRef]bool{10: true, 20: true, 30: true, 40: true}, m.set())
}

func TestBoundedMarkingMatchesFullTraversal(t *testing.T) {
	bounded := newTestEngine(t)
	full := newTestEngine(t, func(c *config.Config) { c.FullMarkTraversal = true })
	populate(t, bounded)
	populate(t, full)

	bm, fm := newRecordingMarker(), newRecordingMarker()
	bounded.MarkRoots(bm)
	full.MarkRoots(fm)
	assert.Equal(t, fm.set(), bm.set())
	for ref, n := range fm.marked {
		assert.Equal(t, 1, n, "full traversal marks %d once", ref)
	}
}

func TestMarkRootsEmptyGraph(t *testing.T) {
	e := newTestEngine(t)
	build(t, e.Root(), "x")
	m := newRecordingMarker()
	e.MarkRoots(m)
	assert.Empty(t, m.marked)
}

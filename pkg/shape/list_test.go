package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedListAppendIsVisibleToSharers(t *testing.T) {
	var l sharedList[int]
	l.add(0, 10)
	l.add(1, 11)

	m := l.share()
	m.add(2, 12)
	assert.Same(t, l.d, m.d)
	assert.Equal(t, 12, l.at(2))
	assert.Equal(t, 2, l.d.refCount)
}

func TestSharedListDetachesOnDivergence(t *testing.T) {
	var l sharedList[int]
	l.add(0, 10)
	l.add(1, 11)
	m := l.share()
	m.add(2, 12)

	n := l.share()
	n.add(2, 99)
	assert.NotSame(t, l.d, n.d)
	assert.Equal(t, 99, n.at(2))
	assert.Equal(t, 12, m.at(2))
	assert.Equal(t, 10, n.at(0))
	assert.Equal(t, 2, l.d.refCount)
	assert.Equal(t, 1, n.d.refCount)
}

func TestSharedListSetCopiesWhenShared(t *testing.T) {
	var l sharedList[int]
	l.add(0, 10)
	l.add(1, 11)
	m := l.share()

	m.set(0, 2, 7)
	assert.Equal(t, 7, m.at(0))
	assert.Equal(t, 10, l.at(0))
	assert.Equal(t, 1, l.d.refCount)

	m.set(1, 2, 8)
	assert.Equal(t, 8, m.at(1), "sole owner writes in place")
}

func TestSharedListAddPastEndPanics(t *testing.T) {
	var l sharedList[int]
	assert.Panics(t, func() { l.add(3, 1) })
}

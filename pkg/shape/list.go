package shape

import "fmt"

type listData[T any] struct {
	refCount int
	items    []T
}

// sharedList is an append-only slot-indexed list shared between shapes with
// a common prefix. Appending below the shared length, or overwriting while
// shared, detaches a private copy first.
type sharedList[T any] struct {
	d *listData[T]
}

func (l sharedList[T]) at(i int) T { return l.d.items[i] }

func (l sharedList[T]) share() sharedList[T] {
	if l.d != nil {
		l.d.refCount++
	}
	return l
}

func (l *sharedList[T]) release() {
	if l.d != nil {
		l.d.refCount--
		l.d = nil
	}
}

func (l *sharedList[T]) add(pos int, v T) {
	if l.d == nil {
		l.d = &listData[T]{refCount: 1}
	}
	n := len(l.d.items)
	switch {
	case pos < n:
		// a sibling already appended here
		items := make([]T, pos, pos+4)
		copy(items, l.d.items[:pos])
		l.d.refCount--
		l.d = &listData[T]{refCount: 1, items: append(items, v)}
	case pos == n:
		l.d.items = append(l.d.items, v)
	default:
		panic(fmt.Sprintf("sharedList.add: position %d past end %d", pos, n))
	}
}

// set overwrites pos for an owner that sees size entries.
func (l *sharedList[T]) set(pos, size int, v T) {
	if l.d.refCount > 1 {
		items := make([]T, size)
		copy(items, l.d.items[:size])
		l.d.refCount--
		l.d = &listData[T]{refCount: 1, items: items}
	}
	l.d.items[pos] = v
}

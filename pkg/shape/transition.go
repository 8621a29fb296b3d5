package shape

import (
	"cmp"
	"slices"

	"shapegraph/pkg/ident"
)

// TransitionKind names the mutation an edge of the shape graph caches.
type TransitionKind uint8

const (
	KindAddOrChangeMember TransitionKind = iota
	KindRemoveMember
	KindChangePrototype
	KindChangeDispatchTable
	KindMakeNonExtensible
)

func (k TransitionKind) String() string {
	switch k {
	case KindAddOrChangeMember:
		return "member"
	case KindRemoveMember:
		return "remove"
	case KindChangePrototype:
		return "prototype"
	case KindChangeDispatchTable:
		return "dispatch_table"
	case KindMakeNonExtensible:
		return "non_extensible"
	default:
		return "unknown"
	}
}

// transitionKey identifies an edge. flags carries the attribute bits of a
// member edge; tag carries the new prototype or dispatch table.
type transitionKey struct {
	id    ident.ID
	kind  TransitionKind
	flags uint8
	tag   uint64
}

func (k transitionKey) compare(o transitionKey) int {
	if c := cmp.Compare(k.id, o.id); c != 0 {
		return c
	}
	if c := cmp.Compare(k.kind, o.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(k.flags, o.flags); c != 0 {
		return c
	}
	return cmp.Compare(k.tag, o.tag)
}

func memberKey(id ident.ID, attrs Attributes) transitionKey {
	return transitionKey{id: id, kind: KindAddOrChangeMember, flags: attrs.Flags()}
}

type transition struct {
	key transitionKey
	to  ID
}

// Transition is a read-only view of an outgoing edge.
type Transition struct {
	Kind       TransitionKind
	Identifier ident.ID
	Flags      uint8
	Tag        uint64
	To         *Shape
}

func (s *Shape) searchTransition(key transitionKey) (int, bool) {
	return slices.BinarySearchFunc(s.transitions, key, func(t transition, k transitionKey) int {
		return t.key.compare(k)
	})
}

// lookupTransition returns the cached destination for key, if any.
func (s *Shape) lookupTransition(key transitionKey) (*Shape, bool) {
	i, ok := s.searchTransition(key)
	if !ok {
		s.engine.noteLookup(key.kind, false)
		return nil, false
	}
	s.engine.noteLookup(key.kind, true)
	return s.engine.resolve(s.transitions[i].to, "lookupTransition"), true
}

// publish inserts the edge key -> to, making to reachable from s. If an
// edge for key appeared while to was being built, the existing destination
// wins and is returned.
func (s *Shape) publish(key transitionKey, to *Shape) *Shape {
	i, ok := s.searchTransition(key)
	if ok {
		return s.engine.resolve(s.transitions[i].to, "publish")
	}
	s.transitions = slices.Insert(s.transitions, i, transition{key: key, to: to.id})
	s.engine.edges++
	return to
}

// Transitions returns the outgoing edges of s in key order.
func (s *Shape) Transitions() []Transition {
	if s.engine == nil {
		return nil
	}
	out := make([]Transition, 0, len(s.transitions))
	for _, t := range s.transitions {
		out = append(out, Transition{
			Kind:       t.key.kind,
			Identifier: t.key.id,
			Flags:      t.key.flags,
			Tag:        t.key.tag,
			To:         s.engine.resolve(t.to, "Transitions"),
		})
	}
	return out
}

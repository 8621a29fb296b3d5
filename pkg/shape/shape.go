// Package shape implements shared object layouts ("shapes") and the
// transition graph that canonicalizes them.
//
// A shape records the ordered members of an object, its prototype and its
// dispatch table. Objects that went through the same mutations from the same
// starting shape end up pointing at the very same *Shape, so a layout is
// stored once and property lookups can be cached per shape.
//
// Published shapes never change, except for two monotonic caches: their
// outgoing transitions and their sealed/frozen forms. An engine and all of
// its shapes belong to a single goroutine.
package shape

import (
	"fmt"
	"strings"

	"shapegraph/pkg/errors"
	"shapegraph/pkg/ident"
)

// ID is the stable arena handle of a shape within its engine. Zero is never
// a valid shape.
type ID uint32

// DispatchTable tags a family of objects sharing behaviour. Zero means none.
type DispatchTable uint32

// ObjectRef is an opaque handle to a prototype object. Zero is null.
type ObjectRef uint64

const (
	NoDispatchTable DispatchTable = 0
	NullObject      ObjectRef     = 0
)

// Shape is an immutable object layout.
type Shape struct {
	id     ID
	engine *Engine // nil once torn down

	dispatch  DispatchTable
	prototype ObjectRef

	hash  propertyHash
	names sharedList[ident.ID]
	attrs sharedList[Attributes]
	size  int

	extensible bool
	root       bool // canonical empty shape of its dispatch table

	sealed ID
	frozen ID

	transitions []transition // sorted by key
}

// Member describes one property in slot order.
type Member struct {
	Name  ident.ID
	Slot  int
	Attrs Attributes
}

func (s *Shape) ID() ID                       { return s.id }
func (s *Shape) Engine() *Engine              { return s.engine }
func (s *Shape) DispatchTable() DispatchTable { return s.dispatch }
func (s *Shape) Prototype() ObjectRef         { return s.prototype }

// Size is the number of slots, counting accessors twice.
func (s *Shape) Size() int         { return s.size }
func (s *Shape) IsExtensible() bool { return s.extensible }
func (s *Shape) IsDestroyed() bool  { return s.engine == nil }

// IsRoot reports whether s is the canonical empty shape of its dispatch table.
func (s *Shape) IsRoot() bool { return s.root }

// IdentifierAt returns the identifier stored at slot i; ident.Null for the
// second slot of an accessor pair.
func (s *Shape) IdentifierAt(i int) ident.ID {
	s.checkSlot(i)
	return s.names.at(i)
}

// AttributesAt returns the attributes stored at slot i.
func (s *Shape) AttributesAt(i int) Attributes {
	s.checkSlot(i)
	return s.attrs.at(i)
}

func (s *Shape) checkSlot(i int) {
	if i < 0 || i >= s.size {
		panic(errors.Preconditionf("slot", "slot %d out of range for shape of size %d", i, s.size))
	}
}

// Members lists the members of s in slot order, skipping placeholders.
func (s *Shape) Members() []Member {
	out := make([]Member, 0, s.size)
	for i := 0; i < s.size; i++ {
		a := s.attrs.at(i)
		if a.IsEmpty() {
			continue
		}
		out = append(out, Member{Name: s.names.at(i), Slot: i, Attrs: a})
	}
	return out
}

// Find returns the slot of id.
func (s *Shape) Find(id ident.ID) (int, bool) {
	e := s.mustEngine("Find")
	idx, ok := s.hash.lookup(id, e.hashOf(id))
	if !ok || idx >= s.size {
		return 0, false
	}
	return idx, true
}

// FindName interns name and returns its slot.
func (s *Shape) FindName(name string) (int, bool) {
	e := s.mustEngine("FindName")
	return s.Find(e.idents.Intern(name))
}

// SealedCached and FrozenCached expose the memoized forms without computing
// them.
func (s *Shape) SealedCached() *Shape { return s.cached(s.sealed) }
func (s *Shape) FrozenCached() *Shape { return s.cached(s.frozen) }

func (s *Shape) cached(id ID) *Shape {
	if id == 0 || s.engine == nil {
		return nil
	}
	return s.engine.arena[id]
}

func (s *Shape) mustEngine(op string) *Engine {
	if s.engine == nil {
		panic(errors.Preconditionf(op, "shape %d has been torn down", s.id))
	}
	return s.engine
}

func (s *Shape) String() string {
	if s.engine == nil {
		return fmt.Sprintf("Shape#%d<destroyed>", s.id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Shape#%d{", s.id)
	for i, m := range s.Members() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%s", s.engine.idents.Name(m.Name), m.Attrs)
	}
	b.WriteByte('}')
	if s.prototype != NullObject {
		fmt.Fprintf(&b, " proto=%d", s.prototype)
	}
	if s.dispatch != NoDispatchTable {
		fmt.Fprintf(&b, " dt=%d", s.dispatch)
	}
	if !s.extensible {
		b.WriteString(" non-extensible")
	}
	return b.String()
}

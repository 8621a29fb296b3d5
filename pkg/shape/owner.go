package shape

import (
	"shapegraph/pkg/errors"
	"shapegraph/pkg/ident"
)

// SlotChange describes how an owner's slot storage must move when its
// shape is swapped: Delta > 0 inserts that many holes at Index, Delta < 0
// removes -Delta slots starting at Index, Delta == 0 leaves storage alone.
type SlotChange struct {
	Index int
	Delta int
}

// Owner is an object whose slot storage follows a shape.
type Owner interface {
	Shape() *Shape
	SetShape(s *Shape)
	ResizeSlots(old, next *Shape, change SlotChange)
}

func (e *Engine) swap(o Owner, old, next *Shape, change SlotChange) {
	if next == old {
		return
	}
	o.SetShape(next)
	o.ResizeSlots(old, next, change)
}

func (e *Engine) ownerShape(o Owner, op string) *Shape {
	e.mustOpen(op)
	s := o.Shape()
	if s.engine != e {
		panic(errors.Preconditionf(op, "owner's shape %d does not belong to this engine", s.id))
	}
	return s
}

// AddMemberTo adds name to o, or changes its attributes if o already has
// it, and returns the member's slot.
func (e *Engine) AddMemberTo(o Owner, name string, attrs Attributes) int {
	old := e.ownerShape(o, "AddMemberTo")
	id := e.idents.Intern(name)
	attrs.Resolve()
	if _, ok := old.Find(id); ok {
		return e.ChangeMemberOf(o, id, attrs)
	}
	next, idx := old.addMember(id, attrs)
	e.swap(o, old, next, SlotChange{Index: idx, Delta: next.size - old.size})
	return idx
}

// ChangeMemberOf changes the attributes of an existing member of o.
func (e *Engine) ChangeMemberOf(o Owner, id ident.ID, attrs Attributes) int {
	old := e.ownerShape(o, "ChangeMemberOf")
	next, idx := old.ChangeMember(id, attrs)
	change := SlotChange{Index: idx}
	switch {
	case next.size > old.size:
		change = SlotChange{Index: idx + 1, Delta: 1}
	case next.size < old.size:
		change = SlotChange{Index: idx + 1, Delta: -1}
	}
	e.swap(o, old, next, change)
	return idx
}

// RemoveMemberFrom removes id from o and compacts its slots.
func (e *Engine) RemoveMemberFrom(o Owner, id ident.ID) {
	old := e.ownerShape(o, "RemoveMemberFrom")
	next, idx := old.RemoveMember(id)
	e.swap(o, old, next, SlotChange{Index: idx, Delta: next.size - old.size})
}

// SetPrototypeOf installs proto on o. Setting the current prototype is a
// no-op at this level.
func (e *Engine) SetPrototypeOf(o Owner, proto ObjectRef) {
	old := e.ownerShape(o, "SetPrototypeOf")
	if old.prototype == proto {
		return
	}
	e.swap(o, old, old.ChangePrototype(proto), SlotChange{})
}

// SetDispatchTableOf installs dt on o.
func (e *Engine) SetDispatchTableOf(o Owner, dt DispatchTable) {
	old := e.ownerShape(o, "SetDispatchTableOf")
	if old.dispatch == dt {
		return
	}
	e.swap(o, old, old.ChangeDispatchTable(dt), SlotChange{})
}

func (e *Engine) PreventExtensions(o Owner) {
	old := e.ownerShape(o, "PreventExtensions")
	e.swap(o, old, old.NonExtensible(), SlotChange{})
}

func (e *Engine) Seal(o Owner) {
	old := e.ownerShape(o, "Seal")
	e.swap(o, old, old.Sealed(), SlotChange{})
}

func (e *Engine) Freeze(o Owner) {
	old := e.ownerShape(o, "Freeze")
	e.swap(o, old, old.Frozen(), SlotChange{})
}

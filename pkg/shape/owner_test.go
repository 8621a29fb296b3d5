package shape

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwner struct {
	shape   *Shape
	slots   []string
	changes []SlotChange
}

func (o *fakeOwner) Shape() *Shape      { return o.shape }
func (o *fakeOwner) SetShape(s *Shape) { o.shape = s }

func (o *fakeOwner) ResizeSlots(_, next *Shape, c SlotChange) {
	o.changes = append(o.changes, c)
	switch {
	case c.Delta > 0:
		o.slots = slices.Insert(o.slots, c.Index, make([]string, c.Delta)...)
	case c.Delta < 0:
		o.slots = slices.Delete(o.slots, c.Index, c.Index-c.Delta)
	}
	if len(o.slots) != next.Size() {
		panic("slot storage out of sync with shape")
	}
}

func (o *fakeOwner) put(e *Engine, name, value string) {
	slot := e.AddMemberTo(o, name, DefaultData)
	o.slots[slot] = value
}

func (o *fakeOwner) get(name string) string {
	slot, ok := o.shape.FindName(name)
	if !ok {
		return ""
	}
	return o.slots[slot]
}

func TestOwnerAddAndRemove(t *testing.T) {
	e := newTestEngine(t)
	o := &fakeOwner{shape: e.Root()}
	o.put(e, "x", "1")
	o.put(e, "y", "2")
	o.put(e, "z", "3")
	assert.Equal(t, []string{"1", "2", "3"}, o.slots)

	e.RemoveMemberFrom(o, e.Idents().Intern("y"))
	assert.Equal(t, []string{"1", "3"}, o.slots)
	assert.Equal(t, "3", o.get("z"))
	assert.Equal(t, "", o.get("y"))
	assert.Equal(t, SlotChange{Index: 1, Delta: -1}, o.changes[len(o.changes)-1])
}

func TestOwnerAccessorConversions(t *testing.T) {
	e := newTestEngine(t)
	o := &fakeOwner{shape: e.Root()}
	o.put(e, "x", "1")
	o.put(e, "y", "2")
	x := e.Idents().Intern("x")

	slot := e.ChangeMemberOf(o, x, NewAccessor(true, true))
	assert.Equal(t, 0, slot)
	assert.Equal(t, SlotChange{Index: 1, Delta: 1}, o.changes[len(o.changes)-1])
	assert.Equal(t, []string{"1", "", "2"}, o.slots)
	assert.Equal(t, "2", o.get("y"))

	e.ChangeMemberOf(o, x, DefaultData)
	assert.Equal(t, SlotChange{Index: 1, Delta: -1}, o.changes[len(o.changes)-1])
	assert.Equal(t, []string{"1", "2"}, o.slots)

	e.AddMemberTo(o, "g", NewAccessor(false, true))
	assert.Len(t, o.slots, 4)
	e.RemoveMemberFrom(o, e.Idents().Intern("g"))
	assert.Equal(t, SlotChange{Index: 2, Delta: -2}, o.changes[len(o.changes)-1])
	assert.Equal(t, []string{"1", "2"}, o.slots)
}

func TestOwnerRedefineExistingMember(t *testing.T) {
	e := newTestEngine(t)
	o := &fakeOwner{shape: e.Root()}
	o.put(e, "x", "1")
	before := len(o.changes)

	slot := e.AddMemberTo(o, "x", DefaultData)
	assert.Equal(t, 0, slot)
	assert.Len(t, o.changes, before, "unchanged shape does not resize")

	e.AddMemberTo(o, "x", NewData(false, true, true))
	assert.False(t, o.shape.AttributesAt(0).IsWritable())
	assert.Equal(t, []string{"1"}, o.slots)
}

func TestOwnerPrototypeAndIntegrity(t *testing.T) {
	e := newTestEngine(t)
	o := &fakeOwner{shape: e.Root()}
	o.put(e, "x", "1")

	e.SetPrototypeOf(o, 42)
	assert.Equal(t, ObjectRef(42), o.shape.Prototype())
	changes := len(o.changes)
	e.SetPrototypeOf(o, 42)
	assert.Len(t, o.changes, changes)

	e.SetDispatchTableOf(o, 2)
	assert.Equal(t, DispatchTable(2), o.shape.DispatchTable())
	assert.Equal(t, ObjectRef(42), o.shape.Prototype())
	assert.Equal(t, "1", o.get("x"))

	e.Seal(o)
	assert.False(t, o.shape.IsExtensible())
	assert.False(t, o.shape.AttributesAt(0).IsConfigurable())
	requirePrecondition(t, "AddMember", func() { e.AddMemberTo(o, "y", DefaultData) })

	e.Freeze(o)
	assert.False(t, o.shape.AttributesAt(0).IsWritable())
	assert.Equal(t, []string{"1"}, o.slots)
	for _, c := range o.changes[changes:] {
		assert.Zero(t, c.Delta)
	}
}

func TestOwnerPreventExtensions(t *testing.T) {
	e := newTestEngine(t)
	o := &fakeOwner{shape: e.Root()}
	e.PreventExtensions(o)
	require.False(t, o.shape.IsExtensible())
	assert.Equal(t, 0, o.shape.Size())
}

func TestOwnerFromOtherEngine(t *testing.T) {
	e := newTestEngine(t)
	other := newTestEngine(t)
	o := &fakeOwner{shape: other.Root()}
	requirePrecondition(t, "AddMemberTo", func() { e.AddMemberTo(o, "x", DefaultData) })
}

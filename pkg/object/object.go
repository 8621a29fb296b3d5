// Package object provides a minimal owning object on top of the shape
// engine: slot storage that follows its shape, the property operations a
// runtime would build on it, and a heap that resolves prototype references.
package object

import (
	"shapegraph/pkg/errors"
	"shapegraph/pkg/shape"
)

// Object is a plain object whose layout lives in a shared shape. Data
// members own one slot; accessors own two (getter, then setter).
type Object struct {
	ref   shape.ObjectRef
	heap  *Heap
	shape *shape.Shape
	slots []Value
}

func (o *Object) Ref() shape.ObjectRef { return o.ref }
func (o *Object) Heap() *Heap          { return o.heap }

// Shape implements shape.Owner.
func (o *Object) Shape() *shape.Shape { return o.shape }

// SetShape implements shape.Owner.
func (o *Object) SetShape(s *shape.Shape) { o.shape = s }

// ResizeSlots implements shape.Owner: it opens or closes the holes the new
// layout needs so that every slot index matches next.
func (o *Object) ResizeSlots(_, next *shape.Shape, change shape.SlotChange) {
	switch {
	case change.Delta > 0:
		holes := make([]Value, change.Delta)
		o.slots = append(o.slots[:change.Index], append(holes, o.slots[change.Index:]...)...)
	case change.Delta < 0:
		o.slots = append(o.slots[:change.Index], o.slots[change.Index-change.Delta:]...)
	}
	if len(o.slots) != next.Size() {
		panic(errors.Preconditionf("ResizeSlots", "object %d has %d slots, shape %d expects %d",
			o.ref, len(o.slots), next.ID(), next.Size()))
	}
}

func (o *Object) engine() *shape.Engine { return o.heap.engine }

// find returns the slot and attributes of an own member.
func (o *Object) find(name string) (int, shape.Attributes, bool) {
	slot, ok := o.shape.FindName(name)
	if !ok {
		return 0, 0, false
	}
	return slot, o.shape.AttributesAt(slot), true
}

// read returns the value of the member at slot, calling the getter of an
// accessor with receiver as this.
func (o *Object) read(receiver *Object, slot int, attrs shape.Attributes) Value {
	if !attrs.IsAccessor() {
		return o.slots[slot]
	}
	if get, ok := o.slots[slot].AsFunc(); ok {
		return get(receiver)
	}
	return Undefined
}

// GetOwn looks up a direct (own) property by name. Returns (value, true) if present.
func (o *Object) GetOwn(name string) (Value, bool) {
	slot, attrs, ok := o.find(name)
	if !ok {
		return Undefined, false
	}
	return o.read(o, slot, attrs), true
}

// GetCached is GetOwn through an inline cache keyed by shape.
func (o *Object) GetCached(ic *shape.InlineCache, name string) (Value, bool) {
	slot, ok := ic.Lookup(o.shape)
	if !ok {
		if slot, ok = o.shape.FindName(name); !ok {
			return Undefined, false
		}
		ic.Update(o.shape, slot)
	}
	return o.read(o, slot, o.shape.AttributesAt(slot)), true
}

// Get looks up a property by name, walking the prototype chain if necessary.
func (o *Object) Get(name string) (Value, bool) {
	for cur := o; cur != nil; {
		if slot, attrs, ok := cur.find(name); ok {
			return cur.read(o, slot, attrs), true
		}
		proto, ok := o.heap.Get(cur.shape.Prototype())
		if !ok {
			break
		}
		cur = proto
	}
	return Undefined, false
}

// HasOwn reports whether an own property with the given name exists.
func (o *Object) HasOwn(name string) bool {
	_, ok := o.shape.FindName(name)
	return ok
}

// Has reports whether a property with the given name exists (own or inherited).
func (o *Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// SetOwn assigns an own property. A new member gets writable, enumerable,
// configurable attributes. Assigning to a read-only member, or adding to a
// non-extensible object, is a TypeError.
func (o *Object) SetOwn(name string, v Value) error {
	if slot, attrs, ok := o.find(name); ok {
		if attrs.IsAccessor() {
			set, ok := o.slots[slot+1].AsFunc()
			if !ok {
				return errors.TypeErrorf("cannot set property %q which has only a getter", name)
			}
			set(o, v)
			return nil
		}
		if !attrs.IsWritable() {
			return errors.TypeErrorf("cannot assign to read only property %q", name)
		}
		o.slots[slot] = v
		return nil
	}
	if !o.shape.IsExtensible() {
		return errors.TypeErrorf("cannot add property %q, object is not extensible", name)
	}
	slot := o.engine().AddMemberTo(o, name, shape.DefaultData)
	o.slots[slot] = v
	return nil
}

// DefineOwnProperty defines or updates an own data property with explicit
// attributes. For existing properties, unspecified attributes (nil) keep
// their previous values; new properties default them to false.
func (o *Object) DefineOwnProperty(name string, value Value, writable, enumerable, configurable *bool) error {
	slot, cur, exists := o.find(name)
	if !exists {
		if !o.shape.IsExtensible() {
			return errors.TypeErrorf("cannot define property %q, object is not extensible", name)
		}
		attrs := shape.NewData(deref(writable), deref(enumerable), deref(configurable))
		slot = o.engine().AddMemberTo(o, name, attrs)
		o.slots[slot] = value
		return nil
	}

	if !cur.IsConfigurable() {
		if cur.IsAccessor() {
			return errors.TypeErrorf("cannot redefine property %q", name)
		}
		if configurable != nil && *configurable {
			return errors.TypeErrorf("cannot redefine property %q", name)
		}
		if enumerable != nil && *enumerable != cur.IsEnumerable() {
			return errors.TypeErrorf("cannot redefine property %q", name)
		}
		if !cur.IsWritable() && writable != nil && *writable {
			return errors.TypeErrorf("cannot redefine property %q", name)
		}
		if !cur.IsWritable() && !value.SameAs(o.slots[slot]) {
			return errors.TypeErrorf("cannot redefine property %q", name)
		}
	}

	next := shape.NewData(
		pick(writable, cur.IsData() && cur.IsWritable()),
		pick(enumerable, cur.IsEnumerable()),
		pick(configurable, cur.IsConfigurable()),
	)
	writeValue := cur.IsConfigurable() || cur.IsWritable()
	slot = o.engine().ChangeMemberOf(o, o.engine().Idents().Intern(name), next)
	if writeValue {
		o.slots[slot] = value
	}
	return nil
}

// DefineAccessorProperty defines or updates an accessor own property. A
// missing getter or setter of an existing accessor is kept.
func (o *Object) DefineAccessorProperty(name string, getter Func, hasGetter bool, setter Func, hasSetter bool, enumerable, configurable *bool) error {
	slot, cur, exists := o.find(name)
	if exists && !cur.IsConfigurable() {
		return errors.TypeErrorf("cannot redefine property %q", name)
	}
	if !exists && !o.shape.IsExtensible() {
		return errors.TypeErrorf("cannot define property %q, object is not extensible", name)
	}

	var get, set Value
	if exists && cur.IsAccessor() {
		get, set = o.slots[slot], o.slots[slot+1]
	}
	if hasGetter {
		get = FuncValue(getter)
	}
	if hasSetter {
		set = FuncValue(setter)
	}

	var attrs shape.Attributes
	if exists {
		attrs = shape.NewAccessor(pick(enumerable, cur.IsEnumerable()), pick(configurable, cur.IsConfigurable()))
	} else {
		attrs = shape.NewAccessor(deref(enumerable), deref(configurable))
	}
	slot = o.engine().AddMemberTo(o, name, attrs)
	o.slots[slot] = get
	o.slots[slot+1] = set
	return nil
}

// GetOwnAccessor returns the accessor pair of an own property.
// Returns (get, set, enumerable, configurable, exists).
func (o *Object) GetOwnAccessor(name string) (Value, Value, bool, bool, bool) {
	slot, attrs, ok := o.find(name)
	if !ok || !attrs.IsAccessor() {
		return Undefined, Undefined, false, false, false
	}
	return o.slots[slot], o.slots[slot+1], attrs.IsEnumerable(), attrs.IsConfigurable(), true
}

// Descriptor is the attribute view of an own property.
type Descriptor struct {
	Value        Value
	Accessor     bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// GetOwnDescriptor returns the descriptor of an own property. The value of
// an accessor is left Undefined.
func (o *Object) GetOwnDescriptor(name string) (Descriptor, bool) {
	slot, attrs, ok := o.find(name)
	if !ok {
		return Descriptor{}, false
	}
	d := Descriptor{
		Accessor:     attrs.IsAccessor(),
		Writable:     attrs.IsWritable(),
		Enumerable:   attrs.IsEnumerable(),
		Configurable: attrs.IsConfigurable(),
	}
	if !d.Accessor {
		d.Value = o.slots[slot]
	}
	return d, true
}

// DeleteOwn removes an own property. Deleting a missing property succeeds;
// deleting a non-configurable one is a TypeError.
func (o *Object) DeleteOwn(name string) error {
	_, attrs, ok := o.find(name)
	if !ok {
		return nil
	}
	if !attrs.IsConfigurable() {
		return errors.TypeErrorf("cannot delete property %q", name)
	}
	o.engine().RemoveMemberFrom(o, o.engine().Idents().Intern(name))
	return nil
}

// OwnKeys returns the enumerable own property names in slot order.
func (o *Object) OwnKeys() []string {
	return o.keys(true)
}

// OwnPropertyNames returns all own property names in slot order.
func (o *Object) OwnPropertyNames() []string {
	return o.keys(false)
}

func (o *Object) keys(enumerableOnly bool) []string {
	members := o.shape.Members()
	idents := o.engine().Idents()
	keys := make([]string, 0, len(members))
	for _, m := range members {
		if enumerableOnly && !m.Attrs.IsEnumerable() {
			continue
		}
		keys = append(keys, idents.Name(m.Name))
	}
	return keys
}

// Prototype returns the prototype object, nil when it is null.
func (o *Object) Prototype() *Object {
	p, _ := o.heap.Get(o.shape.Prototype())
	return p
}

// SetPrototype installs proto (nil for null). It fails on a non-extensible
// object and when proto would close a prototype cycle.
func (o *Object) SetPrototype(proto *Object) error {
	ref := shape.NullObject
	if proto != nil {
		if proto.heap != o.heap {
			return errors.TypeErrorf("prototype belongs to another heap")
		}
		ref = proto.ref
	}
	if ref == o.shape.Prototype() {
		return nil
	}
	if !o.shape.IsExtensible() {
		return errors.TypeErrorf("object %d is not extensible", o.ref)
	}
	for p := proto; p != nil; p = p.Prototype() {
		if p == o {
			return errors.TypeErrorf("cyclic prototype chain")
		}
	}
	o.engine().SetPrototypeOf(o, ref)
	return nil
}

// SetDispatchTable moves o to another object family.
func (o *Object) SetDispatchTable(dt shape.DispatchTable) {
	o.engine().SetDispatchTableOf(o, dt)
}

func (o *Object) IsExtensible() bool { return o.shape.IsExtensible() }

func (o *Object) PreventExtensions() { o.engine().PreventExtensions(o) }
func (o *Object) Seal()              { o.engine().Seal(o) }
func (o *Object) Freeze()            { o.engine().Freeze(o) }

// IsSealed reports whether o is non-extensible with only non-configurable members.
func (o *Object) IsSealed() bool {
	if o.shape.IsExtensible() {
		return false
	}
	for _, m := range o.shape.Members() {
		if m.Attrs.IsConfigurable() {
			return false
		}
	}
	return true
}

// IsFrozen is IsSealed with every data member also read-only.
func (o *Object) IsFrozen() bool {
	if !o.IsSealed() {
		return false
	}
	for _, m := range o.shape.Members() {
		if m.Attrs.IsData() && m.Attrs.IsWritable() {
			return false
		}
	}
	return true
}

func deref(b *bool) bool { return b != nil && *b }

func pick(b *bool, fallback bool) bool {
	if b != nil {
		return *b
	}
	return fallback
}

var _ shape.Owner = (*Object)(nil)

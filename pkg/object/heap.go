package object

import (
	"fmt"

	"shapegraph/pkg/errors"
	"shapegraph/pkg/shape"
)

// Heap is the object registry of one runtime. An object's ObjectRef is its
// index in the heap; index 0 is the null reference. The heap also carries
// the mark bits a collector sets while tracing, which is how the shape
// engine reports the prototypes it keeps alive.
type Heap struct {
	engine  *shape.Engine
	objects []*Object // objects[0] is always nil
	marks   []bool
}

// NewHeap creates an empty heap allocating shapes from engine.
func NewHeap(engine *shape.Engine, initialCapacity int) *Heap {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	h := &Heap{
		engine:  engine,
		objects: make([]*Object, 1, initialCapacity+1),
		marks:   make([]bool, 1, initialCapacity+1),
	}
	return h
}

func (h *Heap) Engine() *shape.Engine { return h.engine }

// New allocates an object with prototype proto and dispatch table dt.
func (h *Heap) New(proto shape.ObjectRef, dt shape.DispatchTable) (*Object, error) {
	if proto != shape.NullObject {
		if _, ok := h.Get(proto); !ok {
			return nil, errors.TypeErrorf("prototype %d is not an object of this heap", proto)
		}
	}
	s := h.engine.EmptyShape(dt)
	if proto != s.Prototype() {
		s = s.ChangePrototype(proto)
	}
	o := &Object{
		ref:   shape.ObjectRef(len(h.objects)),
		heap:  h,
		shape: s,
		slots: make([]Value, 0, 4),
	}
	h.objects = append(h.objects, o)
	h.marks = append(h.marks, false)
	return o, nil
}

// Get retrieves the object behind ref.
func (h *Heap) Get(ref shape.ObjectRef) (*Object, bool) {
	if ref == shape.NullObject || uint64(ref) >= uint64(len(h.objects)) {
		return nil, false
	}
	return h.objects[ref], true
}

// MustGet is Get for references the caller knows are valid.
func (h *Heap) MustGet(ref shape.ObjectRef) *Object {
	o, ok := h.Get(ref)
	if !ok {
		panic(fmt.Sprintf("object heap: dangling reference %d", ref))
	}
	return o
}

// Size returns the number of allocated objects.
func (h *Heap) Size() int {
	return len(h.objects) - 1
}

// Objects returns every allocated object in allocation order.
func (h *Heap) Objects() []*Object {
	result := make([]*Object, len(h.objects)-1)
	copy(result, h.objects[1:])
	return result
}

// MarkObject sets the mark bit of ref. Unknown references are ignored.
func (h *Heap) MarkObject(ref shape.ObjectRef) {
	if _, ok := h.Get(ref); ok {
		h.marks[ref] = true
	}
}

// Marked reports the mark bit of ref.
func (h *Heap) Marked(ref shape.ObjectRef) bool {
	if _, ok := h.Get(ref); !ok {
		return false
	}
	return h.marks[ref]
}

// ResetMarks clears every mark bit.
func (h *Heap) ResetMarks() {
	clear(h.marks)
}

// MarkedRefs returns the marked references in ascending order.
func (h *Heap) MarkedRefs() []shape.ObjectRef {
	var out []shape.ObjectRef
	for i, m := range h.marks {
		if m {
			out = append(out, shape.ObjectRef(i))
		}
	}
	return out
}

var _ shape.Marker = (*Heap)(nil)

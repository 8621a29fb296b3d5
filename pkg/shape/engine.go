package shape

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"shapegraph/pkg/config"
	"shapegraph/pkg/errors"
	"shapegraph/pkg/ident"
)

// Engine owns one shape graph. It is created with a runtime instance and
// torn down with it; nothing in it is process-global.
type Engine struct {
	id     uuid.UUID
	cfg    config.Config
	idents *ident.Table
	logger *slog.Logger

	arena  []*Shape // index 0 reserved
	hashes []uint32 // ident.ID -> hash, copied from idents on first use
	root   *Shape   // no dispatch table, no prototype

	live   int
	edges  int
	stats  Stats
	closed bool
}

// Stats are cumulative counters of one engine.
type Stats struct {
	Created     int
	Destroyed   int
	Hits        int
	Misses      int
	Rehashes    int
	Live        int
	Transitions int
}

// NewEngine creates an engine with its canonical empty root shape. A nil
// idents gets a private table; a nil logger discards output.
func NewEngine(cfg config.Config, idents *ident.Table, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("shape engine config: %w", err)
	}
	if idents == nil {
		idents = ident.NewTable()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		id:     uuid.New(),
		cfg:    cfg,
		idents: idents,
		arena:  make([]*Shape, 1, 64),
	}
	e.logger = logger.With("runtime", e.id.String())

	root := &Shape{
		engine:     e,
		hash:       newPropertyHash(cfg.InitialHashBits),
		extensible: true,
		root:       true,
	}
	e.register(root, "root")
	e.root = root
	return e, nil
}

func (e *Engine) RuntimeID() uuid.UUID  { return e.id }
func (e *Engine) Idents() *ident.Table  { return e.idents }
func (e *Engine) Config() config.Config { return e.cfg }

// Root returns the empty shape without dispatch table or prototype.
func (e *Engine) Root() *Shape {
	e.mustOpen("Root")
	return e.root
}

// EmptyShape returns the canonical empty shape for dt.
func (e *Engine) EmptyShape(dt DispatchTable) *Shape {
	e.mustOpen("EmptyShape")
	if dt == NoDispatchTable {
		return e.root
	}
	return e.root.ChangeDispatchTable(dt)
}

// Shape resolves an arena handle; nil if unknown or torn down.
func (e *Engine) Shape(id ID) *Shape {
	if int(id) <= 0 || int(id) >= len(e.arena) {
		return nil
	}
	return e.arena[id]
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Live = e.live
	s.Transitions = e.edges
	return s
}

func (e *Engine) mustOpen(op string) {
	if e.closed {
		panic(errors.Preconditionf(op, "engine %s is closed", e.id))
	}
}

func (e *Engine) register(s *Shape, kind string) {
	s.id = ID(len(e.arena))
	e.arena = append(e.arena, s)
	e.live++
	e.stats.Created++
	shapesCreated.WithLabelValues(kind).Inc()
	liveShapes.Inc()
	e.logger.Debug("shape created", "shape", s.id, "kind", kind, "size", s.size)
}

// hashOf returns the hash of id from the engine's copy of the table's hashes.
func (e *Engine) hashOf(id ident.ID) uint32 {
	if int(id) < len(e.hashes) {
		if h := e.hashes[id]; h != 0 {
			return h
		}
	} else {
		e.hashes = append(e.hashes, make([]uint32, int(id)+1-len(e.hashes))...)
	}
	h := e.idents.Hash(id)
	e.hashes[id] = h
	return h
}

func (e *Engine) resolve(id ID, op string) *Shape {
	s := e.arena[id]
	if s == nil {
		panic(errors.Preconditionf(op, "transition to torn-down shape %d", id))
	}
	return s
}

func (e *Engine) noteLookup(kind TransitionKind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
		e.stats.Hits++
	} else {
		e.stats.Misses++
	}
	transitionLookups.WithLabelValues(kind.String(), result).Inc()
}

func (e *Engine) noteRehash(r rehashReason) {
	if r == rehashNone {
		return
	}
	e.stats.Rehashes++
	hashRehashes.WithLabelValues(r.String()).Inc()
}

// clone copies src's layout into a new, unpublished shape sharing its
// hash table and property lists.
func (e *Engine) clone(src *Shape, kind string) *Shape {
	n := &Shape{
		engine:     e,
		dispatch:   src.dispatch,
		prototype:  src.prototype,
		hash:       src.hash.share(),
		names:      src.names.share(),
		attrs:      src.attrs.share(),
		size:       src.size,
		extensible: src.extensible,
	}
	e.register(n, kind)
	return n
}

// AddMember returns the shape with id appended and the slot assigned to it.
// If id is already a member this is ChangeMember.
func (s *Shape) AddMember(id ident.ID, attrs Attributes) (*Shape, int) {
	s.mustEngine("AddMember")
	attrs.Resolve()
	if _, ok := s.Find(id); ok {
		return s.ChangeMember(id, attrs)
	}
	return s.addMember(id, attrs)
}

// addMember expects resolved attrs and an id that is not yet a member.
func (s *Shape) addMember(id ident.ID, attrs Attributes) (*Shape, int) {
	e := s.engine
	if id.IsNull() {
		panic(errors.Preconditionf("AddMember", "null identifier"))
	}
	if !s.extensible {
		panic(errors.Preconditionf("AddMember", "shape %d is not extensible, cannot add %q", s.id, e.idents.Name(id)))
	}
	key := memberKey(id, attrs)
	if next, ok := s.lookupTransition(key); ok {
		return next, s.size
	}

	n := e.clone(s, "add")
	e.noteRehash(n.hash.insert(id, e.hashOf(id), n.size, n.size))
	n.names.add(n.size, id)
	n.attrs.add(n.size, attrs)
	n.size++
	if attrs.IsAccessor() {
		// getter and setter occupy adjacent slots
		e.noteRehash(n.hash.pad(n.size))
		n.names.add(n.size, ident.Null)
		n.attrs.add(n.size, 0)
		n.size++
	}
	return s.publish(key, n), s.size
}

// ChangeMember returns the shape in which id carries attrs and id's slot.
// The slot is unchanged; when the member turns into or out of an accessor
// the shape grows or shrinks by one slot right after it.
func (s *Shape) ChangeMember(id ident.ID, attrs Attributes) (*Shape, int) {
	e := s.mustEngine("ChangeMember")
	attrs.Resolve()
	idx, ok := s.Find(id)
	if !ok {
		panic(errors.Preconditionf("ChangeMember", "%q is not a member of shape %d", e.idents.Name(id), s.id))
	}
	old := s.attrs.at(idx)
	if attrs == old {
		return s, idx
	}

	key := memberKey(id, attrs)
	if next, ok := s.lookupTransition(key); ok {
		return next, idx
	}

	var n *Shape
	if e.cfg.InPlaceAttributeChange && old.IsAccessor() == attrs.IsAccessor() {
		n = e.clone(s, "change")
		n.attrs.set(idx, n.size, attrs)
	} else {
		n = s.rebuild(s.dispatch, s.prototype, func(slot int, a Attributes) (Attributes, bool) {
			if slot == idx {
				return attrs, true
			}
			return a, true
		})
	}
	return s.publish(key, n), idx
}

// RemoveMember returns the shape without id and the slot id occupied.
// Later members move down by the removed width.
func (s *Shape) RemoveMember(id ident.ID) (*Shape, int) {
	e := s.mustEngine("RemoveMember")
	idx, ok := s.Find(id)
	if !ok {
		panic(errors.Preconditionf("RemoveMember", "%q is not a member of shape %d", e.idents.Name(id), s.id))
	}
	key := transitionKey{id: id, kind: KindRemoveMember}
	if next, ok := s.lookupTransition(key); ok {
		return next, idx
	}
	n := s.rebuild(s.dispatch, s.prototype, func(slot int, a Attributes) (Attributes, bool) {
		return a, slot != idx
	})
	return s.publish(key, n), idx
}

// ChangePrototype returns the shape with proto as prototype. proto must
// differ from the current one.
func (s *Shape) ChangePrototype(proto ObjectRef) *Shape {
	e := s.mustEngine("ChangePrototype")
	if proto == s.prototype {
		panic(errors.Preconditionf("ChangePrototype", "shape %d already has prototype %d", s.id, proto))
	}
	key := transitionKey{kind: KindChangePrototype, tag: uint64(proto)}
	if next, ok := s.lookupTransition(key); ok {
		return next
	}

	var n *Shape
	if s.root {
		n = e.clone(s, "prototype")
		n.prototype = proto
	} else {
		// every prototype enters the graph right below a root
		n = s.rebuild(s.dispatch, proto, nil)
	}
	return s.publish(key, n)
}

// ChangeDispatchTable returns the shape with dt as dispatch table. dt must
// differ from the current one.
func (s *Shape) ChangeDispatchTable(dt DispatchTable) *Shape {
	e := s.mustEngine("ChangeDispatchTable")
	if dt == s.dispatch {
		panic(errors.Preconditionf("ChangeDispatchTable", "shape %d already has dispatch table %d", s.id, dt))
	}
	key := transitionKey{kind: KindChangeDispatchTable, tag: uint64(dt)}
	if next, ok := s.lookupTransition(key); ok {
		return next
	}

	var n *Shape
	if s == e.root {
		n = e.clone(s, "dispatch_table")
		n.dispatch = dt
		n.root = true
	} else {
		n = s.rebuild(dt, s.prototype, nil)
	}
	return s.publish(key, n)
}

// NonExtensible returns the shape that refuses new members.
func (s *Shape) NonExtensible() *Shape {
	e := s.mustEngine("NonExtensible")
	if !s.extensible {
		return s
	}
	key := transitionKey{kind: KindMakeNonExtensible}
	if next, ok := s.lookupTransition(key); ok {
		return next
	}
	n := e.clone(s, "non_extensible")
	n.extensible = false
	return s.publish(key, n)
}

// Sealed returns s with every member non-configurable, non-extensible.
func (s *Shape) Sealed() *Shape {
	e := s.mustEngine("Sealed")
	if s.sealed != 0 {
		return e.resolve(s.sealed, "Sealed")
	}
	n := s.rebuild(s.dispatch, s.prototype, func(_ int, a Attributes) (Attributes, bool) {
		a.SetConfigurable(false)
		return a, true
	}).NonExtensible()
	s.sealed = n.id
	n.sealed = n.id
	return n
}

// Frozen returns s with every member non-writable and non-configurable,
// non-extensible. A frozen shape is its own sealed form.
func (s *Shape) Frozen() *Shape {
	e := s.mustEngine("Frozen")
	if s.frozen != 0 {
		return e.resolve(s.frozen, "Frozen")
	}
	n := s.propertiesFrozen().NonExtensible()
	s.frozen = n.id
	n.frozen = n.id
	n.sealed = n.id
	return n
}

func (s *Shape) propertiesFrozen() *Shape {
	return s.rebuild(s.dispatch, s.prototype, func(_ int, a Attributes) (Attributes, bool) {
		a.SetWritable(false)
		a.SetConfigurable(false)
		return a, true
	})
}

// rebuild replays the members of s in slot order onto the canonical empty
// shape for dt with prototype proto. edit may rewrite a member's attributes
// or drop it. The result keeps s's extensibility.
func (s *Shape) rebuild(dt DispatchTable, proto ObjectRef, edit func(slot int, a Attributes) (Attributes, bool)) *Shape {
	e := s.engine
	n := e.EmptyShape(dt)
	if proto != n.prototype {
		n = n.ChangePrototype(proto)
	}
	for i := 0; i < s.size; i++ {
		a := s.attrs.at(i)
		if a.IsEmpty() {
			continue
		}
		if edit != nil {
			var keep bool
			if a, keep = edit(i, a); !keep {
				continue
			}
			a.Resolve()
		}
		n, _ = n.addMember(s.names.at(i), a)
	}
	if !s.extensible {
		n = n.NonExtensible()
	}
	return n
}

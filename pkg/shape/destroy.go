package shape

// Marker is the collector primitive the engine reports prototypes to.
type Marker interface {
	MarkObject(ref ObjectRef)
}

// Destroy tears down s and every shape reachable from it through
// transitions and sealed/frozen links, each exactly once, and returns how
// many shapes were finalized. The caller guarantees that no live shape
// still leads into the torn-down part of the graph.
func (e *Engine) Destroy(s *Shape) int {
	if s == nil || s.engine != e {
		return 0
	}
	stack := make([]ID, 0, 64)
	stack = append(stack, s.id)
	n := 0
	push := func(id ID) {
		if id != 0 && e.arena[id] != nil {
			stack = append(stack, id)
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := e.arena[id]
		if next == nil || next.engine == nil {
			continue
		}
		next.engine = nil
		next.hash.release()
		next.names.release()
		next.attrs.release()
		push(next.sealed)
		push(next.frozen)
		for _, t := range next.transitions {
			push(t.to)
		}
		e.edges -= len(next.transitions)
		next.transitions = nil
		e.arena[id] = nil
		n++
	}

	e.live -= n
	e.stats.Destroyed += n
	shapesDestroyed.Add(float64(n))
	liveShapes.Sub(float64(n))
	return n
}

// Close tears down the whole graph. The engine cannot be used afterwards.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	n := e.Destroy(e.root)
	e.root = nil
	e.closed = true
	e.logger.Info("shape graph torn down", "destroyed", n, "leaked", e.live)
}

// MarkRoots reports every prototype held by the graph to m.
//
// Prototypes only enter the graph on prototype edges leaving a root: the
// engine root itself, or a per-dispatch-table root one dispatch-table edge
// below it. Every other shape copies its prototype from one of those, so two
// levels suffice. FullMarkTraversal walks everything instead.
func (e *Engine) MarkRoots(m Marker) {
	e.mustOpen("MarkRoots")
	if e.cfg.FullMarkTraversal {
		e.markAll(m)
		return
	}
	for _, t := range e.root.transitions {
		switch t.key.kind {
		case KindChangeDispatchTable:
			dt := e.resolve(t.to, "MarkRoots")
			for _, t2 := range dt.transitions {
				if t2.key.kind == KindChangePrototype {
					markPrototype(m, e.resolve(t2.to, "MarkRoots"))
				}
			}
		case KindChangePrototype:
			markPrototype(m, e.resolve(t.to, "MarkRoots"))
		}
	}
}

func markPrototype(m Marker, s *Shape) {
	if s.prototype != NullObject {
		m.MarkObject(s.prototype)
	}
}

func (e *Engine) markAll(m Marker) {
	seen := make(map[ObjectRef]struct{})
	e.Walk(func(s *Shape) bool {
		if p := s.prototype; p != NullObject {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				m.MarkObject(p)
			}
		}
		return true
	})
}

// Walk visits every shape reachable from the root once, depth first.
// Returning false from fn stops the walk.
func (e *Engine) Walk(fn func(*Shape) bool) {
	e.mustOpen("Walk")
	visited := make(map[ID]struct{}, e.live)
	stack := []ID{e.root.id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		s := e.resolve(id, "Walk")
		if !fn(s) {
			return
		}
		for i := len(s.transitions) - 1; i >= 0; i-- {
			stack = append(stack, s.transitions[i].to)
		}
		if s.frozen != 0 {
			stack = append(stack, s.frozen)
		}
		if s.sealed != 0 {
			stack = append(stack, s.sealed)
		}
	}
}

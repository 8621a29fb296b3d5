package script

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"shapegraph/pkg/errors"
	"shapegraph/pkg/object"
	"shapegraph/pkg/shape"
)

// Result is the state a script left behind.
type Result struct {
	Name    string
	Objects []Named
	Steps   int
	Stats   shape.Stats
}

// Named pairs a declared object with its script name.
type Named struct {
	Name   string
	Object *object.Object
}

// Run executes doc against heap, whose engine must be open. A failing step
// stops the run; the error carries the step location. Operations that
// would violate an engine precondition come back as
// *errors.PreconditionError instead of panicking.
func Run(ctx context.Context, heap *object.Heap, doc *Document) (*Result, error) {
	r := &runner{heap: heap, byName: make(map[string]*object.Object, len(doc.Objects))}
	res := &Result{Name: doc.Name}
	defer func() { res.Stats = heap.Engine().Stats() }()

	for _, decl := range doc.Objects {
		proto := shape.NullObject
		if decl.Proto != "" {
			proto = r.byName[decl.Proto].Ref()
		}
		o, err := heap.New(proto, shape.DispatchTable(decl.DispatchTable))
		if err != nil {
			return res, fmt.Errorf("allocating %q: %w", decl.Name, err)
		}
		r.byName[decl.Name] = o
		res.Objects = append(res.Objects, Named{Name: decl.Name, Object: o})
	}

	for i, step := range doc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		loc := errors.Location{Script: doc.Name, Step: i + 1}
		err := r.step(step)
		res.Steps++
		if err = r.check(step, err); err != nil {
			return res, locate(err, loc)
		}
	}
	return res, nil
}

type runner struct {
	heap   *object.Heap
	byName map[string]*object.Object
}

// step applies one operation, turning engine precondition panics into
// errors.
func (r *runner) step(s Step) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			perr, ok := rec.(*errors.PreconditionError)
			if !ok {
				panic(rec)
			}
			err = perr
		}
	}()

	o := r.byName[s.Object]
	engine := r.heap.Engine()
	attrs, _ := ParseAttributes(s.Attrs)
	value := object.ValueOf(s.Value)

	switch s.Op {
	case OpAdd:
		return o.SetOwn(s.Name, value)
	case OpDefine:
		w, e, c := attrs.IsWritable(), attrs.IsEnumerable(), attrs.IsConfigurable()
		return o.DefineOwnProperty(s.Name, value, &w, &e, &c)
	case OpAccessor:
		e, c := attrs.IsEnumerable(), attrs.IsConfigurable()
		getter := func(*object.Object, ...object.Value) object.Value { return value }
		return o.DefineAccessorProperty(s.Name, getter, true, nil, false, &e, &c)
	case OpChange:
		// shape level, bypassing the object's own checks
		engine.ChangeMemberOf(o, engine.Idents().Intern(s.Name), attrs)
	case OpRemove:
		return o.DeleteOwn(s.Name)
	case OpProto:
		var proto *object.Object
		if s.Proto != "" {
			proto = r.byName[s.Proto]
		}
		return o.SetPrototype(proto)
	case OpDispatch:
		o.SetDispatchTable(shape.DispatchTable(s.DispatchTable))
	case OpPreventExtensions:
		o.PreventExtensions()
	case OpSeal:
		o.Seal()
	case OpFreeze:
		o.Freeze()
	}
	return nil
}

// check applies a step's expectations to its outcome.
func (r *runner) check(s Step, stepErr error) error {
	want := s.Expect
	if want == nil {
		return stepErr
	}
	if want.Error != "" {
		if stepErr == nil {
			return fmt.Errorf("expected error containing %q, step succeeded", want.Error)
		}
		if !strings.Contains(stepErr.Error(), want.Error) {
			return fmt.Errorf("expected error containing %q: %w", want.Error, stepErr)
		}
		return nil
	}
	if stepErr != nil {
		return stepErr
	}

	o := r.byName[s.Object]
	var problems []string
	if want.Members != nil {
		if got := o.OwnPropertyNames(); !slices.Equal(got, want.Members) {
			problems = append(problems, fmt.Sprintf("members %v, want %v", got, want.Members))
		}
	}
	if want.Size != nil && o.Shape().Size() != *want.Size {
		problems = append(problems, fmt.Sprintf("size %d, want %d", o.Shape().Size(), *want.Size))
	}
	if want.Extensible != nil && o.IsExtensible() != *want.Extensible {
		problems = append(problems, fmt.Sprintf("extensible %t, want %t", o.IsExtensible(), *want.Extensible))
	}
	if want.Frozen != nil && o.IsFrozen() != *want.Frozen {
		problems = append(problems, fmt.Sprintf("frozen %t, want %t", o.IsFrozen(), *want.Frozen))
	}
	if len(problems) > 0 {
		return fmt.Errorf("expectation failed for %q: %s", s.Object, strings.Join(problems, "; "))
	}
	return nil
}

// locate stamps loc on errors that carry one and wraps the rest.
func locate(err error, loc errors.Location) error {
	var (
		perr *errors.PreconditionError
		terr *errors.TypeError
	)
	switch {
	case stderrors.As(err, &perr) && perr.Location.IsZero():
		perr.At(loc)
		return err
	case stderrors.As(err, &terr) && terr.Location.IsZero():
		terr.At(loc)
		return err
	default:
		return &errors.ScriptError{Location: loc, Msg: err.Error(), Cause: err}
	}
}

// Dump writes the final shape of every object. keep filters the member
// names printed; nil prints all.
func (r *Result) Dump(w io.Writer, keep func(name string) bool) {
	fmt.Fprintf(w, "== %s (%d steps)\n", r.Name, r.Steps)
	for _, n := range r.Objects {
		s := n.Object.Shape()
		fmt.Fprintf(w, "%s: shape %d size %d", n.Name, s.ID(), s.Size())
		if p := s.Prototype(); p != shape.NullObject {
			fmt.Fprintf(w, " proto=%s", r.nameOf(p))
		}
		if dt := s.DispatchTable(); dt != shape.NoDispatchTable {
			fmt.Fprintf(w, " dt=%d", dt)
		}
		if !s.IsExtensible() {
			fmt.Fprint(w, " non-extensible")
		}
		fmt.Fprintln(w)
		idents := s.Engine().Idents()
		for _, m := range s.Members() {
			name := idents.Name(m.Name)
			if keep != nil && !keep(name) {
				continue
			}
			fmt.Fprintf(w, "  [%d] %s %s\n", m.Slot, name, m.Attrs)
		}
	}
	fmt.Fprintf(w, "shapes: live=%d created=%d transitions=%d hits=%d misses=%d rehashes=%d\n",
		r.Stats.Live, r.Stats.Created, r.Stats.Transitions, r.Stats.Hits, r.Stats.Misses, r.Stats.Rehashes)
}

func (r *Result) nameOf(ref shape.ObjectRef) string {
	for _, n := range r.Objects {
		if n.Object.Ref() == ref {
			return n.Name
		}
	}
	return fmt.Sprintf("#%d", ref)
}

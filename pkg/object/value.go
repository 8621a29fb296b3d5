package object

import (
	"fmt"
	"math"
	"reflect"
)

// Value is the payload of one object slot. The zero Value is Undefined.
type Value struct {
	v any
}

// Undefined is the value of a slot that was never written.
var Undefined = Value{}

// Func is a callable stored in an accessor slot. this is the receiver the
// property was read from, which may be an object inheriting the accessor.
type Func func(this *Object, args ...Value) Value

// ValueOf wraps a Go value.
func ValueOf(v any) Value { return Value{v: v} }

// FuncValue wraps f as a Value.
func FuncValue(f Func) Value { return Value{v: f} }

func (v Value) IsUndefined() bool { return v.v == nil }

// SameAs reports whether v and w hold the same value. NaN is the same as
// NaN; values of incomparable types, such as functions, are never the same
// unless both are Undefined.
func (v Value) SameAs(w Value) bool {
	if v.v == nil || w.v == nil {
		return v.v == nil && w.v == nil
	}
	if f, ok := v.v.(float64); ok {
		if g, ok := w.v.(float64); ok && math.IsNaN(f) && math.IsNaN(g) {
			return true
		}
	}
	a, b := reflect.ValueOf(v.v), reflect.ValueOf(w.v)
	if a.Type() != b.Type() || !a.Comparable() || !b.Comparable() {
		return false
	}
	return v.v == w.v
}

// Interface returns the wrapped Go value, nil for Undefined.
func (v Value) Interface() any { return v.v }

// AsFunc returns the callable held by v.
func (v Value) AsFunc() (Func, bool) {
	f, ok := v.v.(Func)
	return f, ok && f != nil
}

func (v Value) String() string {
	switch x := v.v.(type) {
	case nil:
		return "undefined"
	case Func:
		return "[function]"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprint(x)
	}
}

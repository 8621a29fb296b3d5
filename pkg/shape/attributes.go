package shape

import "strings"

// Attributes describes one member: data or accessor, plus the writable,
// enumerable and configurable bits. The upper nibble records which of those
// were explicitly given; the zero value is the empty sentinel used for the
// placeholder slot of an accessor pair.
type Attributes uint8

const (
	AttrAccessor     Attributes = 1 << 0
	AttrWritable     Attributes = 1 << 1
	AttrEnumerable   Attributes = 1 << 2
	AttrConfigurable Attributes = 1 << 3

	typeSet         Attributes = 1 << 4
	writableSet     Attributes = 1 << 5
	enumerableSet   Attributes = 1 << 6
	configurableSet Attributes = 1 << 7

	flagMask Attributes = 0x0f
	allSet   Attributes = typeSet | writableSet | enumerableSet | configurableSet
)

// DefaultData is what plain assignment produces: writable, enumerable,
// configurable.
const DefaultData = AttrWritable | AttrEnumerable | AttrConfigurable | allSet

// NewData builds resolved data attributes.
func NewData(writable, enumerable, configurable bool) Attributes {
	a := allSet
	if writable {
		a |= AttrWritable
	}
	if enumerable {
		a |= AttrEnumerable
	}
	if configurable {
		a |= AttrConfigurable
	}
	return a
}

// NewAccessor builds resolved accessor attributes.
func NewAccessor(enumerable, configurable bool) Attributes {
	a := AttrAccessor | allSet
	if enumerable {
		a |= AttrEnumerable
	}
	if configurable {
		a |= AttrConfigurable
	}
	a.Resolve()
	return a
}

func (a Attributes) IsEmpty() bool        { return a == 0 }
func (a Attributes) IsAccessor() bool     { return a&AttrAccessor != 0 }
func (a Attributes) IsData() bool         { return !a.IsEmpty() && !a.IsAccessor() }
func (a Attributes) IsWritable() bool     { return a&AttrWritable != 0 }
func (a Attributes) IsEnumerable() bool   { return a&AttrEnumerable != 0 }
func (a Attributes) IsConfigurable() bool { return a&AttrConfigurable != 0 }

func (a *Attributes) SetWritable(b bool)     { a.set(AttrWritable, writableSet, b) }
func (a *Attributes) SetEnumerable(b bool)   { a.set(AttrEnumerable, enumerableSet, b) }
func (a *Attributes) SetConfigurable(b bool) { a.set(AttrConfigurable, configurableSet, b) }

func (a *Attributes) set(bit, setBit Attributes, b bool) {
	if b {
		*a |= bit
	} else {
		*a &^= bit
	}
	*a |= setBit
}

// Resolve normalizes a before it is stored in a shape: every attribute
// counts as explicitly set, and accessors never carry a writable bit.
func (a *Attributes) Resolve() {
	*a |= allSet
	if a.IsAccessor() {
		*a &^= AttrWritable | writableSet
	}
}

// Flags returns the four attribute bits used as the transition key.
func (a Attributes) Flags() uint8 { return uint8(a & flagMask) }

func (a Attributes) String() string {
	if a.IsEmpty() {
		return "<empty>"
	}
	var b strings.Builder
	if a.IsAccessor() {
		b.WriteByte('a')
	} else if a.IsWritable() {
		b.WriteByte('w')
	} else {
		b.WriteByte('-')
	}
	if a.IsEnumerable() {
		b.WriteByte('e')
	} else {
		b.WriteByte('-')
	}
	if a.IsConfigurable() {
		b.WriteByte('c')
	} else {
		b.WriteByte('-')
	}
	return b.String()
}

package shape

import "shapegraph/pkg/ident"

// primeDeltas[n] is the distance from 1<<n to the next prime.
var primeDeltas = [...]uint8{
	0, 0, 1, 3, 1, 5, 3, 3, 1, 9, 7, 5, 3, 9, 25, 3,
	1, 21, 3, 21, 7, 15, 9, 5, 3, 29, 15, 0, 0, 0, 0, 0,
}

func primeForNumBits(numBits int) int {
	return 1<<numBits + int(primeDeltas[numBits])
}

type hashEntry struct {
	id    ident.ID // ident.Null marks an empty slot
	index int32
	hash  uint32
}

// hashData is the backing store of a property hash. It is shared by every
// shape whose layout is a prefix of the entries it holds; entries past a
// shape's own size belong to its descendants and are ignored by that shape.
type hashData struct {
	refCount int
	size     int // logical slot count the entries describe
	used     int // non-empty entries
	numBits  int
	entries  []hashEntry
}

func newHashData(numBits int) *hashData {
	return &hashData{
		refCount: 1,
		numBits:  numBits,
		entries:  make([]hashEntry, primeForNumBits(numBits)),
	}
}

// place writes e into the first empty probed slot. Occupancy stays at or
// below half of the table, so a free slot always exists.
func (d *hashData) place(e hashEntry) {
	alloc := uint32(len(d.entries))
	idx := e.hash % alloc
	for !d.entries[idx].id.IsNull() {
		idx++
		if idx == alloc {
			idx = 0
		}
	}
	d.entries[idx] = e
	d.used++
}

// propertyHash maps identifiers to slot indices for one shape.
type propertyHash struct {
	d *hashData
}

func newPropertyHash(numBits int) propertyHash {
	return propertyHash{d: newHashData(numBits)}
}

// share returns another owner of the same backing store.
func (h propertyHash) share() propertyHash {
	if h.d != nil {
		h.d.refCount++
	}
	return h
}

func (h *propertyHash) release() {
	if h.d != nil {
		h.d.refCount--
		h.d = nil
	}
}

// lookup returns the slot recorded for id. Callers must compare the result
// against their own size: entries beyond it are stale for them.
func (h propertyHash) lookup(id ident.ID, hash uint32) (int, bool) {
	d := h.d
	if d == nil || id.IsNull() {
		return 0, false
	}
	alloc := uint32(len(d.entries))
	idx := hash % alloc
	for {
		e := d.entries[idx]
		if e.id.IsNull() {
			return 0, false
		}
		if e.id == id {
			return int(e.index), true
		}
		idx++
		if idx == alloc {
			idx = 0
		}
	}
}

// insert records id at index for a shape of logicalSize slots. If another
// owner has already appended past logicalSize, or the table would exceed
// half occupancy, the live prefix is rehashed into a private table first.
func (h *propertyHash) insert(id ident.ID, hash uint32, index, logicalSize int) rehashReason {
	reason := h.prepare(logicalSize, true)
	h.d.place(hashEntry{id: id, index: int32(index), hash: hash})
	h.d.size = logicalSize + 1
	return reason
}

// pad accounts for an accessor placeholder slot, which has no entry.
func (h *propertyHash) pad(logicalSize int) rehashReason {
	reason := h.prepare(logicalSize, false)
	h.d.size = logicalSize + 1
	return reason
}

type rehashReason uint8

const (
	rehashNone rehashReason = iota
	rehashGrow
	rehashTruncate
)

func (r rehashReason) String() string {
	switch r {
	case rehashGrow:
		return "grow"
	case rehashTruncate:
		return "truncate"
	default:
		return "none"
	}
}

func (h *propertyHash) prepare(logicalSize int, adding bool) rehashReason {
	d := h.d
	grow := adding && (d.used+1)*2 > len(d.entries)
	truncate := logicalSize < d.size
	if !grow && !truncate {
		return rehashNone
	}
	bits := d.numBits
	if grow {
		bits++
	}
	nd := newHashData(bits)
	for _, e := range d.entries {
		if e.id.IsNull() || int(e.index) >= logicalSize {
			continue
		}
		nd.place(e)
	}
	nd.size = logicalSize
	d.refCount--
	h.d = nd
	if grow {
		return rehashGrow
	}
	return rehashTruncate
}

// occupancy reports used entries and allocated slots.
func (h propertyHash) occupancy() (used, alloc int) {
	if h.d == nil {
		return 0, 0
	}
	return h.d.used, len(h.d.entries)
}

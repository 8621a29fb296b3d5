// Package ident interns property names into canonical identifier handles.
package ident

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// ID is a canonical identifier handle. Two IDs name the same property iff
// they are equal. The zero ID is the null identifier.
type ID uint32

// Null is the identifier used for accessor placeholder slots and for
// transitions that are not keyed by a member name.
const Null ID = 0

// IsNull reports whether id is the null identifier.
func (id ID) IsNull() bool { return id == Null }

// Table interns property names. Names are NFC-normalized first so that
// canonically equivalent spellings share one handle.
type Table struct {
	mu     sync.RWMutex
	byName map[string]ID
	names  []string // ID -> normalized name; index 0 is the null identifier
	hashes []uint32
}

// NewTable creates an empty identifier table.
func NewTable() *Table {
	return &Table{
		byName: make(map[string]ID),
		names:  make([]string, 1, 256),
		hashes: make([]uint32, 1, 256),
	}
}

// Intern returns the identifier for name, creating it if needed.
func (t *Table) Intern(name string) ID {
	name = norm.NFC.String(name)

	t.mu.RLock()
	if id, ok := t.byName[name]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double-check after acquiring write lock
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := ID(len(t.names))
	t.byName[name] = id
	t.names = append(t.names, name)
	t.hashes = append(t.hashes, fold(xxhash.Sum64String(name)))
	return id
}

// Lookup returns the identifier for name without interning it.
func (t *Table) Lookup(name string) (ID, bool) {
	name = norm.NFC.String(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the interned name of id, or "" for the null or an unknown id.
func (t *Table) Name(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// Hash returns the hash of id. It is fixed for the lifetime of the table.
func (t *Table) Hash(id ID) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.hashes) {
		return 0
	}
	return t.hashes[id]
}

// Len returns the number of interned names, excluding the null identifier.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names) - 1
}

func fold(h uint64) uint32 { return uint32(h) ^ uint32(h>>32) }

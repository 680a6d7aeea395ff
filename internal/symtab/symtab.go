// Package symtab interns identifiers into small integers using the same
// fixed-width padded layout and hash bucketing as the reduction engine's
// original symbol table, so the hash formula in the governing data model
// stays well-defined regardless of host-language string representation.
package symtab

import (
	"fmt"
	"strings"

	"github.com/mathisgroup/pylambda/internal/errs"
)

// numBuckets is the number of hash chains; entries hash via
// (pad[1]+pad[2]) mod numBuckets, +1, so bucket 0 is never produced and
// is kept unused for parity with the original's 1-indexed chain heads.
const numBuckets = 97

type entry struct {
	pad  string // " name      " — one leading space, right-padded to nameLength
	key  int32  // builtin key, 0 if a user identifier
	id   int32  // the interned index handed out to callers
	next int32  // next entry in this bucket's chain, 0 terminates
}

// Table interns names into sequential positive integers, reserving the
// low integers for built-ins registered via DefineBuiltin before any
// user identifier is located.
type Table struct {
	nameLength int
	maxSize    int

	buckets []int32 // numBuckets+1 long, 1-indexed; 0 = empty
	entries []entry // entries[0] unused, entries[i] has id == i
}

func New(nameLength, maxSize int) *Table {
	return &Table{
		nameLength: nameLength,
		maxSize:    maxSize,
		buckets:    make([]int32, numBuckets+1),
		entries:    make([]entry, 1, maxSize+1),
	}
}

func (t *Table) pad(name string) string {
	if len(name) > t.nameLength {
		name = name[:t.nameLength]
	}
	return " " + name + strings.Repeat(" ", t.nameLength-len(name))
}

func hash(pad string) int {
	// pad[0] is always the leading space; pad[1] and pad[2] are the
	// first two characters of the name (or trailing padding for
	// shorter names), matching (s[1]+s[2]) mod 97 + 1 over the
	// original's 1-indexed character buffer.
	var c1, c2 byte = ' ', ' '
	if len(pad) > 1 {
		c1 = pad[1]
	}
	if len(pad) > 2 {
		c2 = pad[2]
	}
	return (int(c1)+int(c2))%numBuckets + 1
}

// Locate interns name, returning its stable id. Idempotent: locating the
// same name twice returns the same id. Overflow at maxSize is reported
// as a fatal error for the caller's current top-level operation.
func (t *Table) Locate(name string) (int32, *errs.LambdaError) {
	pad := t.pad(name)
	h := hash(pad)

	for i := t.buckets[h]; i != 0; i = t.entries[i].next {
		if t.entries[i].pad == pad {
			return t.entries[i].id, nil
		}
	}

	if len(t.entries) > t.maxSize {
		return 0, errs.New(errs.CodeSymbolTableOverflow, fmt.Sprintf("symbol table overflow interning %q", name))
	}

	id := int32(len(t.entries))
	t.entries = append(t.entries, entry{pad: pad, next: t.buckets[h], id: id})
	t.buckets[h] = id
	return id, nil
}

// DefineBuiltin interns name up front with a fixed builtin key. Must be
// called before any user Locate call that might collide with it; callers
// set this up once at session construction.
func (t *Table) DefineBuiltin(name string, key int32) int32 {
	pad := t.pad(name)
	h := hash(pad)
	id := int32(len(t.entries))
	t.entries = append(t.entries, entry{pad: pad, key: key, next: t.buckets[h], id: id})
	t.buckets[h] = id
	return id
}

// BuiltinKey returns the builtin key registered for id, or 0 (KeyNone)
// for an ordinary user identifier or an out-of-range id.
func (t *Table) BuiltinKey(id int32) int32 {
	if id <= 0 || int(id) >= len(t.entries) {
		return 0
	}
	return t.entries[id].key
}

// Name recovers the original (unpadded) spelling of id for printing.
func (t *Table) Name(id int32) string {
	if id <= 0 || int(id) >= len(t.entries) {
		return ""
	}
	return strings.TrimSpace(t.entries[id].pad)
}

// Reset drops every interned identifier above the builtin set, used
// between top-level sessions that want a clean symbol space. preserve
// is the number of entries (including index 0) to keep — callers pass
// the count captured right after DefineBuiltin calls complete.
func (t *Table) Reset(preserve int) {
	t.entries = t.entries[:preserve]
	for i := range t.buckets {
		t.buckets[i] = 0
	}
	for i := 1; i < preserve; i++ {
		pad := t.entries[i].pad
		h := hash(pad)
		t.entries[i].next = t.buckets[h]
		t.buckets[h] = int32(i)
	}
}

// Size reports the number of interned entries, including builtins.
func (t *Table) Size() int {
	return len(t.entries) - 1
}

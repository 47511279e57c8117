// Package runtime implements the swarm actor runtime: isolated lightweight
// processes with per-process heaps, scheduled cooperatively across a pool of
// workers, communicating only by copying messages into mailboxes.
package runtime

import (
	"fmt"
	"sync"
)

// Type definitions for the term and process model
type (
	PID  uint64 // Process identifier
	Atom uint32 // Interned atom identifier
	Ref  int32  // Heap-relative handle to a term slot
)

// NilRef is the invalid handle. Accessing it is a caller bug.
const NilRef Ref = -1

// TermKind tags a heap slot.
type TermKind uint8

const (
	KindInvalid TermKind = iota // Unallocated slot
	KindNil                     // Empty list
	KindAtom                    // Interned atom
	KindInt                     // Signed integer
	KindFloat                   // Floating point
	KindPid                     // Process identifier
	KindTuple                   // Fixed-arity sequence; Arity child slots follow the header
	KindCons                    // List cell; head and tail slots follow the header
	KindBinary                  // Byte sequence
	kindRefSlot                 // Child slot of a compound term, holds a Ref in Int
	kindMoved                   // Forwarding entry left behind by the collector
)

var termKindNames = map[TermKind]string{
	KindInvalid: "invalid",
	KindNil:     "nil",
	KindAtom:    "atom",
	KindInt:     "int",
	KindFloat:   "float",
	KindPid:     "pid",
	KindTuple:   "tuple",
	KindCons:    "cons",
	KindBinary:  "binary",
	kindRefSlot: "refslot",
	kindMoved:   "moved",
}

// String returns a string representation of the term kind.
func (k TermKind) String() string {
	if name, ok := termKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(k))
}

// Term is one heap slot. Terms are immutable after construction; compound
// terms occupy a header slot followed by one ref slot per child. A term never
// holds a direct reference into another process's heap: crossing a process
// boundary always goes through a deep copy.
type Term struct {
	Kind  TermKind // Slot tag
	Arity int32    // Tuple arity (header slots only)
	Int   int64    // Integer value, atom id, pid, or child/forwarding ref
	Float float64  // Floating point value
	Bytes []byte   // Binary payload
}

// AtomTable interns atom names. It is an explicitly owned registry held by
// the Swarm, guarded by a single lock with scoped acquisition.
type AtomTable struct {
	mu    sync.RWMutex
	names []string
	ids   map[string]Atom
}

// NewAtomTable creates an empty atom table.
func NewAtomTable() *AtomTable {
	return &AtomTable{
		names: make([]string, 0, 64),
		ids:   make(map[string]Atom, 64),
	}
}

// Intern returns the atom for name, creating it on first use.
func (t *AtomTable) Intern(name string) Atom {
	t.mu.RLock()
	id, ok := t.ids[name]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	id = Atom(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

// Name resolves an atom back to its name.
func (t *AtomTable) Name(a Atom) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(a) >= len(t.names) {
		return "", false
	}
	return t.names[a], true
}

// Len returns the number of interned atoms.
func (t *AtomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

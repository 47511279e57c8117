package runtime

import "fmt"

// Heap size constants.
const (
	// MinHeapSlots is the smallest heap a process starts with.
	MinHeapSlots = 64
	// slotSizeEstimate approximates the in-memory cost of one term slot,
	// used when deriving a slot ceiling from a byte budget.
	slotSizeEstimate = 56
)

// Heap is an exclusively owned, contiguous, growable region of term slots
// with a bump pointer. It is only ever touched by the thread currently
// executing its owning process, so allocation takes no lock and never blocks
// on another process. Message fragments use the same type without an owner.
type Heap struct {
	slots []Term
	top   int

	// scopes is the stack of active root scopes. The collector rewrites
	// every ref registered in a scope when it moves terms.
	scopes []*RootScope

	// collect is invoked before growing when an allocation does not fit.
	// Nil for fragment heaps, which only grow.
	collect func()

	// maxSlots bounds growth; 0 means unbounded.
	maxSlots int

	collections uint64
	growths     uint64
}

// NewHeap creates a heap with at least minSlots capacity.
func NewHeap(minSlots int) *Heap {
	if minSlots < MinHeapSlots {
		minSlots = MinHeapSlots
	}
	return &Heap{slots: make([]Term, minSlots)}
}

// Used returns the number of allocated slots.
func (h *Heap) Used() int { return h.top }

// Cap returns the current capacity in slots.
func (h *Heap) Cap() int { return len(h.slots) }

// Collections returns how many times this heap has been collected.
func (h *Heap) Collections() uint64 { return h.collections }

// Ensure makes room for n more slots: collect first if the heap has a
// collector, then grow to at least double the previous size (rounded up to
// fit the request). Growth failure is fatal for the owning process.
func (h *Heap) Ensure(n int) error {
	if h.top+n <= len(h.slots) {
		return nil
	}
	if h.collect != nil {
		h.collect()
		if h.top+n <= len(h.slots) {
			return nil
		}
	}
	return h.grow(n)
}

func (h *Heap) grow(n int) error {
	need := h.top + n
	newCap := len(h.slots) * 2
	if newCap < MinHeapSlots {
		newCap = MinHeapSlots
	}
	for newCap < need {
		newCap *= 2
	}
	if h.maxSlots > 0 && newCap > h.maxSlots {
		if need > h.maxSlots {
			return fmt.Errorf("%w: need %d slots, limit %d", ErrHeapExhausted, need, h.maxSlots)
		}
		newCap = h.maxSlots
	}
	next := make([]Term, newCap)
	copy(next, h.slots[:h.top])
	h.slots = next
	h.growths++
	return nil
}

// alloc hands out n zeroed slots. Capacity must have been ensured.
func (h *Heap) alloc(n int) Ref {
	r := Ref(h.top)
	h.top += n
	return r
}

// Term returns the slot behind r. The result must not be retained across an
// allocation: collection moves terms.
func (h *Heap) Term(r Ref) *Term { return &h.slots[r] }

// Kind returns the tag of the term at r.
func (h *Heap) Kind(r Ref) TermKind { return h.slots[r].Kind }

// Term constructors. Each allocates on this heap; arguments that are refs
// into this heap are rooted for the duration of the call so a collection
// triggered by Ensure cannot strand them.

// MakeNil allocates the empty list.
func (h *Heap) MakeNil() (Ref, error) {
	if err := h.Ensure(1); err != nil {
		return NilRef, err
	}
	r := h.alloc(1)
	h.slots[r] = Term{Kind: KindNil}
	return r, nil
}

// MakeInt allocates an integer term.
func (h *Heap) MakeInt(v int64) (Ref, error) {
	if err := h.Ensure(1); err != nil {
		return NilRef, err
	}
	r := h.alloc(1)
	h.slots[r] = Term{Kind: KindInt, Int: v}
	return r, nil
}

// MakeFloat allocates a float term.
func (h *Heap) MakeFloat(v float64) (Ref, error) {
	if err := h.Ensure(1); err != nil {
		return NilRef, err
	}
	r := h.alloc(1)
	h.slots[r] = Term{Kind: KindFloat, Float: v}
	return r, nil
}

// MakeAtom allocates an atom term.
func (h *Heap) MakeAtom(a Atom) (Ref, error) {
	if err := h.Ensure(1); err != nil {
		return NilRef, err
	}
	r := h.alloc(1)
	h.slots[r] = Term{Kind: KindAtom, Int: int64(a)}
	return r, nil
}

// MakePid allocates a pid term.
func (h *Heap) MakePid(p PID) (Ref, error) {
	if err := h.Ensure(1); err != nil {
		return NilRef, err
	}
	r := h.alloc(1)
	h.slots[r] = Term{Kind: KindPid, Int: int64(p)}
	return r, nil
}

// MakeBinary allocates a binary term with a private copy of b.
func (h *Heap) MakeBinary(b []byte) (Ref, error) {
	if err := h.Ensure(1); err != nil {
		return NilRef, err
	}
	r := h.alloc(1)
	h.slots[r] = Term{Kind: KindBinary, Bytes: append([]byte(nil), b...)}
	return r, nil
}

// MakeTuple allocates a tuple from element refs on this heap.
func (h *Heap) MakeTuple(elems []Ref) (Ref, error) {
	sc := h.PushScope()
	for i := range elems {
		sc.Add(&elems[i])
	}
	err := h.Ensure(1 + len(elems))
	h.PopScope(sc)
	if err != nil {
		return NilRef, err
	}
	r := h.alloc(1 + len(elems))
	h.slots[r] = Term{Kind: KindTuple, Arity: int32(len(elems))}
	for i, e := range elems {
		h.slots[r+1+Ref(i)] = Term{Kind: kindRefSlot, Int: int64(e)}
	}
	return r, nil
}

// MakeCons allocates a list cell from head and tail refs on this heap.
func (h *Heap) MakeCons(head, tail Ref) (Ref, error) {
	sc := h.PushScope()
	sc.Add(&head)
	sc.Add(&tail)
	err := h.Ensure(3)
	h.PopScope(sc)
	if err != nil {
		return NilRef, err
	}
	r := h.alloc(3)
	h.slots[r] = Term{Kind: KindCons}
	h.slots[r+1] = Term{Kind: kindRefSlot, Int: int64(head)}
	h.slots[r+2] = Term{Kind: kindRefSlot, Int: int64(tail)}
	return r, nil
}

// Accessors.

// IntVal returns the integer value at r.
func (h *Heap) IntVal(r Ref) int64 { return h.slots[r].Int }

// FloatVal returns the float value at r.
func (h *Heap) FloatVal(r Ref) float64 { return h.slots[r].Float }

// AtomVal returns the atom at r.
func (h *Heap) AtomVal(r Ref) Atom { return Atom(h.slots[r].Int) }

// PidVal returns the pid at r.
func (h *Heap) PidVal(r Ref) PID { return PID(h.slots[r].Int) }

// BinaryVal returns the payload of the binary at r. The slice aliases heap
// storage and must be copied before the next allocation if retained.
func (h *Heap) BinaryVal(r Ref) []byte { return h.slots[r].Bytes }

// TupleArity returns the arity of the tuple at r.
func (h *Heap) TupleArity(r Ref) int { return int(h.slots[r].Arity) }

// TupleElem returns the i-th element of the tuple at r.
func (h *Heap) TupleElem(r Ref, i int) Ref { return Ref(h.slots[r+1+Ref(i)].Int) }

// ConsHead returns the head of the list cell at r.
func (h *Heap) ConsHead(r Ref) Ref { return Ref(h.slots[r+1].Int) }

// ConsTail returns the tail of the list cell at r.
func (h *Heap) ConsTail(r Ref) Ref { return Ref(h.slots[r+2].Int) }

// RootScope registers refs held by a unit of execution so the collector can
// rewrite them in place when it moves terms. Scopes form a stack; the owner
// pushes one per frame and pops it on the way out.
type RootScope struct {
	refs []*Ref
}

// PushScope opens a new root scope on this heap.
func (h *Heap) PushScope() *RootScope {
	sc := &RootScope{}
	h.scopes = append(h.scopes, sc)
	return sc
}

// PopScope closes sc, which must be the innermost open scope.
func (h *Heap) PopScope(sc *RootScope) {
	if len(h.scopes) == 0 || h.scopes[len(h.scopes)-1] != sc {
		panic("runtime: root scope popped out of order")
	}
	h.scopes = h.scopes[:len(h.scopes)-1]
}

// Add registers a ref location with the scope.
func (sc *RootScope) Add(r *Ref) {
	sc.refs = append(sc.refs, r)
}

package runtime

// Semi-space copying collection. Only the owning process is paused: heaps
// are disjoint, so no other process can observe the move. The collector
// copies every term reachable from the registered root scopes into a fresh
// slot array, leaves forwarding entries in the old space, and rewrites the
// roots in place. Unreachable terms are dropped with the old space.
//
// Policy: single generation, full copy on every failed allocation. There is
// no old-generation promotion; long-lived data is recopied each cycle.

// Collect runs one copying collection cycle over this heap.
func (h *Heap) Collect() {
	from := h.slots
	to := make([]Term, len(h.slots))
	top := 0

	var move func(r Ref) Ref
	move = func(r Ref) Ref {
		if r == NilRef {
			return NilRef
		}
		t := &from[r]
		if t.Kind == kindMoved {
			return Ref(t.Int)
		}
		switch t.Kind {
		case KindTuple:
			arity := int(t.Arity)
			nr := Ref(top)
			top += 1 + arity
			to[nr] = *t
			// Forward the header before visiting children.
			from[r] = Term{Kind: kindMoved, Int: int64(nr)}
			for i := 0; i < arity; i++ {
				child := Ref(from[r+1+Ref(i)].Int)
				to[nr+1+Ref(i)] = Term{Kind: kindRefSlot, Int: int64(move(child))}
			}
			return nr
		case KindCons:
			// Walk the spine iteratively so long lists do not recurse.
			nr := Ref(top)
			top += 3
			to[nr] = Term{Kind: KindCons}
			from[r] = Term{Kind: kindMoved, Int: int64(nr)}
			head := Ref(from[r+1].Int)
			tail := Ref(from[r+2].Int)
			to[nr+1] = Term{Kind: kindRefSlot, Int: int64(move(head))}
			cur := nr
			for tail != NilRef && from[tail].Kind == KindCons {
				next := Ref(top)
				top += 3
				to[next] = Term{Kind: KindCons}
				from[tail] = Term{Kind: kindMoved, Int: int64(next)}
				h2 := Ref(from[tail+1].Int)
				t2 := Ref(from[tail+2].Int)
				to[cur+2] = Term{Kind: kindRefSlot, Int: int64(next)}
				to[next+1] = Term{Kind: kindRefSlot, Int: int64(move(h2))}
				cur = next
				tail = t2
			}
			to[cur+2] = Term{Kind: kindRefSlot, Int: int64(move(tail))}
			return nr
		default:
			nr := Ref(top)
			top++
			to[nr] = *t
			from[r] = Term{Kind: kindMoved, Int: int64(nr)}
			return nr
		}
	}

	for _, sc := range h.scopes {
		for _, loc := range sc.refs {
			*loc = move(*loc)
		}
	}

	h.slots = to
	h.top = top
	h.collections++
}

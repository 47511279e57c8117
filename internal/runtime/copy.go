package runtime

import "fmt"

// CopyTerm deep-copies the term rooted at r from src onto dst. Every nested
// tuple element, list cell, and binary payload is freshly allocated in dst:
// the result shares no substructure with src. This is the isolation
// invariant behind message passing.
func CopyTerm(dst, src *Heap, r Ref) (Ref, error) {
	if r == NilRef {
		return NilRef, nil
	}
	t := src.Term(r)
	switch t.Kind {
	case KindNil:
		return dst.MakeNil()
	case KindInt:
		return dst.MakeInt(t.Int)
	case KindFloat:
		return dst.MakeFloat(t.Float)
	case KindAtom:
		return dst.MakeAtom(Atom(t.Int))
	case KindPid:
		return dst.MakePid(PID(t.Int))
	case KindBinary:
		return dst.MakeBinary(t.Bytes)
	case KindTuple:
		arity := src.TupleArity(r)
		elems := make([]Ref, arity)
		sc := dst.PushScope()
		for i := 0; i < arity; i++ {
			child, err := CopyTerm(dst, src, src.TupleElem(r, i))
			if err != nil {
				dst.PopScope(sc)
				return NilRef, err
			}
			elems[i] = child
			sc.Add(&elems[i])
		}
		dst.PopScope(sc)
		return dst.MakeTuple(elems)
	case KindCons:
		// Copy the spine iteratively; a recursive copy would overflow the
		// stack on long lists.
		var heads []Ref
		cur := r
		for src.Kind(cur) == KindCons {
			heads = append(heads, src.ConsHead(cur))
			cur = src.ConsTail(cur)
		}
		tail, err := CopyTerm(dst, src, cur)
		if err != nil {
			return NilRef, err
		}
		sc := dst.PushScope()
		sc.Add(&tail)
		for i := len(heads) - 1; i >= 0; i-- {
			head, err := CopyTerm(dst, src, heads[i])
			if err != nil {
				dst.PopScope(sc)
				return NilRef, err
			}
			cellRef, err := dst.MakeCons(head, tail)
			if err != nil {
				dst.PopScope(sc)
				return NilRef, err
			}
			tail = cellRef
		}
		dst.PopScope(sc)
		return tail, nil
	default:
		return NilRef, fmt.Errorf("cannot copy term of kind %s", t.Kind)
	}
}

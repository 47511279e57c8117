package runtime

import "fmt"

// Go-side value codec. External senders (tools, embedders, the script
// interpreter) describe messages as plain Go values; Encode builds the term
// on a heap and Decode reads one back. The mapping:
//
//	nil          <-> empty list
//	bool         <-> atoms true/false
//	int, int64   <-> integer
//	float64      <-> float
//	string       <-> binary (Decode returns string)
//	[]byte        -> binary
//	PID          <-> pid
//	Sym          <-> atom
//	Tup          <-> tuple
//	[]any        <-> proper list

// Sym names an atom in a Go-side value.
type Sym string

// Tup is a tuple in a Go-side value.
type Tup []any

// Encode builds the term for v on h, interning atoms through at.
func Encode(h *Heap, at *AtomTable, v any) (Ref, error) {
	switch x := v.(type) {
	case nil:
		return h.MakeNil()
	case bool:
		if x {
			return h.MakeAtom(at.Intern("true"))
		}
		return h.MakeAtom(at.Intern("false"))
	case int:
		return h.MakeInt(int64(x))
	case int64:
		return h.MakeInt(x)
	case float64:
		return h.MakeFloat(x)
	case string:
		return h.MakeBinary([]byte(x))
	case []byte:
		return h.MakeBinary(x)
	case PID:
		return h.MakePid(x)
	case Sym:
		return h.MakeAtom(at.Intern(string(x)))
	case Tup:
		elems := make([]Ref, len(x))
		sc := h.PushScope()
		for i, e := range x {
			r, err := Encode(h, at, e)
			if err != nil {
				h.PopScope(sc)
				return NilRef, err
			}
			elems[i] = r
			sc.Add(&elems[i])
		}
		h.PopScope(sc)
		return h.MakeTuple(elems)
	case []any:
		tail, err := h.MakeNil()
		if err != nil {
			return NilRef, err
		}
		sc := h.PushScope()
		sc.Add(&tail)
		for i := len(x) - 1; i >= 0; i-- {
			head, err := Encode(h, at, x[i])
			if err != nil {
				h.PopScope(sc)
				return NilRef, err
			}
			cell, err := h.MakeCons(head, tail)
			if err != nil {
				h.PopScope(sc)
				return NilRef, err
			}
			tail = cell
		}
		h.PopScope(sc)
		return tail, nil
	default:
		return NilRef, fmt.Errorf("cannot encode %T as a term", v)
	}
}

// Decode reads the term at r back into a Go-side value.
func Decode(h *Heap, at *AtomTable, r Ref) (any, error) {
	if r == NilRef {
		return nil, fmt.Errorf("cannot decode nil ref")
	}
	switch h.Kind(r) {
	case KindNil:
		return []any{}, nil
	case KindInt:
		return h.IntVal(r), nil
	case KindFloat:
		return h.FloatVal(r), nil
	case KindAtom:
		name, ok := at.Name(h.AtomVal(r))
		if !ok {
			return nil, fmt.Errorf("unknown atom %d", h.AtomVal(r))
		}
		return Sym(name), nil
	case KindPid:
		return h.PidVal(r), nil
	case KindBinary:
		return string(h.BinaryVal(r)), nil
	case KindTuple:
		arity := h.TupleArity(r)
		out := make(Tup, arity)
		for i := 0; i < arity; i++ {
			v, err := Decode(h, at, h.TupleElem(r, i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case KindCons:
		var out []any
		cur := r
		for h.Kind(cur) == KindCons {
			v, err := Decode(h, at, h.ConsHead(cur))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			cur = h.ConsTail(cur)
		}
		if h.Kind(cur) != KindNil {
			return nil, fmt.Errorf("cannot decode improper list")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode term of kind %s", h.Kind(r))
	}
}

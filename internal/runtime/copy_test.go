package runtime

import "testing"

func TestCopyTermSharesNothing(t *testing.T) {
	src := NewHeap(64)
	dst := NewHeap(64)

	bin, _ := src.MakeBinary([]byte("payload"))
	num, _ := src.MakeInt(10)
	tup, err := src.MakeTuple([]Ref{bin, num})
	if err != nil {
		t.Fatalf("MakeTuple: %v", err)
	}

	copied, err := CopyTerm(dst, src, tup)
	if err != nil {
		t.Fatalf("CopyTerm: %v", err)
	}

	// Mutating the source afterwards must not show through.
	src.Term(num).Int = 999
	src.BinaryVal(bin)[0] = 'X'

	if got := dst.IntVal(dst.TupleElem(copied, 1)); got != 10 {
		t.Fatalf("copy observed source mutation: %d", got)
	}
	if got := string(dst.BinaryVal(dst.TupleElem(copied, 0))); got != "payload" {
		t.Fatalf("binary payload aliased: %q", got)
	}
}

func TestCopyLongList(t *testing.T) {
	src := NewHeap(64)
	dst := NewHeap(64)

	tail, _ := src.MakeNil()
	for i := 0; i < 10000; i++ {
		head, _ := src.MakeInt(int64(i))
		cell, err := src.MakeCons(head, tail)
		if err != nil {
			t.Fatalf("MakeCons: %v", err)
		}
		tail = cell
	}

	copied, err := CopyTerm(dst, src, tail)
	if err != nil {
		t.Fatalf("CopyTerm: %v", err)
	}

	n := 0
	cur := copied
	for dst.Kind(cur) == KindCons {
		n++
		cur = dst.ConsTail(cur)
	}
	if n != 10000 || dst.Kind(cur) != KindNil {
		t.Fatalf("copied list broken: n=%d tail=%s", n, dst.Kind(cur))
	}
	// Built most-recent-first, so the first head is the last value pushed.
	if got := dst.IntVal(dst.ConsHead(copied)); got != 9999 {
		t.Fatalf("head = %d", got)
	}
}

func TestMailboxFIFO(t *testing.T) {
	m := newMailbox()
	for i := 0; i < 100; i++ {
		frag := NewHeap(MinHeapSlots)
		root, _ := frag.MakeInt(int64(i))
		m.push(Envelope{frag: frag, root: root, Sender: PID(i)})
	}
	if m.Len() != 100 {
		t.Fatalf("Len = %d", m.Len())
	}

	owner := NewHeap(64)
	for i := 0; i < 100; i++ {
		env, ok := m.pop()
		if !ok {
			t.Fatalf("pop %d: empty", i)
		}
		if env.Sender != PID(i) {
			t.Fatalf("pop %d: sender %d", i, env.Sender)
		}
		r, err := adopt(owner, env)
		if err != nil {
			t.Fatalf("adopt %d: %v", i, err)
		}
		if got := owner.IntVal(r); got != int64(i) {
			t.Fatalf("pop %d: payload %d", i, got)
		}
	}
	if _, ok := m.pop(); ok {
		t.Fatal("pop on empty mailbox succeeded")
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d after drain", m.Len())
	}
}

package runtime

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeNested(t *testing.T) {
	h := NewHeap(64)
	at := NewAtomTable()

	in := Tup{Sym("reply"), PID(7), []any{int64(1), 2.5, "bytes", true}}
	r, err := Encode(h, at, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(h, at, r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := Tup{Sym("reply"), PID(7), []any{int64(1), 2.5, "bytes", Sym("true")}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("round trip:\n got %#v\nwant %#v", out, want)
	}
}

func TestEncodeIntWidens(t *testing.T) {
	h := NewHeap(64)
	at := NewAtomTable()

	r, err := Encode(h, at, 42)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := Decode(h, at, r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v != int64(42) {
		t.Fatalf("got %#v, want int64(42)", v)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	h := NewHeap(64)
	at := NewAtomTable()
	if _, err := Encode(h, at, struct{}{}); err == nil {
		t.Fatal("expected an error for an unsupported type")
	}
}

func TestDecodeImproperList(t *testing.T) {
	h := NewHeap(64)
	at := NewAtomTable()

	head, _ := h.MakeInt(1)
	tail, _ := h.MakeInt(2)
	cell, err := h.MakeCons(head, tail)
	if err != nil {
		t.Fatalf("MakeCons: %v", err)
	}
	if _, err := Decode(h, at, cell); err == nil {
		t.Fatal("expected an error for an improper list")
	}
}

func TestAtomTableIntern(t *testing.T) {
	at := NewAtomTable()

	a := at.Intern("ok")
	b := at.Intern("error")
	if a == b {
		t.Fatal("distinct names interned to the same atom")
	}
	if at.Intern("ok") != a {
		t.Fatal("interning is not stable")
	}
	if name, ok := at.Name(a); !ok || name != "ok" {
		t.Fatalf("Name(%d) = %q, %v", a, name, ok)
	}
	if _, ok := at.Name(Atom(99)); ok {
		t.Fatal("unknown atom resolved")
	}
	if at.Len() != 2 {
		t.Fatalf("Len = %d", at.Len())
	}
}

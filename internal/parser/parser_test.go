package parser

import (
	"strings"
	"testing"
)

func TestParseProgram(t *testing.T) {
	src := `requires ">= 0.2.0";

actor counter(limit) {
  let n = 0;
  while n < limit {
    n = n + 1;
  }
  send(self(), {:done, n});
}

actor main() {
  let pid = spawn counter(10);
  print("spawned", pid);
}`

	prog, err := ParseFile(src, "counter.sw")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if prog.Requires != ">= 0.2.0" {
		t.Fatalf("requires = %q", prog.Requires)
	}
	if len(prog.Actors) != 2 {
		t.Fatalf("actors = %d", len(prog.Actors))
	}

	counter, ok := prog.Actor("counter")
	if !ok {
		t.Fatal("actor counter not found")
	}
	if len(counter.Params) != 1 || counter.Params[0] != "limit" {
		t.Fatalf("params = %v", counter.Params)
	}
	if len(counter.Body) != 3 {
		t.Fatalf("body statements = %d", len(counter.Body))
	}
	if _, ok := counter.Body[0].(*LetStmt); !ok {
		t.Fatalf("statement 0 is %T", counter.Body[0])
	}
	if _, ok := counter.Body[1].(*WhileStmt); !ok {
		t.Fatalf("statement 1 is %T", counter.Body[1])
	}

	main, _ := prog.Actor("main")
	let, ok := main.Body[0].(*LetStmt)
	if !ok {
		t.Fatalf("statement 0 is %T", main.Body[0])
	}
	sp, ok := let.Value.(*SpawnExpr)
	if !ok || sp.Actor != "counter" || len(sp.Args) != 1 {
		t.Fatalf("spawn expr = %#v", let.Value)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3;", "(1 + (2 * 3))"},
		{"1 * 2 + 3;", "((1 * 2) + 3)"},
		{"1 + 2 - 3;", "((1 + 2) - 3)"},
		{"a == b && c != d;", "((a == b) && (c != d))"},
		{"a || b && c;", "(a || (b && c))"},
		{"-a * b;", "((-a) * b)"},
		{"!(a < b);", "(!(a < b))"},
		{"(1 + 2) * 3;", "((1 + 2) * 3)"},
	}
	for _, tt := range tests {
		prog, err := ParseFile("actor t() { "+tt.input+" }", "")
		if err != nil {
			t.Fatalf("input %q: %v", tt.input, err)
		}
		expr := prog.Actors[0].Body[0].(*ExprStmt).Expr
		if got := expr.String(); got != tt.want {
			t.Errorf("input %q: got %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseLiterals(t *testing.T) {
	prog, err := ParseFile(`actor t() { let x = [1, 2.5, "s", :ok, true, {1, 2}]; }`, "")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	let := prog.Actors[0].Body[0].(*LetStmt)
	list, ok := let.Value.(*ListLit)
	if !ok || len(list.Elems) != 6 {
		t.Fatalf("value = %#v", let.Value)
	}
	if _, ok := list.Elems[0].(*IntLit); !ok {
		t.Fatalf("elem 0 is %T", list.Elems[0])
	}
	if _, ok := list.Elems[3].(*AtomLit); !ok {
		t.Fatalf("elem 3 is %T", list.Elems[3])
	}
	if tup, ok := list.Elems[5].(*TupleLit); !ok || len(tup.Elems) != 2 {
		t.Fatalf("elem 5 = %#v", list.Elems[5])
	}
}

func TestParseIfElseChain(t *testing.T) {
	src := `actor t(x) {
  if x < 0 {
    return :neg;
  } else if x == 0 {
    return :zero;
  } else {
    return :pos;
  }
}`
	prog, err := ParseFile(src, "")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	ifStmt := prog.Actors[0].Body[0].(*IfStmt)
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("if shape: then=%d else=%d", len(ifStmt.Then), len(ifStmt.Else))
	}
	inner, ok := ifStmt.Else[0].(*IfStmt)
	if !ok {
		t.Fatalf("else branch is %T", ifStmt.Else[0])
	}
	if inner.Else == nil {
		t.Fatal("inner else missing")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantSub string
	}{
		{`actor t() { let = 1; }`, "expected IDENTIFIER"},
		{`actor t() { let x 1; }`, "expected ASSIGN"},
		{`actor t() { x + ; }`, "in expression"},
		{`actor t() {`, "unexpected end of input"},
		{`actor t() { let x = 1 }`, "expected SEMICOLON"},
		{`actor t() {} actor t() {}`, "redeclared"},
		{`requires 1; actor t() {}`, "expected STRING"},
	}
	for _, tt := range tests {
		_, err := ParseFile(tt.input, "bad.sw")
		if err == nil {
			t.Errorf("input %q: expected an error", tt.input)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantSub) {
			t.Errorf("input %q: error %q does not mention %q", tt.input, err, tt.wantSub)
		}
		if !strings.Contains(err.Error(), "bad.sw") {
			t.Errorf("input %q: error %q lacks the file name", tt.input, err)
		}
	}
}

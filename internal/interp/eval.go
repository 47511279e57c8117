package interp

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/swarm-lang/swarm/internal/lexer"
	"github.com/swarm-lang/swarm/internal/parser"
	"github.com/swarm-lang/swarm/internal/runtime"
)

// evaluator executes one actor's statements on its process.
type evaluator struct {
	in *Interp
	pc *runtime.PC
}

// execBlock runs stmts in a child scope. returned reports whether a return
// statement fired; val is its value.
func (ev *evaluator) execBlock(parent *env, stmts []parser.Statement) (returned bool, val any, err error) {
	scope := newEnv(parent)
	for _, stmt := range stmts {
		returned, val, err = ev.execStmt(scope, stmt)
		if err != nil || returned {
			return returned, val, err
		}
	}
	return false, nil, nil
}

func (ev *evaluator) execStmt(scope *env, stmt parser.Statement) (bool, any, error) {
	ev.pc.Reduce(1)
	switch s := stmt.(type) {
	case *parser.LetStmt:
		v, err := ev.eval(scope, s.Value)
		if err != nil {
			return false, nil, err
		}
		scope.define(s.Name, v)
		return false, nil, nil

	case *parser.AssignStmt:
		v, err := ev.eval(scope, s.Value)
		if err != nil {
			return false, nil, err
		}
		if !scope.assign(s.Name, v) {
			return false, nil, ev.errorf(s.Position, "assignment to undefined variable %q", s.Name)
		}
		return false, nil, nil

	case *parser.IfStmt:
		cond, err := ev.eval(scope, s.Cond)
		if err != nil {
			return false, nil, err
		}
		b, err := truthy(cond)
		if err != nil {
			return false, nil, ev.errorf(s.Position, "%v", err)
		}
		if b {
			return ev.execBlock(scope, s.Then)
		}
		if s.Else != nil {
			return ev.execBlock(scope, s.Else)
		}
		return false, nil, nil

	case *parser.WhileStmt:
		for {
			cond, err := ev.eval(scope, s.Cond)
			if err != nil {
				return false, nil, err
			}
			b, err := truthy(cond)
			if err != nil {
				return false, nil, ev.errorf(s.Position, "%v", err)
			}
			if !b {
				return false, nil, nil
			}
			returned, val, err := ev.execBlock(scope, s.Body)
			if err != nil || returned {
				return returned, val, err
			}
			ev.pc.Reduce(1)
		}

	case *parser.ReturnStmt:
		if s.Value == nil {
			return true, nil, nil
		}
		v, err := ev.eval(scope, s.Value)
		if err != nil {
			return false, nil, err
		}
		return true, v, nil

	case *parser.ExprStmt:
		_, err := ev.eval(scope, s.Expr)
		return false, nil, err
	}
	return false, nil, ev.errorf(stmt.Pos(), "unhandled statement %T", stmt)
}

func (ev *evaluator) eval(scope *env, expr parser.Expression) (any, error) {
	ev.pc.Reduce(1)
	switch e := expr.(type) {
	case *parser.IntLit:
		return e.Value, nil
	case *parser.FloatLit:
		return e.Value, nil
	case *parser.StringLit:
		return e.Value, nil
	case *parser.AtomLit:
		return runtime.Sym(e.Name), nil
	case *parser.BoolLit:
		return e.Value, nil

	case *parser.Ident:
		v, ok := scope.lookup(e.Name)
		if !ok {
			return nil, ev.errorf(e.Position, "undefined variable %q", e.Name)
		}
		return v, nil

	case *parser.ListLit:
		out := make([]any, len(e.Elems))
		for i, el := range e.Elems {
			v, err := ev.eval(scope, el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *parser.TupleLit:
		out := make(runtime.Tup, len(e.Elems))
		for i, el := range e.Elems {
			v, err := ev.eval(scope, el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *parser.UnaryExpr:
		return ev.evalUnary(scope, e)
	case *parser.BinaryExpr:
		return ev.evalBinary(scope, e)
	case *parser.SpawnExpr:
		return ev.evalSpawn(scope, e)
	case *parser.CallExpr:
		return ev.evalCall(scope, e)
	}
	return nil, ev.errorf(expr.Pos(), "unhandled expression %T", expr)
}

func (ev *evaluator) evalUnary(scope *env, e *parser.UnaryExpr) (any, error) {
	v, err := ev.eval(scope, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case lexer.TokenMinus:
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, ev.errorf(e.Position, "cannot negate %s", typeName(v))
	case lexer.TokenNot:
		b, err := truthy(v)
		if err != nil {
			return nil, ev.errorf(e.Position, "%v", err)
		}
		return !b, nil
	}
	return nil, ev.errorf(e.Position, "unhandled unary operator")
}

func (ev *evaluator) evalBinary(scope *env, e *parser.BinaryExpr) (any, error) {
	// Short-circuit logic first.
	if e.Op == lexer.TokenAnd || e.Op == lexer.TokenOr {
		left, err := ev.eval(scope, e.Left)
		if err != nil {
			return nil, err
		}
		lb, err := truthy(left)
		if err != nil {
			return nil, ev.errorf(e.Position, "%v", err)
		}
		if e.Op == lexer.TokenAnd && !lb {
			return false, nil
		}
		if e.Op == lexer.TokenOr && lb {
			return true, nil
		}
		right, err := ev.eval(scope, e.Right)
		if err != nil {
			return nil, err
		}
		rb, err := truthy(right)
		if err != nil {
			return nil, ev.errorf(e.Position, "%v", err)
		}
		return rb, nil
	}

	left, err := ev.eval(scope, e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(scope, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case lexer.TokenEq:
		return valueEqual(left, right), nil
	case lexer.TokenNe:
		return !valueEqual(left, right), nil
	}

	// String concatenation.
	if e.Op == lexer.TokenPlus {
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
		}
	}

	// Numeric operators. Mixed int/float promotes to float.
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt {
		switch e.Op {
		case lexer.TokenPlus:
			return li + ri, nil
		case lexer.TokenMinus:
			return li - ri, nil
		case lexer.TokenMul:
			return li * ri, nil
		case lexer.TokenDiv:
			if ri == 0 {
				return nil, ev.errorf(e.Position, "division by zero")
			}
			return li / ri, nil
		case lexer.TokenMod:
			if ri == 0 {
				return nil, ev.errorf(e.Position, "division by zero")
			}
			return li % ri, nil
		case lexer.TokenLt:
			return li < ri, nil
		case lexer.TokenLe:
			return li <= ri, nil
		case lexer.TokenGt:
			return li > ri, nil
		case lexer.TokenGe:
			return li >= ri, nil
		}
	}

	lf, lOK := toFloat(left)
	rf, rOK := toFloat(right)
	if lOK && rOK {
		switch e.Op {
		case lexer.TokenPlus:
			return lf + rf, nil
		case lexer.TokenMinus:
			return lf - rf, nil
		case lexer.TokenMul:
			return lf * rf, nil
		case lexer.TokenDiv:
			if rf == 0 {
				return nil, ev.errorf(e.Position, "division by zero")
			}
			return lf / rf, nil
		case lexer.TokenLt:
			return lf < rf, nil
		case lexer.TokenLe:
			return lf <= rf, nil
		case lexer.TokenGt:
			return lf > rf, nil
		case lexer.TokenGe:
			return lf >= rf, nil
		}
	}

	return nil, ev.errorf(e.Position, "invalid operands %s and %s", typeName(left), typeName(right))
}

func (ev *evaluator) evalSpawn(scope *env, e *parser.SpawnExpr) (any, error) {
	args, err := ev.evalArgs(scope, e.Args)
	if err != nil {
		return nil, err
	}
	pid, err := ev.in.SpawnActor(e.Actor, args)
	if err != nil {
		return nil, ev.errorf(e.Position, "%v", err)
	}
	return pid, nil
}

func (ev *evaluator) evalCall(scope *env, e *parser.CallExpr) (any, error) {
	args, err := ev.evalArgs(scope, e.Args)
	if err != nil {
		return nil, err
	}

	switch e.Name {
	case "self":
		if len(args) != 0 {
			return nil, ev.errorf(e.Position, "self() takes no arguments")
		}
		return ev.pc.Self(), nil

	case "yield":
		if len(args) != 0 {
			return nil, ev.errorf(e.Position, "yield() takes no arguments")
		}
		ev.pc.Yield()
		return runtime.Sym("ok"), nil

	case "send":
		if len(args) != 2 {
			return nil, ev.errorf(e.Position, "send(pid, value) takes 2 arguments, got %d", len(args))
		}
		pid, ok := args[0].(runtime.PID)
		if !ok {
			return nil, ev.errorf(e.Position, "send: first argument must be a pid, got %s", typeName(args[0]))
		}
		if err := ev.pc.SendValue(pid, args[1]); err != nil {
			return nil, ev.errorf(e.Position, "send: %v", err)
		}
		return runtime.Sym("ok"), nil

	case "receive":
		var timeout time.Duration
		switch len(args) {
		case 0:
		case 1:
			ms, ok := args[0].(int64)
			if !ok || ms < 0 {
				return nil, ev.errorf(e.Position, "receive: timeout must be a non-negative integer")
			}
			timeout = time.Duration(ms) * time.Millisecond
		default:
			return nil, ev.errorf(e.Position, "receive([timeoutMs]) takes at most 1 argument")
		}
		v, _, ok := ev.pc.ReceiveValue(timeout)
		if !ok {
			return runtime.Sym("timeout"), nil
		}
		return v, nil

	case "print":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = formatValue(a)
		}
		ev.in.print(parts)
		return runtime.Sym("ok"), nil
	}

	if ev.in.tools != nil {
		if _, ok := ev.in.tools.Lookup(e.Name); ok {
			v, err := ev.in.tools.Invoke(ev.pc, e.Name, args)
			if err != nil {
				return nil, ev.errorf(e.Position, "%v", err)
			}
			return v, nil
		}
	}
	return nil, ev.errorf(e.Position, "unknown function %q", e.Name)
}

func (ev *evaluator) evalArgs(scope *env, exprs []parser.Expression) ([]any, error) {
	args := make([]any, len(exprs))
	for i, a := range exprs {
		v, err := ev.eval(scope, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (ev *evaluator) errorf(pos lexer.Position, format string, args ...any) error {
	return fmt.Errorf("%s: %s", pos, fmt.Sprintf(format, args...))
}

// truthy interprets a script value as a condition. Booleans are native; the
// atoms true/false arriving through receive count too.
func truthy(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case runtime.Sym:
		if x == "true" {
			return true, nil
		}
		if x == "false" {
			return false, nil
		}
	}
	return false, fmt.Errorf("%s is not a boolean", typeName(v))
}

// valueEqual compares script values structurally. Mixed int/float compares
// numerically.
func valueEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case int64:
		return "integer"
	case float64:
		return "float"
	case string:
		return "string"
	case bool:
		return "boolean"
	case runtime.Sym:
		return "atom"
	case runtime.PID:
		return "pid"
	case runtime.Tup:
		return "tuple"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

// formatValue renders a script value for print().
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return x
	case runtime.Sym:
		return ":" + string(x)
	case runtime.PID:
		return fmt.Sprintf("<%d>", uint64(x))
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case runtime.Tup:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}

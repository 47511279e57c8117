// Package parser implements the swarm script parser and AST definitions
package parser

import (
	"fmt"
	"strings"

	"github.com/swarm-lang/swarm/internal/lexer"
)

// Node represents the base interface for all AST nodes
type Node interface {
	// Pos returns the source position of the node
	Pos() lexer.Position
	// String returns a string representation of the node
	String() string
}

// Statement represents all statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents all expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program represents the root of the AST: an optional requires pragma
// followed by actor declarations.
type Program struct {
	Requires string // semver constraint, empty when absent
	Actors   []*ActorDecl
}

// Actor resolves a declaration by name.
func (p *Program) Actor(name string) (*ActorDecl, bool) {
	for _, a := range p.Actors {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// ActorDecl represents an actor declaration
type ActorDecl struct {
	Position lexer.Position
	Name     string
	Params   []string
	Body     []Statement
}

func (a *ActorDecl) Pos() lexer.Position { return a.Position }
func (a *ActorDecl) String() string {
	return fmt.Sprintf("actor %s(%s)", a.Name, strings.Join(a.Params, ", "))
}

// ====== Statements ======

// LetStmt represents a let binding
type LetStmt struct {
	Position lexer.Position
	Name     string
	Value    Expression
}

func (s *LetStmt) Pos() lexer.Position { return s.Position }
func (s *LetStmt) String() string      { return fmt.Sprintf("let %s = %s", s.Name, s.Value) }
func (s *LetStmt) statementNode()      {}

// AssignStmt represents an assignment to an existing binding
type AssignStmt struct {
	Position lexer.Position
	Name     string
	Value    Expression
}

func (s *AssignStmt) Pos() lexer.Position { return s.Position }
func (s *AssignStmt) String() string      { return fmt.Sprintf("%s = %s", s.Name, s.Value) }
func (s *AssignStmt) statementNode()      {}

// IfStmt represents a conditional with an optional else branch
type IfStmt struct {
	Position lexer.Position
	Cond     Expression
	Then     []Statement
	Else     []Statement // nil when absent
}

func (s *IfStmt) Pos() lexer.Position { return s.Position }
func (s *IfStmt) String() string      { return fmt.Sprintf("if %s", s.Cond) }
func (s *IfStmt) statementNode()      {}

// WhileStmt represents a while loop
type WhileStmt struct {
	Position lexer.Position
	Cond     Expression
	Body     []Statement
}

func (s *WhileStmt) Pos() lexer.Position { return s.Position }
func (s *WhileStmt) String() string      { return fmt.Sprintf("while %s", s.Cond) }
func (s *WhileStmt) statementNode()      {}

// ReturnStmt represents a return, with an optional value
type ReturnStmt struct {
	Position lexer.Position
	Value    Expression // nil for a bare return
}

func (s *ReturnStmt) Pos() lexer.Position { return s.Position }
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Value)
}
func (s *ReturnStmt) statementNode() {}

// ExprStmt wraps an expression evaluated for its effect
type ExprStmt struct {
	Position lexer.Position
	Expr     Expression
}

func (s *ExprStmt) Pos() lexer.Position { return s.Position }
func (s *ExprStmt) String() string      { return s.Expr.String() }
func (s *ExprStmt) statementNode()      {}

// ====== Expressions ======

// IntLit represents an integer literal
type IntLit struct {
	Position lexer.Position
	Value    int64
}

func (e *IntLit) Pos() lexer.Position { return e.Position }
func (e *IntLit) String() string      { return fmt.Sprintf("%d", e.Value) }
func (e *IntLit) expressionNode()     {}

// FloatLit represents a float literal
type FloatLit struct {
	Position lexer.Position
	Value    float64
}

func (e *FloatLit) Pos() lexer.Position { return e.Position }
func (e *FloatLit) String() string      { return fmt.Sprintf("%g", e.Value) }
func (e *FloatLit) expressionNode()     {}

// StringLit represents a string literal
type StringLit struct {
	Position lexer.Position
	Value    string
}

func (e *StringLit) Pos() lexer.Position { return e.Position }
func (e *StringLit) String() string      { return fmt.Sprintf("%q", e.Value) }
func (e *StringLit) expressionNode()     {}

// AtomLit represents an atom literal (:name)
type AtomLit struct {
	Position lexer.Position
	Name     string
}

func (e *AtomLit) Pos() lexer.Position { return e.Position }
func (e *AtomLit) String() string      { return ":" + e.Name }
func (e *AtomLit) expressionNode()     {}

// BoolLit represents true or false
type BoolLit struct {
	Position lexer.Position
	Value    bool
}

func (e *BoolLit) Pos() lexer.Position { return e.Position }
func (e *BoolLit) String() string      { return fmt.Sprintf("%t", e.Value) }
func (e *BoolLit) expressionNode()     {}

// ListLit represents a list literal [a, b, c]
type ListLit struct {
	Position lexer.Position
	Elems    []Expression
}

func (e *ListLit) Pos() lexer.Position { return e.Position }
func (e *ListLit) String() string      { return exprList("[", e.Elems, "]") }
func (e *ListLit) expressionNode()     {}

// TupleLit represents a tuple literal {a, b, c}
type TupleLit struct {
	Position lexer.Position
	Elems    []Expression
}

func (e *TupleLit) Pos() lexer.Position { return e.Position }
func (e *TupleLit) String() string      { return exprList("{", e.Elems, "}") }
func (e *TupleLit) expressionNode()     {}

// Ident represents a variable reference
type Ident struct {
	Position lexer.Position
	Name     string
}

func (e *Ident) Pos() lexer.Position { return e.Position }
func (e *Ident) String() string      { return e.Name }
func (e *Ident) expressionNode()     {}

// CallExpr represents a builtin call: send, receive, self, yield, print,
// and registered agent tools.
type CallExpr struct {
	Position lexer.Position
	Name     string
	Args     []Expression
}

func (e *CallExpr) Pos() lexer.Position { return e.Position }
func (e *CallExpr) String() string      { return e.Name + exprList("(", e.Args, ")") }
func (e *CallExpr) expressionNode()     {}

// SpawnExpr represents spawning an actor: spawn name(args)
type SpawnExpr struct {
	Position lexer.Position
	Actor    string
	Args     []Expression
}

func (e *SpawnExpr) Pos() lexer.Position { return e.Position }
func (e *SpawnExpr) String() string      { return "spawn " + e.Actor + exprList("(", e.Args, ")") }
func (e *SpawnExpr) expressionNode()     {}

// UnaryExpr represents a prefix operation (- or !)
type UnaryExpr struct {
	Position lexer.Position
	Op       lexer.TokenType
	Operand  Expression
}

func (e *UnaryExpr) Pos() lexer.Position { return e.Position }
func (e *UnaryExpr) String() string      { return fmt.Sprintf("(%s%s)", opSymbols[e.Op], e.Operand) }
func (e *UnaryExpr) expressionNode()     {}

// BinaryExpr represents an infix operation
type BinaryExpr struct {
	Position lexer.Position
	Op       lexer.TokenType
	Left     Expression
	Right    Expression
}

func (e *BinaryExpr) Pos() lexer.Position { return e.Position }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, opSymbols[e.Op], e.Right)
}
func (e *BinaryExpr) expressionNode() {}

var opSymbols = map[lexer.TokenType]string{
	lexer.TokenPlus:  "+",
	lexer.TokenMinus: "-",
	lexer.TokenMul:   "*",
	lexer.TokenDiv:   "/",
	lexer.TokenMod:   "%",
	lexer.TokenEq:    "==",
	lexer.TokenNe:    "!=",
	lexer.TokenLt:    "<",
	lexer.TokenLe:    "<=",
	lexer.TokenGt:    ">",
	lexer.TokenGe:    ">=",
	lexer.TokenAnd:   "&&",
	lexer.TokenOr:    "||",
	lexer.TokenNot:   "!",
}

func exprList(open string, exprs []Expression, close string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return open + strings.Join(parts, ", ") + close
}

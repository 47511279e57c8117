package parser

import (
	"fmt"
	"strconv"

	"github.com/swarm-lang/swarm/internal/lexer"
)

// ParseError is a syntax error with its source position.
type ParseError struct {
	File string
	Pos  lexer.Position
	Msg  string
}

// Error returns a string representation of the parse error
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%s: %s", e.File, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Parser is a recursive-descent parser for swarm script.
type Parser struct {
	l    *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token
}

// New creates a parser over l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Prime cur and peek.
	p.next()
	p.next()
	return p
}

// ParseFile lexes and parses a whole source file.
func ParseFile(src, filename string) (*Program, error) {
	return New(lexer.New(src, filename)).Parse()
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(pos lexer.Position, format string, args ...any) error {
	return &ParseError{File: p.l.Filename(), Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// expect consumes the current token if it has type t, or fails.
func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if p.cur.Type == lexer.TokenError {
		return p.cur, p.errorf(p.cur.Pos, "%s", p.cur.Literal)
	}
	if p.cur.Type != t {
		return p.cur, p.errorf(p.cur.Pos, "expected %s, got %s (%q)", t, p.cur.Type, p.cur.Literal)
	}
	tok := p.cur
	p.next()
	return tok, nil
}

// Parse parses a program: an optional requires pragma followed by actor
// declarations.
func (p *Parser) Parse() (*Program, error) {
	prog := &Program{}

	if p.cur.Type == lexer.TokenRequires {
		p.next()
		tok, err := p.expect(lexer.TokenString)
		if err != nil {
			return nil, err
		}
		prog.Requires = tok.Literal
		if _, err := p.expect(lexer.TokenSemicolon); err != nil {
			return nil, err
		}
	}

	for p.cur.Type != lexer.TokenEOF {
		actor, err := p.parseActor()
		if err != nil {
			return nil, err
		}
		if _, dup := prog.Actor(actor.Name); dup {
			return nil, p.errorf(actor.Position, "actor %q redeclared", actor.Name)
		}
		prog.Actors = append(prog.Actors, actor)
	}
	return prog, nil
}

func (p *Parser) parseActor() (*ActorDecl, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.TokenActor); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}

	var params []string
	for p.cur.Type != lexer.TokenRParen {
		param, err := p.expect(lexer.TokenIdentifier)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Literal)
		if p.cur.Type == lexer.TokenComma {
			p.next()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ActorDecl{Position: pos, Name: name.Literal, Params: params, Body: body}, nil
}

func (p *Parser) parseBlock() ([]Statement, error) {
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	var stmts []Statement
	for p.cur.Type != lexer.TokenRBrace {
		if p.cur.Type == lexer.TokenEOF {
			return nil, p.errorf(p.cur.Pos, "unexpected end of input, expected '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.next() // consume '}'
	return stmts, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case lexer.TokenLet:
		return p.parseLet()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenIdentifier:
		if p.peek.Type == lexer.TokenAssign {
			return p.parseAssign()
		}
	}
	pos := p.cur.Pos
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &ExprStmt{Position: pos, Expr: expr}, nil
}

func (p *Parser) parseLet() (Statement, error) {
	pos := p.cur.Pos
	p.next() // consume 'let'
	name, err := p.expect(lexer.TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &LetStmt{Position: pos, Name: name.Literal, Value: value}, nil
}

func (p *Parser) parseAssign() (Statement, error) {
	pos := p.cur.Pos
	name := p.cur.Literal
	p.next() // consume identifier
	p.next() // consume '='
	value, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &AssignStmt{Position: pos, Name: name, Value: value}, nil
}

func (p *Parser) parseIf() (Statement, error) {
	pos := p.cur.Pos
	p.next() // consume 'if'
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var alt []Statement
	if p.cur.Type == lexer.TokenElse {
		p.next()
		if p.cur.Type == lexer.TokenIf {
			stmt, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			alt = []Statement{stmt}
		} else {
			alt, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
	}
	return &IfStmt{Position: pos, Cond: cond, Then: then, Else: alt}, nil
}

func (p *Parser) parseWhile() (Statement, error) {
	pos := p.cur.Pos
	p.next() // consume 'while'
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Position: pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn() (Statement, error) {
	pos := p.cur.Pos
	p.next() // consume 'return'
	if p.cur.Type == lexer.TokenSemicolon {
		p.next()
		return &ReturnStmt{Position: pos}, nil
	}
	value, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &ReturnStmt{Position: pos, Value: value}, nil
}

// Binding powers for infix operators. Higher binds tighter.
var precedences = map[lexer.TokenType]int{
	lexer.TokenOr:    1,
	lexer.TokenAnd:   2,
	lexer.TokenEq:    3,
	lexer.TokenNe:    3,
	lexer.TokenLt:    4,
	lexer.TokenLe:    4,
	lexer.TokenGt:    4,
	lexer.TokenGe:    4,
	lexer.TokenPlus:  5,
	lexer.TokenMinus: 5,
	lexer.TokenMul:   6,
	lexer.TokenDiv:   6,
	lexer.TokenMod:   6,
}

func (p *Parser) parseExpression(minPrec int) (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := precedences[p.cur.Type]
		if !ok || prec <= minPrec {
			return left, nil
		}
		op := p.cur.Type
		pos := p.cur.Pos
		p.next()
		right, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: pos, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (Expression, error) {
	switch p.cur.Type {
	case lexer.TokenMinus, lexer.TokenNot:
		pos := p.cur.Pos
		op := p.cur.Type
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Position: pos, Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case lexer.TokenInteger:
		v, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf(pos, "invalid integer literal %q", p.cur.Literal)
		}
		p.next()
		return &IntLit{Position: pos, Value: v}, nil

	case lexer.TokenFloat:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, p.errorf(pos, "invalid float literal %q", p.cur.Literal)
		}
		p.next()
		return &FloatLit{Position: pos, Value: v}, nil

	case lexer.TokenString:
		lit := p.cur.Literal
		p.next()
		return &StringLit{Position: pos, Value: lit}, nil

	case lexer.TokenAtom:
		name := p.cur.Literal
		p.next()
		return &AtomLit{Position: pos, Name: name}, nil

	case lexer.TokenTrue, lexer.TokenFalse:
		v := p.cur.Type == lexer.TokenTrue
		p.next()
		return &BoolLit{Position: pos, Value: v}, nil

	case lexer.TokenLBracket:
		p.next()
		elems, err := p.parseExprList(lexer.TokenRBracket)
		if err != nil {
			return nil, err
		}
		return &ListLit{Position: pos, Elems: elems}, nil

	case lexer.TokenLBrace:
		p.next()
		elems, err := p.parseExprList(lexer.TokenRBrace)
		if err != nil {
			return nil, err
		}
		return &TupleLit{Position: pos, Elems: elems}, nil

	case lexer.TokenLParen:
		p.next()
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	case lexer.TokenSpawn:
		p.next()
		name, err := p.expect(lexer.TokenIdentifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenLParen); err != nil {
			return nil, err
		}
		args, err := p.parseExprList(lexer.TokenRParen)
		if err != nil {
			return nil, err
		}
		return &SpawnExpr{Position: pos, Actor: name.Literal, Args: args}, nil

	case lexer.TokenIdentifier:
		name := p.cur.Literal
		p.next()
		if p.cur.Type == lexer.TokenLParen {
			p.next()
			args, err := p.parseExprList(lexer.TokenRParen)
			if err != nil {
				return nil, err
			}
			return &CallExpr{Position: pos, Name: name, Args: args}, nil
		}
		return &Ident{Position: pos, Name: name}, nil

	case lexer.TokenError:
		return nil, p.errorf(pos, "%s", p.cur.Literal)
	}
	return nil, p.errorf(pos, "unexpected %s (%q) in expression", p.cur.Type, p.cur.Literal)
}

// parseExprList parses a comma-separated expression list up to the closing
// token, consuming it.
func (p *Parser) parseExprList(closing lexer.TokenType) ([]Expression, error) {
	var exprs []Expression
	for p.cur.Type != closing {
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if p.cur.Type == lexer.TokenComma {
			p.next()
		} else {
			break
		}
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return exprs, nil
}

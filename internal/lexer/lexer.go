// Package lexer implements the swarm script lexical analyzer.
package lexer

import "fmt"

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types
const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier
	TokenInteger
	TokenFloat
	TokenString
	TokenAtom // :name

	// Keywords
	TokenActor
	TokenLet
	TokenIf
	TokenElse
	TokenWhile
	TokenReturn
	TokenSpawn
	TokenRequires
	TokenTrue
	TokenFalse

	// Operators
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenMod
	TokenAssign
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenAnd
	TokenOr
	TokenNot

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemicolon
)

// tokenNames provides string representations for token types
var tokenNames = map[TokenType]string{
	TokenEOF:   "EOF",
	TokenError: "ERROR",

	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenAtom:       "ATOM",

	TokenActor:    "ACTOR",
	TokenLet:      "LET",
	TokenIf:       "IF",
	TokenElse:     "ELSE",
	TokenWhile:    "WHILE",
	TokenReturn:   "RETURN",
	TokenSpawn:    "SPAWN",
	TokenRequires: "REQUIRES",
	TokenTrue:     "TRUE",
	TokenFalse:    "FALSE",

	TokenPlus:   "PLUS",
	TokenMinus:  "MINUS",
	TokenMul:    "MUL",
	TokenDiv:    "DIV",
	TokenMod:    "MOD",
	TokenAssign: "ASSIGN",
	TokenEq:     "EQ",
	TokenNe:     "NE",
	TokenLt:     "LT",
	TokenLe:     "LE",
	TokenGt:     "GT",
	TokenGe:     "GE",
	TokenAnd:    "AND",
	TokenOr:     "OR",
	TokenNot:    "NOT",

	TokenLParen:    "LPAREN",
	TokenRParen:    "RPAREN",
	TokenLBrace:    "LBRACE",
	TokenRBrace:    "RBRACE",
	TokenLBracket:  "LBRACKET",
	TokenRBracket:  "RBRACKET",
	TokenComma:     "COMMA",
	TokenSemicolon: "SEMICOLON",
}

// keywords maps string keywords to their token types
var keywords = map[string]TokenType{
	"actor":    TokenActor,
	"let":      TokenLet,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"return":   TokenReturn,
	"spawn":    TokenSpawn,
	"requires": TokenRequires,
	"true":     TokenTrue,
	"false":    TokenFalse,
}

// Position represents a position in the source code
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset in source
}

// String returns a string representation of the position
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token with position information
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal, t.Pos.Line, t.Pos.Column)
}

// Lexer performs lexical analysis of swarm script source
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position (after current char)
	ch           byte // current char under examination
	line         int
	column       int
	filename     string
}

// New creates a new lexer for the given input
func New(input, filename string) *Lexer {
	l := &Lexer{
		input:    input,
		filename: filename,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

// Filename returns the name of the source being lexed.
func (l *Lexer) Filename() string { return l.filename }

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // NUL represents EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespaceAndComments skips whitespace and // line comments
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// readIdentifier reads an identifier starting at the current character
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or float literal
func (l *Lexer) readNumber() (string, bool) {
	position := l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], isFloat
}

// readString reads a double-quoted string literal with escape sequences
func (l *Lexer) readString() (string, bool) {
	var out []byte
	l.readChar() // consume opening quote
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return string(out), false
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				return string(out), false
			}
			l.readChar()
			continue
		}
		out = append(out, l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return string(out), true
}

// NextToken scans and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := Position{Line: l.line, Column: l.column, Offset: l.position}
	tok := func(t TokenType, lit string) Token {
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return tok(TokenEOF, "")

	case isLetter(l.ch):
		lit := l.readIdentifier()
		if kw, ok := keywords[lit]; ok {
			return tok(kw, lit)
		}
		return tok(TokenIdentifier, lit)

	case isDigit(l.ch):
		lit, isFloat := l.readNumber()
		if isFloat {
			return tok(TokenFloat, lit)
		}
		return tok(TokenInteger, lit)

	case l.ch == '"':
		lit, ok := l.readString()
		if !ok {
			return tok(TokenError, "unterminated string literal")
		}
		return tok(TokenString, lit)

	case l.ch == ':':
		l.readChar()
		if !isLetter(l.ch) {
			return tok(TokenError, "expected atom name after ':'")
		}
		return tok(TokenAtom, l.readIdentifier())
	}

	ch := l.ch
	switch ch {
	case '+':
		l.readChar()
		return tok(TokenPlus, "+")
	case '-':
		l.readChar()
		return tok(TokenMinus, "-")
	case '*':
		l.readChar()
		return tok(TokenMul, "*")
	case '/':
		l.readChar()
		return tok(TokenDiv, "/")
	case '%':
		l.readChar()
		return tok(TokenMod, "%")
	case '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return tok(TokenEq, "==")
		}
		return tok(TokenAssign, "=")
	case '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return tok(TokenNe, "!=")
		}
		return tok(TokenNot, "!")
	case '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return tok(TokenLe, "<=")
		}
		return tok(TokenLt, "<")
	case '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return tok(TokenGe, ">=")
		}
		return tok(TokenGt, ">")
	case '&':
		l.readChar()
		if l.ch == '&' {
			l.readChar()
			return tok(TokenAnd, "&&")
		}
		return tok(TokenError, "expected '&&'")
	case '|':
		l.readChar()
		if l.ch == '|' {
			l.readChar()
			return tok(TokenOr, "||")
		}
		return tok(TokenError, "expected '||'")
	case '(':
		l.readChar()
		return tok(TokenLParen, "(")
	case ')':
		l.readChar()
		return tok(TokenRParen, ")")
	case '{':
		l.readChar()
		return tok(TokenLBrace, "{")
	case '}':
		l.readChar()
		return tok(TokenRBrace, "}")
	case '[':
		l.readChar()
		return tok(TokenLBracket, "[")
	case ']':
		l.readChar()
		return tok(TokenRBracket, "]")
	case ',':
		l.readChar()
		return tok(TokenComma, ",")
	case ';':
		l.readChar()
		return tok(TokenSemicolon, ";")
	}

	l.readChar()
	return tok(TokenError, fmt.Sprintf("unexpected character %q", string(ch)))
}

// Tokenize scans the whole input, stopping at EOF or the first error token
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		t := l.NextToken()
		tokens = append(tokens, t)
		if t.Type == TokenEOF || t.Type == TokenError {
			return tokens
		}
	}
}

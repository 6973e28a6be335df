// Package frontend - Lexer for SysY
// Design: Hand-written scanner, one token of lookahead for the parser
package frontend

import (
	"fmt"
	"unicode"
)

type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	INT
	IDENT

	// Keywords
	KW_INT
	KW_VOID
	CONST
	IF
	ELSE
	WHILE
	BREAK
	CONTINUE
	RETURN

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	BANG    // !
	EQ      // ==
	NE      // !=
	LT      // <
	LE      // <=
	GT      // >
	GE      // >=
	ANDAND  // &&
	OROR    // ||
	ASSIGN  // =

	// Delimiters
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	COMMA
	SEMICOLON
)

var tokenNames = map[TokenType]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL", INT: "integer", IDENT: "identifier",
	KW_INT: "'int'", KW_VOID: "'void'", CONST: "'const'", IF: "'if'", ELSE: "'else'",
	WHILE: "'while'", BREAK: "'break'", CONTINUE: "'continue'", RETURN: "'return'",
	PLUS: "'+'", MINUS: "'-'", STAR: "'*'", SLASH: "'/'", PERCENT: "'%'", BANG: "'!'",
	EQ: "'=='", NE: "'!='", LT: "'<'", LE: "'<='", GT: "'>'", GE: "'>='",
	ANDAND: "'&&'", OROR: "'||'", ASSIGN: "'='",
	LPAREN: "'('", RPAREN: "')'", LBRACE: "'{'", RBRACE: "'}'", COMMA: "','", SEMICOLON: "';'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"int":      KW_INT,
	"void":     KW_VOID,
	"const":    CONST,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
}

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Col    int
}

func (t Token) Pos() Pos {
	return Pos{Line: t.Line, Col: t.Col}
}

type Lexer struct {
	source []rune
	start  int
	pos    int
	line   int
	col    int

	startLine int
	startCol  int
}

func NewLexer(source string) *Lexer {
	return &Lexer{
		source: []rune(source),
		line:   1,
		col:    1,
	}
}

// Next returns the next token. Lexical errors come back as ILLEGAL tokens
// whose lexeme carries the message.
func (l *Lexer) Next() Token {
	if msg, ok := l.skipWhitespaceAndComments(); !ok {
		return l.error(msg)
	}

	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col

	if l.isAtEnd() {
		return Token{Type: EOF, Line: l.line, Col: l.col}
	}

	c := l.advance()

	switch c {
	case '+':
		return l.makeToken(PLUS)
	case '-':
		return l.makeToken(MINUS)
	case '*':
		return l.makeToken(STAR)
	case '/':
		return l.makeToken(SLASH)
	case '%':
		return l.makeToken(PERCENT)
	case '(':
		return l.makeToken(LPAREN)
	case ')':
		return l.makeToken(RPAREN)
	case '{':
		return l.makeToken(LBRACE)
	case '}':
		return l.makeToken(RBRACE)
	case ',':
		return l.makeToken(COMMA)
	case ';':
		return l.makeToken(SEMICOLON)
	case '=':
		if l.match('=') {
			return l.makeToken(EQ)
		}
		return l.makeToken(ASSIGN)
	case '!':
		if l.match('=') {
			return l.makeToken(NE)
		}
		return l.makeToken(BANG)
	case '<':
		if l.match('=') {
			return l.makeToken(LE)
		}
		return l.makeToken(LT)
	case '>':
		if l.match('=') {
			return l.makeToken(GE)
		}
		return l.makeToken(GT)
	case '&':
		if l.match('&') {
			return l.makeToken(ANDAND)
		}
	case '|':
		if l.match('|') {
			return l.makeToken(OROR)
		}
	}

	if isDigit(c) {
		return l.number()
	}

	if unicode.IsLetter(c) || c == '_' {
		return l.identifier()
	}

	return l.error(fmt.Sprintf("unexpected character: %q", c))
}

// Tokens lexes the whole input. It stops at the first ILLEGAL token.
func (l *Lexer) Tokens() ([]Token, error) {
	var toks []Token
	for {
		tok := l.Next()
		if tok.Type == ILLEGAL {
			return toks, fmt.Errorf("line %d, col %d: %s", tok.Line, tok.Col, tok.Lexeme)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) skipWhitespaceAndComments() (string, bool) {
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == '\n':
			l.advance()
			l.line++
			l.col = 1
		case unicode.IsSpace(c):
			l.advance()
		case c == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekNext() == '*':
			l.start = l.pos
			l.startLine, l.startCol = l.line, l.col
			l.advance()
			l.advance()
			closed := false
			for !l.isAtEnd() {
				if l.peek() == '*' && l.peekNext() == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				if l.advance() == '\n' {
					l.line++
					l.col = 1
				}
			}
			if !closed {
				return "unterminated block comment", false
			}
		default:
			return "", true
		}
	}
	return "", true
}

func (l *Lexer) number() Token {
	// Hex, octal and decimal all lex as a run of alphanumerics; the parser
	// validates the digits.
	for isDigit(l.peek()) || unicode.IsLetter(l.peek()) {
		l.advance()
	}
	return l.makeToken(INT)
}

func (l *Lexer) identifier() Token {
	for unicode.IsLetter(l.peek()) || isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}

	text := string(l.source[l.start:l.pos])
	if kw, ok := keywords[text]; ok {
		return l.makeToken(kw)
	}
	return l.makeToken(IDENT)
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return '\x00'
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return '\x00'
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	c := l.source[l.pos]
	l.pos++
	l.col++
	return c
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.pos++
	l.col++
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) makeToken(typ TokenType) Token {
	return Token{
		Type:   typ,
		Lexeme: string(l.source[l.start:l.pos]),
		Line:   l.startLine,
		Col:    l.startCol,
	}
}

func (l *Lexer) error(msg string) Token {
	return Token{
		Type:   ILLEGAL,
		Lexeme: msg,
		Line:   l.startLine,
		Col:    l.startCol,
	}
}

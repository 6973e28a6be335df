// Package frontend - Recursive descent parser for SysY
// Design: Predictive parsing, clear error messages, zero backtracking
package frontend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

type Parser struct {
	toks    []Token
	pos     int
	current Token
	errors  []string
}

func NewParser(source string) *Parser {
	toks, err := NewLexer(source).Tokens()
	p := &Parser{toks: toks}
	if err != nil {
		p.errors = append(p.errors, err.Error())
		// Parse the prefix that did lex so the loop below terminates.
		last := Token{Type: EOF}
		if len(toks) > 0 {
			last.Line, last.Col = toks[len(toks)-1].Line, toks[len(toks)-1].Col
		}
		p.toks = append(p.toks, last)
	}
	p.current = p.toks[0]
	return p
}

// Parse is a convenience wrapper: NewParser(source).Parse()
func Parse(source string) (*CompUnit, error) {
	return NewParser(source).Parse()
}

func (p *Parser) Parse() (*CompUnit, error) {
	logger.LogLexing("", len(p.toks))
	unit := &CompUnit{}

	for !p.check(EOF) && len(p.errors) == 0 {
		if item := p.globalItem(); item != nil {
			unit.Items = append(unit.Items, item)
		}
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse errors: %s", strings.Join(p.errors, "; "))
	}

	logger.LogParsing("", len(unit.Items))
	return unit, nil
}

func (p *Parser) globalItem() GlobalItem {
	if p.check(CONST) {
		return p.constDecl()
	}

	if !p.check(KW_INT) && !p.check(KW_VOID) {
		p.error(fmt.Sprintf("expected declaration or function definition, found %s", p.current.Type))
		return nil
	}

	if p.peek(1).Type == IDENT && p.peek(2).Type == LPAREN {
		return p.funcDef()
	}
	return p.varDecl()
}

func (p *Parser) funcDef() *FuncDef {
	fn := &FuncDef{Pos: p.current.Pos(), RetType: p.bType()}

	if !p.check(IDENT) {
		p.error("expected function name")
		return nil
	}
	fn.Name = p.advance().Lexeme

	if !p.consume(LPAREN, "expected '('") {
		return nil
	}

	if !p.check(RPAREN) {
		for {
			param := FuncParam{Pos: p.current.Pos()}
			if !p.check(KW_INT) && !p.check(KW_VOID) {
				p.error("expected parameter type")
				return nil
			}
			param.Type = p.bType()
			if !p.check(IDENT) {
				p.error("expected parameter name")
				return nil
			}
			param.Name = p.advance().Lexeme
			fn.Params = append(fn.Params, param)

			if !p.check(COMMA) {
				break
			}
			p.advance()
		}
	}

	if !p.consume(RPAREN, "expected ')'") {
		return nil
	}

	fn.Body = p.block()
	if fn.Body == nil {
		return nil
	}
	return fn
}

func (p *Parser) bType() BType {
	tok := p.advance()
	if tok.Type == KW_VOID {
		return TypeVoid
	}
	return TypeInt
}

func (p *Parser) constDecl() *ConstDecl {
	p.advance() // const
	if !p.check(KW_INT) && !p.check(KW_VOID) {
		p.error("expected type after 'const'")
		return nil
	}
	decl := &ConstDecl{Type: p.bType()}

	for {
		if !p.check(IDENT) {
			p.error("expected constant name")
			return nil
		}
		def := ConstDef{Pos: p.current.Pos(), Name: p.advance().Lexeme}
		if !p.consume(ASSIGN, "expected '=' in constant definition") {
			return nil
		}
		if def.Init = p.expression(); def.Init == nil {
			return nil
		}
		decl.Defs = append(decl.Defs, def)

		if !p.check(COMMA) {
			break
		}
		p.advance()
	}

	if !p.consume(SEMICOLON, "expected ';'") {
		return nil
	}
	return decl
}

func (p *Parser) varDecl() *VarDecl {
	decl := &VarDecl{Type: p.bType()}

	for {
		if !p.check(IDENT) {
			p.error("expected variable name")
			return nil
		}
		def := VarDef{Pos: p.current.Pos(), Name: p.advance().Lexeme}
		if p.check(ASSIGN) {
			p.advance()
			if def.Init = p.expression(); def.Init == nil {
				return nil
			}
		}
		decl.Defs = append(decl.Defs, def)

		if !p.check(COMMA) {
			break
		}
		p.advance()
	}

	if !p.consume(SEMICOLON, "expected ';'") {
		return nil
	}
	return decl
}

func (p *Parser) block() *Block {
	if !p.consume(LBRACE, "expected '{'") {
		return nil
	}

	blk := &Block{}
	for !p.check(RBRACE) && !p.check(EOF) && len(p.errors) == 0 {
		if item := p.blockItem(); item != nil {
			blk.Items = append(blk.Items, item)
		}
	}

	if !p.consume(RBRACE, "expected '}'") {
		return nil
	}
	return blk
}

func (p *Parser) blockItem() BlockItem {
	switch {
	case p.check(CONST):
		if d := p.constDecl(); d != nil {
			return d
		}
		return nil
	case p.check(KW_INT) || p.check(KW_VOID):
		if d := p.varDecl(); d != nil {
			return d
		}
		return nil
	default:
		if s := p.statement(); s != nil {
			return s
		}
		return nil
	}
}

func (p *Parser) statement() Stmt {
	switch p.current.Type {
	case LBRACE:
		if b := p.block(); b != nil {
			return b
		}
		return nil

	case IF:
		p.advance()
		cond := p.parenCond()
		if cond == nil {
			return nil
		}
		then := p.statement()
		if then == nil {
			return nil
		}
		s := &IfStmt{Cond: cond, Then: then}
		// Dangling else binds to the nearest if.
		if p.check(ELSE) {
			p.advance()
			if s.Else = p.statement(); s.Else == nil {
				return nil
			}
		}
		return s

	case WHILE:
		p.advance()
		cond := p.parenCond()
		if cond == nil {
			return nil
		}
		body := p.statement()
		if body == nil {
			return nil
		}
		return &WhileStmt{Cond: cond, Body: body}

	case BREAK:
		pos := p.advance().Pos()
		if !p.consume(SEMICOLON, "expected ';' after 'break'") {
			return nil
		}
		return &BreakStmt{Pos: pos}

	case CONTINUE:
		pos := p.advance().Pos()
		if !p.consume(SEMICOLON, "expected ';' after 'continue'") {
			return nil
		}
		return &ContinueStmt{Pos: pos}

	case RETURN:
		s := &ReturnStmt{Pos: p.advance().Pos()}
		if !p.check(SEMICOLON) {
			if s.Value = p.expression(); s.Value == nil {
				return nil
			}
		}
		if !p.consume(SEMICOLON, "expected ';' after return") {
			return nil
		}
		return s

	case SEMICOLON:
		p.advance()
		return &ExprStmt{}
	}

	if p.check(IDENT) && p.peek(1).Type == ASSIGN {
		target := &LVal{Pos: p.current.Pos(), Name: p.advance().Lexeme}
		p.advance() // =
		value := p.expression()
		if value == nil {
			return nil
		}
		if !p.consume(SEMICOLON, "expected ';' after assignment") {
			return nil
		}
		return &AssignStmt{Target: target, Value: value}
	}

	x := p.expression()
	if x == nil {
		return nil
	}
	if !p.consume(SEMICOLON, "expected ';' after expression") {
		return nil
	}
	return &ExprStmt{X: x}
}

func (p *Parser) parenCond() Expr {
	if !p.consume(LPAREN, "expected '('") {
		return nil
	}
	cond := p.expression()
	if cond == nil {
		return nil
	}
	if !p.consume(RPAREN, "expected ')'") {
		return nil
	}
	return cond
}

func (p *Parser) expression() Expr {
	return p.logicalOr()
}

// binaryLevel parses a left-associative chain of operators drawn from ops,
// with operands produced by next.
func (p *Parser) binaryLevel(next func() Expr, ops map[TokenType]BinaryOp) Expr {
	expr := next()
	if expr == nil {
		return nil
	}

	for {
		op, ok := ops[p.current.Type]
		if !ok {
			return expr
		}
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		expr = &BinaryExpr{Op: op, L: expr, R: right}
	}
}

var (
	orOps   = map[TokenType]BinaryOp{OROR: LOr}
	andOps  = map[TokenType]BinaryOp{ANDAND: LAnd}
	eqOps   = map[TokenType]BinaryOp{EQ: Eq, NE: Ne}
	relOps  = map[TokenType]BinaryOp{LT: Lt, GT: Gt, LE: Le, GE: Ge}
	addOps  = map[TokenType]BinaryOp{PLUS: Add, MINUS: Sub}
	mulOps  = map[TokenType]BinaryOp{STAR: Mul, SLASH: Div, PERCENT: Mod}
	unaryOp = map[TokenType]UnaryOp{PLUS: Plus, MINUS: Minus, BANG: Not}
)

func (p *Parser) logicalOr() Expr      { return p.binaryLevel(p.logicalAnd, orOps) }
func (p *Parser) logicalAnd() Expr     { return p.binaryLevel(p.equality, andOps) }
func (p *Parser) equality() Expr       { return p.binaryLevel(p.relational, eqOps) }
func (p *Parser) relational() Expr     { return p.binaryLevel(p.additive, relOps) }
func (p *Parser) additive() Expr       { return p.binaryLevel(p.multiplicative, addOps) }
func (p *Parser) multiplicative() Expr { return p.binaryLevel(p.unary, mulOps) }

func (p *Parser) unary() Expr {
	if op, ok := unaryOp[p.current.Type]; ok {
		p.advance()
		x := p.unary()
		if x == nil {
			return nil
		}
		return &UnaryExpr{Op: op, X: x}
	}
	return p.primary()
}

func (p *Parser) primary() Expr {
	switch p.current.Type {
	case INT:
		tok := p.advance()
		val, err := ParseIntLiteral(tok.Lexeme)
		if err != nil {
			p.errorAt(tok, err.Error())
			return nil
		}
		return &Number{Value: val}

	case IDENT:
		tok := p.advance()

		// Check for function call
		if p.check(LPAREN) {
			p.advance()

			call := &CallExpr{Pos: tok.Pos(), Func: tok.Lexeme}
			if !p.check(RPAREN) {
				for {
					arg := p.expression()
					if arg == nil {
						return nil
					}
					call.Args = append(call.Args, arg)
					if !p.check(COMMA) {
						break
					}
					p.advance()
				}
			}

			if !p.consume(RPAREN, "expected ')'") {
				return nil
			}
			return call
		}

		return &LVal{Pos: tok.Pos(), Name: tok.Lexeme}

	case LPAREN:
		p.advance()
		expr := p.expression()
		if expr == nil {
			return nil
		}
		if !p.consume(RPAREN, "expected ')'") {
			return nil
		}
		return expr
	}

	p.error(fmt.Sprintf("unexpected token: %s", p.current.Type))
	return nil
}

// ParseIntLiteral parses a SysY integer constant (decimal, 0-prefixed octal,
// 0x-prefixed hex). Values up to 2^32-1 are accepted and wrap to int32, which
// lets `-2147483648` be written as a negated literal.
func ParseIntLiteral(lexeme string) (int32, error) {
	digits, base := lexeme, 10
	switch {
	case strings.HasPrefix(lexeme, "0x") || strings.HasPrefix(lexeme, "0X"):
		digits, base = lexeme[2:], 16
	case len(lexeme) > 1 && lexeme[0] == '0':
		digits, base = lexeme[1:], 8
	}
	if digits == "" || strings.ContainsRune(digits, '_') {
		return 0, fmt.Errorf("invalid integer literal %q", lexeme)
	}

	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", lexeme)
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("integer literal %q out of range", lexeme)
	}
	return int32(uint32(v)), nil
}

func (p *Parser) peek(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) check(typ TokenType) bool {
	return p.current.Type == typ
}

func (p *Parser) advance() Token {
	prev := p.current
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	p.current = p.toks[p.pos]
	return prev
}

func (p *Parser) consume(typ TokenType, msg string) bool {
	if p.check(typ) {
		p.advance()
		return true
	}
	p.error(msg)
	return false
}

func (p *Parser) error(msg string) {
	p.errorAt(p.current, msg)
}

func (p *Parser) errorAt(tok Token, msg string) {
	errMsg := fmt.Sprintf("line %d, col %d: %s", tok.Line, tok.Col, msg)
	p.errors = append(p.errors, errMsg)
}

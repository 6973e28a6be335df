// Package frontend implements SysY parsing and AST construction.
//
// Design: Minimal, focused on correctness. No fancy optimizations here.
// The AST is plain data; semantic rules live in the IR builder.
package frontend

import "fmt"

// Pos is a 1-based source position
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// AST node types
type Node interface {
	node()
}

// CompUnit is the root of a translation unit: declarations and function
// definitions in source order.
type CompUnit struct {
	Items []GlobalItem
}

func (CompUnit) node() {}

// GlobalItem is a top-level Decl or *FuncDef
type GlobalItem interface {
	Node
	globalItem()
}

// BlockItem is a Decl or a Stmt inside a block
type BlockItem interface {
	Node
	blockItem()
}

type Decl interface {
	GlobalItem
	BlockItem
	decl()
}

type Stmt interface {
	BlockItem
	stmt()
}

type Expr interface {
	Node
	expr()
}

// BType is a declared base type
type BType int

const (
	TypeInt BType = iota
	TypeVoid
)

func (t BType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeVoid:
		return "void"
	default:
		return fmt.Sprintf("BType(%d)", int(t))
	}
}

// Declarations
type ConstDecl struct {
	Type BType
	Defs []ConstDef
}

func (ConstDecl) node()       {}
func (ConstDecl) globalItem() {}
func (ConstDecl) blockItem()  {}
func (ConstDecl) decl()       {}

type ConstDef struct {
	Pos  Pos
	Name string
	Init Expr
}

type VarDecl struct {
	Type BType
	Defs []VarDef
}

func (VarDecl) node()       {}
func (VarDecl) globalItem() {}
func (VarDecl) blockItem()  {}
func (VarDecl) decl()       {}

type VarDef struct {
	Pos  Pos
	Name string
	Init Expr // nil when absent
}

type FuncDef struct {
	Pos     Pos
	RetType BType
	Name    string
	Params  []FuncParam
	Body    *Block
}

func (FuncDef) node()       {}
func (FuncDef) globalItem() {}

type FuncParam struct {
	Pos  Pos
	Type BType
	Name string
}

// Statements
type Block struct {
	Items []BlockItem
}

func (Block) node()      {}
func (Block) blockItem() {}
func (Block) stmt()      {}

type AssignStmt struct {
	Target *LVal
	Value  Expr
}

func (AssignStmt) node()      {}
func (AssignStmt) blockItem() {}
func (AssignStmt) stmt()      {}

// ExprStmt is `[Exp] ;`; X is nil for the empty statement
type ExprStmt struct {
	X Expr
}

func (ExprStmt) node()      {}
func (ExprStmt) blockItem() {}
func (ExprStmt) stmt()      {}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
}

func (IfStmt) node()      {}
func (IfStmt) blockItem() {}
func (IfStmt) stmt()      {}

type WhileStmt struct {
	Cond Expr
	Body Stmt
}

func (WhileStmt) node()      {}
func (WhileStmt) blockItem() {}
func (WhileStmt) stmt()      {}

type BreakStmt struct {
	Pos Pos
}

func (BreakStmt) node()      {}
func (BreakStmt) blockItem() {}
func (BreakStmt) stmt()      {}

type ContinueStmt struct {
	Pos Pos
}

func (ContinueStmt) node()      {}
func (ContinueStmt) blockItem() {}
func (ContinueStmt) stmt()      {}

type ReturnStmt struct {
	Pos   Pos
	Value Expr // nil when absent
}

func (ReturnStmt) node()      {}
func (ReturnStmt) blockItem() {}
func (ReturnStmt) stmt()      {}

// Expressions
type Number struct {
	Value int32
}

func (Number) node() {}
func (Number) expr() {}

type LVal struct {
	Pos  Pos
	Name string
}

func (LVal) node() {}
func (LVal) expr() {}

type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

func (UnaryExpr) node() {}
func (UnaryExpr) expr() {}

type BinaryExpr struct {
	Op BinaryOp
	L  Expr
	R  Expr
}

func (BinaryExpr) node() {}
func (BinaryExpr) expr() {}

type CallExpr struct {
	Pos  Pos
	Func string
	Args []Expr
}

func (CallExpr) node() {}
func (CallExpr) expr() {}

type UnaryOp int

const (
	Plus UnaryOp = iota
	Minus
	Not
)

type BinaryOp int

const (
	Mul BinaryOp = iota
	Div
	Mod
	Add
	Sub
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
	LAnd
	LOr
)

var binaryOpNames = [...]string{
	Mul: "*", Div: "/", Mod: "%", Add: "+", Sub: "-",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", Eq: "==", Ne: "!=",
	LAnd: "&&", LOr: "||",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

func (op UnaryOp) String() string {
	switch op {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Not:
		return "!"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

// Package ir implements the intermediate representation.
//
// Design: Koopa-style register-transfer IR, explicit control flow, strongly typed.
// Mutable variables live in Alloc slots accessed through Load/Store; there are
// no phi nodes. Values are arena indices owned by their Function.
package ir

import "fmt"

// Program is the top-level IR container
type Program struct {
	Globals   []*Global
	Functions []*Function
}

// Global is a module-level i32 variable
type Global struct {
	Name string
	Init int32
}

// Function represents a compiled (or declared) function
type Function struct {
	Name       string
	Params     []Value
	ParamTypes []Type
	ReturnType Type
	Blocks     []*BasicBlock

	values []ValueData
}

// Value is a handle into the owning function's value arena
type Value int

// NoValue marks an absent value: a void call result or a valueless return
const NoValue Value = -1

// ValueData is the arena entry behind a Value
type ValueData struct {
	Kind Kind
	Type Type
	Name string // optional source name, e.g. the variable an Alloc backs
}

// BasicBlock is straight-line code ending in exactly one terminator
type BasicBlock struct {
	Label string
	Insts []Value
	Term  Value
}

// Kind is the tagged variant behind a value
type Kind interface {
	kind()
}

// Terminator kinds end a basic block (branch, jump, return)
type Terminator interface {
	Kind
	term()
}

// Operands
type Integer struct {
	Val int32
}

func (Integer) kind() {}

// FuncArg is the Index-th incoming argument of the function
type FuncArg struct {
	Index int
}

func (FuncArg) kind() {}

// GlobalRef is the address of a module-level variable
type GlobalRef struct {
	Global *Global
}

func (GlobalRef) kind() {}

// Instructions
type Alloc struct {
	Elem Type
}

func (Alloc) kind() {}

type Load struct {
	Src Value
}

func (Load) kind() {}

type Store struct {
	Val  Value
	Dest Value
}

func (Store) kind() {}

type Binary struct {
	Op Op
	L  Value
	R  Value
}

func (Binary) kind() {}

type Call struct {
	Callee *Function
	Args   []Value
}

func (Call) kind() {}

// Terminators
type Branch struct {
	Cond  Value
	True  *BasicBlock
	False *BasicBlock
}

func (Branch) kind() {}
func (Branch) term() {}

type Jump struct {
	Target *BasicBlock
}

func (Jump) kind() {}
func (Jump) term() {}

type Return struct {
	Val Value // NoValue for a void return
}

func (Return) kind() {}
func (Return) term() {}

// Types
type Type interface {
	typ()
	String() string
}

type IntType struct{}

func (IntType) typ()           {}
func (IntType) String() string { return "i32" }

type UnitType struct{}

func (UnitType) typ()           {}
func (UnitType) String() string { return "unit" }

type PtrType struct {
	Elem Type
}

func (PtrType) typ()             {}
func (t PtrType) String() string { return "*" + t.Elem.String() }

// IsUnit reports whether t is the unit type
func IsUnit(t Type) bool {
	_, ok := t.(UnitType)
	return ok
}

// Operations
type Op int

const (
	OpNe Op = iota
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
)

var opNames = [...]string{
	OpNe: "ne", OpEq: "eq", OpGt: "gt", OpLt: "lt", OpGe: "ge", OpLe: "le",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// NewFunction creates a function and its FuncArg values
func NewFunction(name string, paramTypes []Type, ret Type) *Function {
	fn := &Function{
		Name:       name,
		ParamTypes: paramTypes,
		ReturnType: ret,
	}
	for i, t := range paramTypes {
		fn.Params = append(fn.Params, fn.NewValue(FuncArg{Index: i}, t))
	}
	return fn
}

// IsDecl reports whether fn is a body-less declaration
func (fn *Function) IsDecl() bool {
	return len(fn.Blocks) == 0
}

// NewValue adds a value to the arena. It is not placed in any block.
func (fn *Function) NewValue(k Kind, t Type) Value {
	fn.values = append(fn.values, ValueData{Kind: k, Type: t})
	return Value(len(fn.values) - 1)
}

// Integer returns a fresh literal value
func (fn *Function) Integer(n int32) Value {
	return fn.NewValue(Integer{Val: n}, IntType{})
}

// Value returns the arena entry for v
func (fn *Function) Value(v Value) *ValueData {
	return &fn.values[v]
}

// NumValues is the arena size
func (fn *Function) NumValues() int {
	return len(fn.values)
}

// Literal reports whether v is an integer literal and returns it
func (fn *Function) Literal(v Value) (int32, bool) {
	if v == NoValue {
		return 0, false
	}
	i, ok := fn.values[v].Kind.(Integer)
	return i.Val, ok
}

// NewBlock creates a block. It is laid out separately with AddBlock.
func NewBlock(label string) *BasicBlock {
	return &BasicBlock{Label: label, Term: NoValue}
}

// AddBlock appends bb to the function layout
func (fn *Function) AddBlock(bb *BasicBlock) {
	fn.Blocks = append(fn.Blocks, bb)
}

// Entry returns the first laid-out block, or nil for declarations
func (fn *Function) Entry() *BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	return fn.Blocks[0]
}

// Terminated reports whether bb already ends in its terminator
func (bb *BasicBlock) Terminated() bool {
	return bb.Term != NoValue
}

// Append adds a non-terminator instruction
func (bb *BasicBlock) Append(fn *Function, v Value) {
	if bb.Terminated() {
		panic(fmt.Sprintf("ir: instruction appended to terminated block %%%s", bb.Label))
	}
	if _, ok := fn.Value(v).Kind.(Terminator); ok {
		panic(fmt.Sprintf("ir: terminator appended as instruction in %%%s", bb.Label))
	}
	bb.Insts = append(bb.Insts, v)
}

// SetTerm sets the single terminator of bb
func (bb *BasicBlock) SetTerm(fn *Function, v Value) {
	if bb.Terminated() {
		panic(fmt.Sprintf("ir: block %%%s already terminated", bb.Label))
	}
	if _, ok := fn.Value(v).Kind.(Terminator); !ok {
		panic(fmt.Sprintf("ir: non-terminator set as terminator of %%%s", bb.Label))
	}
	bb.Term = v
}

// Successors returns the blocks bb's terminator may transfer control to
func (fn *Function) Successors(bb *BasicBlock) []*BasicBlock {
	if !bb.Terminated() {
		return nil
	}
	switch t := fn.Value(bb.Term).Kind.(type) {
	case Branch:
		return []*BasicBlock{t.True, t.False}
	case Jump:
		return []*BasicBlock{t.Target}
	default:
		return nil
	}
}

// Function helpers used by the builder and tests

// Alloc creates an alloc of elem in bb
func (fn *Function) Alloc(bb *BasicBlock, elem Type, name string) Value {
	v := fn.NewValue(Alloc{Elem: elem}, PtrType{Elem: elem})
	fn.values[v].Name = name
	bb.Append(fn, v)
	return v
}

// Load creates a load from src in bb
func (fn *Function) Load(bb *BasicBlock, src Value) Value {
	elem := Type(IntType{})
	if p, ok := fn.values[src].Type.(PtrType); ok {
		elem = p.Elem
	}
	v := fn.NewValue(Load{Src: src}, elem)
	bb.Append(fn, v)
	return v
}

// Store creates a store of val to dest in bb
func (fn *Function) Store(bb *BasicBlock, val, dest Value) Value {
	v := fn.NewValue(Store{Val: val, Dest: dest}, UnitType{})
	bb.Append(fn, v)
	return v
}

// Binary creates a binary operation in bb
func (fn *Function) Binary(bb *BasicBlock, op Op, l, r Value) Value {
	v := fn.NewValue(Binary{Op: op, L: l, R: r}, IntType{})
	bb.Append(fn, v)
	return v
}

// Call creates a call in bb; the result is unit-typed for void callees
func (fn *Function) Call(bb *BasicBlock, callee *Function, args []Value) Value {
	v := fn.NewValue(Call{Callee: callee, Args: args}, callee.ReturnType)
	bb.Append(fn, v)
	return v
}

// Branch terminates bb with a conditional branch
func (fn *Function) Branch(bb *BasicBlock, cond Value, t, f *BasicBlock) {
	bb.SetTerm(fn, fn.NewValue(Branch{Cond: cond, True: t, False: f}, UnitType{}))
}

// Jump terminates bb with an unconditional jump
func (fn *Function) Jump(bb *BasicBlock, target *BasicBlock) {
	bb.SetTerm(fn, fn.NewValue(Jump{Target: target}, UnitType{}))
}

// Return terminates bb with a return of val (NoValue for void)
func (fn *Function) Return(bb *BasicBlock, val Value) {
	bb.SetTerm(fn, fn.NewValue(Return{Val: val}, UnitType{}))
}

// GlobalRef returns a value addressing g inside fn
func (fn *Function) GlobalRef(g *Global) Value {
	return fn.NewValue(GlobalRef{Global: g}, PtrType{Elem: IntType{}})
}

// Package ir - AST to IR conversion
// Design: Single pass, explicit control flow, alloca-style locals
package ir

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

// Builder lowers one CompUnit. It is single-use.
type Builder struct {
	prog   *Program
	scopes *Scopes

	fn      *Function
	bb      *BasicBlock
	exit    *BasicBlock
	retSlot Value
	loop    *loopContext
	globals map[*Global]Value // GlobalRef values materialized in fn

	// Label ids, never reset or reused
	branchID int
	whileID  int
	andID    int
	orID     int
}

type loopContext struct {
	cond *BasicBlock
	end  *BasicBlock
}

// runtimeLibrary is declared in the global scope before any user code
var runtimeLibrary = []struct {
	name   string
	params int
	ret    Type
}{
	{"getint", 0, IntType{}},
	{"getch", 0, IntType{}},
	{"putint", 1, UnitType{}},
	{"putch", 1, UnitType{}},
	{"starttime", 0, UnitType{}},
	{"stoptime", 0, UnitType{}},
}

func NewBuilder() *Builder {
	return &Builder{
		prog:    &Program{},
		scopes:  NewScopes(),
		retSlot: NoValue,
	}
}

// Build lowers a whole translation unit. The first error aborts the build.
func Build(unit *frontend.CompUnit) (*Program, error) {
	return NewBuilder().Build(unit)
}

func (b *Builder) Build(unit *frontend.CompUnit) (*Program, error) {
	logger.Debug("Building IR from AST", "items", len(unit.Items))

	for _, lib := range runtimeLibrary {
		params := make([]Type, lib.params)
		for i := range params {
			params[i] = IntType{}
		}
		fn := NewFunction(lib.name, params, lib.ret)
		b.prog.Functions = append(b.prog.Functions, fn)
		if err := b.scopes.DeclareGlobal(lib.name, Symbol{Kind: SymFunction, Func: fn}, frontend.Pos{}); err != nil {
			return nil, err
		}
	}

	for _, item := range unit.Items {
		var err error
		switch it := item.(type) {
		case *frontend.FuncDef:
			logger.Debug("Building function", "name", it.Name)
			err = b.buildFunction(it)
		case *frontend.ConstDecl:
			err = b.buildConstDecl(it)
		case *frontend.VarDecl:
			err = b.buildGlobalVar(it)
		default:
			err = fmt.Errorf("unsupported top-level item %T", item)
		}
		if err != nil {
			logger.Error("IR build failed", "error", err)
			return nil, err
		}
	}

	logger.Info("IR build complete", "functions", len(b.prog.Functions), "globals", len(b.prog.Globals))
	return b.prog, nil
}

func (b *Builder) buildGlobalVar(decl *frontend.VarDecl) error {
	for _, def := range decl.Defs {
		if decl.Type != frontend.TypeInt {
			return newError(UnknownType, def.Name, def.Pos)
		}
		g := &Global{Name: def.Name}
		if def.Init != nil {
			v, err := EvalConst(def.Init, b.scopes)
			if err != nil {
				return withPos(err, def.Pos)
			}
			g.Init = v
		}
		if err := b.scopes.Declare(def.Name, Symbol{Kind: SymVariable, Glob: g}, def.Pos); err != nil {
			return err
		}
		b.prog.Globals = append(b.prog.Globals, g)
	}
	return nil
}

func (b *Builder) buildFunction(def *frontend.FuncDef) error {
	ret := Type(IntType{})
	if def.RetType == frontend.TypeVoid {
		ret = UnitType{}
	}

	paramTypes := make([]Type, len(def.Params))
	for i, p := range def.Params {
		if p.Type != frontend.TypeInt {
			return newError(UnknownType, p.Name, p.Pos)
		}
		paramTypes[i] = IntType{}
	}

	fn := NewFunction(def.Name, paramTypes, ret)
	// Registered before the body so recursion resolves.
	if err := b.scopes.DeclareGlobal(def.Name, Symbol{Kind: SymFunction, Func: fn}, def.Pos); err != nil {
		return err
	}
	b.prog.Functions = append(b.prog.Functions, fn)

	b.fn = fn
	b.globals = map[*Global]Value{}
	b.retSlot = NoValue
	b.loop = nil
	defer func() {
		b.fn, b.bb, b.exit, b.globals = nil, nil, nil, nil
	}()

	entry := NewBlock("entry")
	fn.AddBlock(entry)
	b.bb = entry
	// The exit block is laid out last, after the body.
	b.exit = NewBlock("exit")

	if !IsUnit(ret) {
		b.retSlot = fn.Alloc(entry, IntType{}, "%ret")
	}

	b.scopes.Push()
	defer b.scopes.Pop()

	for i, p := range def.Params {
		fn.Value(fn.Params[i]).Name = p.Name
		slot := fn.Alloc(entry, IntType{}, p.Name)
		fn.Store(entry, fn.Params[i], slot)
		if err := b.scopes.Declare(p.Name, Symbol{Kind: SymVariable, Var: slot}, p.Pos); err != nil {
			return err
		}
	}

	// Parameters and the outermost body block share one scope.
	if err := b.buildItems(def.Body.Items); err != nil {
		return err
	}

	if !b.bb.Terminated() {
		fn.Jump(b.bb, b.exit)
	}

	fn.AddBlock(b.exit)
	if IsUnit(ret) {
		fn.Return(b.exit, NoValue)
	} else {
		fn.Return(b.exit, fn.Load(b.exit, b.retSlot))
	}

	logger.LogIRGeneration(fn.Name, len(fn.Blocks), fn.NumValues())
	return nil
}

func (b *Builder) buildConstDecl(decl *frontend.ConstDecl) error {
	for _, def := range decl.Defs {
		if decl.Type != frontend.TypeInt {
			return newError(UnknownType, def.Name, def.Pos)
		}
		v, err := EvalConst(def.Init, b.scopes)
		if err != nil {
			return withPos(err, def.Pos)
		}
		if err := b.scopes.Declare(def.Name, Symbol{Kind: SymConst, Const: v}, def.Pos); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildVarDecl(decl *frontend.VarDecl) error {
	for _, def := range decl.Defs {
		if decl.Type != frontend.TypeInt {
			return newError(UnknownType, def.Name, def.Pos)
		}
		slot := b.fn.Alloc(b.bb, IntType{}, def.Name)
		if err := b.scopes.Declare(def.Name, Symbol{Kind: SymVariable, Var: slot}, def.Pos); err != nil {
			return err
		}
		// The name is already visible here: `int a = a;` reads the new slot.
		if def.Init != nil {
			v, err := b.buildValue(def.Init)
			if err != nil {
				return err
			}
			b.fn.Store(b.bb, v, slot)
		}
	}
	return nil
}

// newBlock creates a labelled block and lays it out
func (b *Builder) newBlock(prefix string, id int) *BasicBlock {
	bb := NewBlock(fmt.Sprintf("%s_%d", prefix, id))
	b.fn.AddBlock(bb)
	return bb
}

// varSlot returns the address value backing a variable symbol in the current function
func (b *Builder) varSlot(sym Symbol) Value {
	if sym.Glob == nil {
		return sym.Var
	}
	if v, ok := b.globals[sym.Glob]; ok {
		return v
	}
	v := b.fn.GlobalRef(sym.Glob)
	b.globals[sym.Glob] = v
	return v
}

// withPos fills in a missing source position on a BuildError
func withPos(err error, pos frontend.Pos) error {
	if be, ok := err.(*BuildError); ok && be.Pos.Line == 0 {
		be.Pos = pos
	}
	return err
}

// Package riscv32 implements RISC-V 32-bit (RV32IM) code generation.
//
// Design: Every IR value lives in a 4-byte stack slot; instructions are
// selected one at a time through fixed scratch registers. No register
// allocation, no block reordering, sp-relative addressing only.
package riscv32

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

var (
	// ErrMissingReturnValue is returned when an i32 function returns nothing
	ErrMissingReturnValue = errors.New("missing return value")
	// ErrUnexpectedInstruction is returned for value kinds with no lowering
	ErrUnexpectedInstruction = errors.New("unexpected instruction kind reached codegen")
)

// RISC-V calling convention (RV32I ILP32)
var (
	// Argument registers a0-a7
	ArgRegs = []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	// Return register
	RetReg = "a0"
	// Scratch registers. None holds a value across IR instructions.
	TempRegs = []string{"t0", "t1", "t2", "t3"}
	// Return address
	RetAddr = "ra"
	// Stack pointer
	StackPointer = "sp"
)

// Scratch register roles
const (
	regLHS  = "t0" // first operand, loaded value, result
	regRHS  = "t1" // second operand
	regAddr = "t2" // global addresses
	regOff  = "t3" // out-of-range offsets
)

// Generator generates RISC-V 32-bit assembly
type Generator struct {
	w     io.Writer
	e     *emitter
	fn    *ir.Function
	frame *Frame
}

func NewGenerator(w io.Writer) *Generator {
	return &Generator{w: w}
}

// Generate emits assembly for a whole IR program
func (g *Generator) Generate(prog *ir.Program) error {
	logger.Debug("Generating riscv32 assembly", "functions", len(prog.Functions), "globals", len(prog.Globals))
	g.e = &emitter{w: g.w}

	if len(prog.Globals) > 0 {
		g.e.directive(".data")
		for _, gl := range prog.Globals {
			g.e.directive(".globl %s", gl.Name)
			g.e.label(gl.Name)
			g.e.directive(".word %d", gl.Init)
		}
		g.e.blank()
	}

	g.e.directive(".text")
	g.e.directive(".align 2")

	defined := 0
	for _, fn := range prog.Functions {
		if fn.IsDecl() {
			continue
		}
		defined++
		if err := g.generateFunction(fn); err != nil {
			logger.Error("Failed to generate function", "arch", "riscv32", "name", fn.Name, "error", err)
			return fmt.Errorf("%s: %w", fn.Name, err)
		}
	}

	if g.e.err != nil {
		return g.e.err
	}
	logger.Info("riscv32 code generation complete", "functions", defined, "instructions", g.e.insts)
	return nil
}

// GenerateWithValidation generates and validates assembly
func (g *Generator) GenerateWithValidation(prog *ir.Program) (string, error) {
	// Generate to a buffer first
	var buf strings.Builder
	out := g.w
	g.w = &buf
	defer func() { g.w = out }()

	if err := g.Generate(prog); err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	assembly := buf.String()

	if err := ValidateProgram(assembly); err != nil {
		logger.Error("Assembly validation failed", "error", err)
		return assembly, fmt.Errorf("validation failed: %w", err)
	}

	if out != nil {
		if _, err := io.WriteString(out, assembly); err != nil {
			return assembly, err
		}
	}
	logger.Info("Assembly generated and validated successfully")
	return assembly, nil
}

// generateFunction emits prologue, blocks and the epilogue at each return
func (g *Generator) generateFunction(fn *ir.Function) error {
	g.fn = fn
	g.frame = layoutFrame(fn)
	start := g.e.insts

	g.e.blank()
	g.e.directive(".globl %s", fn.Name)
	g.e.label(fn.Name)

	// Prologue
	if g.frame.Size > 0 {
		g.e.addi(StackPointer, StackPointer, -g.frame.Size, regLHS)
	}
	if g.frame.SaveRA {
		g.e.sw(RetAddr, g.frame.RA, StackPointer, regOff)
	}

	for _, bb := range fn.Blocks {
		if err := g.generateBlock(bb); err != nil {
			return err
		}
	}

	logger.LogCodeGen("riscv32", fn.Name, g.e.insts-start)
	logger.With("function", fn.Name).Debug("Function frame", "frame", g.frame.Size, "slots", len(g.frame.Slots), "saveRA", g.frame.SaveRA)
	return nil
}

func (g *Generator) blockLabel(bb *ir.BasicBlock) string {
	return fmt.Sprintf(".L%s.%s", g.fn.Name, bb.Label)
}

func (g *Generator) generateBlock(bb *ir.BasicBlock) error {
	g.e.label(g.blockLabel(bb))

	for _, v := range bb.Insts {
		if err := g.generateInst(v); err != nil {
			return err
		}
	}
	if !bb.Terminated() {
		return fmt.Errorf("block %s: %w: no terminator", bb.Label, ErrUnexpectedInstruction)
	}
	return g.generateTerm(bb.Term)
}

// generateInst emits assembly for a non-terminator instruction
func (g *Generator) generateInst(v ir.Value) error {
	switch k := g.fn.Value(v).Kind.(type) {
	case ir.Alloc:
		// The slot is the storage.
		return nil

	case ir.Load:
		if err := g.loadFrom(regLHS, k.Src); err != nil {
			return err
		}
		g.storeSlot(regLHS, v)
		return nil

	case ir.Store:
		if err := g.loadValue(regLHS, k.Val); err != nil {
			return err
		}
		return g.storeTo(regLHS, k.Dest)

	case ir.Binary:
		return g.generateBinary(v, k)

	case ir.Call:
		return g.generateCall(v, k)

	default:
		return fmt.Errorf("value %d (%T): %w", int(v), k, ErrUnexpectedInstruction)
	}
}

// generateBinary loads both operands, computes into regLHS and spills the result
func (g *Generator) generateBinary(v ir.Value, bin ir.Binary) error {
	if err := g.loadValue(regLHS, bin.L); err != nil {
		return err
	}
	if err := g.loadValue(regRHS, bin.R); err != nil {
		return err
	}

	d, l, r := regLHS, regLHS, regRHS
	switch bin.Op {
	case ir.OpAdd:
		g.e.inst("add %s, %s, %s", d, l, r)
	case ir.OpSub:
		g.e.inst("sub %s, %s, %s", d, l, r)
	case ir.OpMul:
		g.e.inst("mul %s, %s, %s", d, l, r)
	case ir.OpDiv:
		g.e.inst("div %s, %s, %s", d, l, r)
	case ir.OpMod:
		g.e.inst("rem %s, %s, %s", d, l, r)
	case ir.OpAnd:
		g.e.inst("and %s, %s, %s", d, l, r)
	case ir.OpOr:
		g.e.inst("or %s, %s, %s", d, l, r)
	case ir.OpXor:
		g.e.inst("xor %s, %s, %s", d, l, r)

	case ir.OpEq:
		g.e.inst("xor %s, %s, %s", d, l, r)
		g.e.inst("seqz %s, %s", d, d)
	case ir.OpNe:
		g.e.inst("xor %s, %s, %s", d, l, r)
		g.e.inst("snez %s, %s", d, d)
	case ir.OpLt:
		g.e.inst("slt %s, %s, %s", d, l, r)
	case ir.OpGt:
		g.e.inst("sgt %s, %s, %s", d, l, r)
	case ir.OpLe:
		// a <= b  ==  !(a > b)
		g.e.inst("sgt %s, %s, %s", d, l, r)
		g.e.inst("seqz %s, %s", d, d)
	case ir.OpGe:
		// a >= b  ==  !(a < b)
		g.e.inst("slt %s, %s, %s", d, l, r)
		g.e.inst("seqz %s, %s", d, d)

	default:
		return fmt.Errorf("unsupported operation %v: %w", bin.Op, ErrUnexpectedInstruction)
	}

	g.storeSlot(d, v)
	return nil
}

// generateCall passes arguments 0-7 in a0-a7 and the rest at 0(sp), 4(sp), ...
func (g *Generator) generateCall(v ir.Value, call ir.Call) error {
	for i := len(ArgRegs); i < len(call.Args); i++ {
		if err := g.loadValue(regLHS, call.Args[i]); err != nil {
			return err
		}
		g.e.sw(regLHS, (i-len(ArgRegs))*wordSize, StackPointer, regOff)
	}
	for i := 0; i < len(call.Args) && i < len(ArgRegs); i++ {
		if err := g.loadValue(ArgRegs[i], call.Args[i]); err != nil {
			return err
		}
	}

	g.e.inst("call %s", call.Callee.Name)

	if !ir.IsUnit(g.fn.Value(v).Type) {
		g.storeSlot(RetReg, v)
	}
	return nil
}

// generateTerm emits assembly for terminator instructions
func (g *Generator) generateTerm(term ir.Value) error {
	switch t := g.fn.Value(term).Kind.(type) {
	case ir.Return:
		if t.Val != ir.NoValue {
			if err := g.loadValue(RetReg, t.Val); err != nil {
				return err
			}
		} else if !ir.IsUnit(g.fn.ReturnType) {
			return ErrMissingReturnValue
		}

		// Epilogue
		if g.frame.SaveRA {
			g.e.lw(RetAddr, g.frame.RA, StackPointer, regOff)
		}
		if g.frame.Size > 0 {
			g.e.addi(StackPointer, StackPointer, g.frame.Size, regOff)
		}
		g.e.inst("ret")

	case ir.Jump:
		g.e.inst("j %s", g.blockLabel(t.Target))

	case ir.Branch:
		if n, ok := g.fn.Literal(t.Cond); ok {
			target := t.False
			if n != 0 {
				target = t.True
			}
			g.e.inst("j %s", g.blockLabel(target))
			return nil
		}
		if err := g.loadValue(regLHS, t.Cond); err != nil {
			return err
		}
		g.e.inst("bnez %s, %s", regLHS, g.blockLabel(t.True))
		g.e.inst("j %s", g.blockLabel(t.False))

	default:
		return fmt.Errorf("terminator %T: %w", t, ErrUnexpectedInstruction)
	}
	return nil
}

// loadValue puts the i32 value v in reg
func (g *Generator) loadValue(reg string, v ir.Value) error {
	if v == ir.NoValue {
		return fmt.Errorf("read of absent value: %w", ErrUnexpectedInstruction)
	}
	switch k := g.fn.Value(v).Kind.(type) {
	case ir.Integer:
		g.e.inst("li %s, %d", reg, k.Val)
	case ir.FuncArg:
		if k.Index < len(ArgRegs) {
			g.e.inst("mv %s, %s", reg, ArgRegs[k.Index])
		} else {
			g.e.lw(reg, g.frame.callerArgOffset(k.Index), StackPointer, regOff)
		}
	case ir.GlobalRef:
		g.e.inst("la %s, %s", reg, k.Global.Name)
	default:
		off, ok := g.frame.Slots[v]
		if !ok {
			return fmt.Errorf("value %d (%T) has no stack slot: %w", int(v), k, ErrUnexpectedInstruction)
		}
		g.e.lw(reg, off, StackPointer, regOff)
	}
	return nil
}

// loadFrom reads the i32 stored at address value ptr
func (g *Generator) loadFrom(reg string, ptr ir.Value) error {
	switch k := g.fn.Value(ptr).Kind.(type) {
	case ir.Alloc:
		g.e.lw(reg, g.frame.Slots[ptr], StackPointer, regOff)
	case ir.GlobalRef:
		g.e.inst("la %s, %s", regAddr, k.Global.Name)
		g.e.inst("lw %s, 0(%s)", reg, regAddr)
	default:
		return fmt.Errorf("load through %T: %w", k, ErrUnexpectedInstruction)
	}
	return nil
}

// storeTo writes reg to the address value ptr
func (g *Generator) storeTo(reg string, ptr ir.Value) error {
	switch k := g.fn.Value(ptr).Kind.(type) {
	case ir.Alloc:
		g.e.sw(reg, g.frame.Slots[ptr], StackPointer, regOff)
	case ir.GlobalRef:
		g.e.inst("la %s, %s", regAddr, k.Global.Name)
		g.e.inst("sw %s, 0(%s)", reg, regAddr)
	default:
		return fmt.Errorf("store through %T: %w", k, ErrUnexpectedInstruction)
	}
	return nil
}

// storeSlot spills reg into v's own slot
func (g *Generator) storeSlot(reg string, v ir.Value) {
	g.e.sw(reg, g.frame.Slots[v], StackPointer, regOff)
}

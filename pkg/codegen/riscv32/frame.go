package riscv32

import "github.com/GriffinCanCode/sysy-compiler/pkg/ir"

// Frame is the stack layout of one function, low addresses first:
//
//	[0, OutArgs)          arguments 9.. of calls made by this function
//	[OutArgs, RA)         one 4-byte slot per non-unit value, first-use order
//	[RA, RA+4)            saved ra, only when SaveRA
//	padding to Size, a multiple of 16
type Frame struct {
	Slots   map[ir.Value]int
	OutArgs int
	SaveRA  bool
	RA      int
	Size    int
}

const wordSize = 4

// layoutFrame assigns stack slots in program order across all blocks
func layoutFrame(fn *ir.Function) *Frame {
	f := &Frame{Slots: map[ir.Value]int{}}

	maxStackArgs := 0
	var values []ir.Value
	for _, bb := range fn.Blocks {
		for _, v := range bb.Insts {
			data := fn.Value(v)
			if call, ok := data.Kind.(ir.Call); ok {
				f.SaveRA = true
				if n := len(call.Args) - len(ArgRegs); n > maxStackArgs {
					maxStackArgs = n
				}
			}
			if !ir.IsUnit(data.Type) {
				values = append(values, v)
			}
		}
	}

	f.OutArgs = maxStackArgs * wordSize
	offset := f.OutArgs
	for _, v := range values {
		f.Slots[v] = offset
		offset += wordSize
	}
	if f.SaveRA {
		f.RA = offset
		offset += wordSize
	}
	f.Size = alignUp(offset, 16)
	return f
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// callerArgOffset is where the callee finds stack-passed argument i (i >= 8)
func (f *Frame) callerArgOffset(i int) int {
	return f.Size + (i-len(ArgRegs))*wordSize
}

package riscv32

import (
	"fmt"
	"io"
)

// Signed 12-bit immediate window of I-type and S-type instructions
const (
	MinImm12 = -2048
	MaxImm12 = 2047
)

func fitsImm12(n int) bool {
	return n >= MinImm12 && n <= MaxImm12
}

// emitter writes assembly lines and counts instructions
type emitter struct {
	w     io.Writer
	insts int
	err   error
}

func (e *emitter) inst(format string, args ...any) {
	e.insts++
	e.write("\t"+format+"\n", args...)
}

func (e *emitter) directive(format string, args ...any) {
	e.write("\t"+format+"\n", args...)
}

func (e *emitter) label(name string) {
	e.write("%s:\n", name)
}

func (e *emitter) blank() {
	e.write("\n")
}

func (e *emitter) write(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// addi emits rd = rs + imm, materializing imm in scratch when out of range.
// scratch may equal rd but not rs.
func (e *emitter) addi(rd, rs string, imm int, scratch string) {
	if fitsImm12(imm) {
		e.inst("addi %s, %s, %d", rd, rs, imm)
		return
	}
	e.inst("li %s, %d", scratch, imm)
	e.inst("add %s, %s, %s", rd, rs, scratch)
}

// lw emits rd = mem[base+off]. scratch may equal rd.
func (e *emitter) lw(rd string, off int, base, scratch string) {
	if fitsImm12(off) {
		e.inst("lw %s, %d(%s)", rd, off, base)
		return
	}
	e.inst("li %s, %d", scratch, off)
	e.inst("add %s, %s, %s", scratch, base, scratch)
	e.inst("lw %s, 0(%s)", rd, scratch)
}

// sw emits mem[base+off] = rs. scratch must differ from rs.
func (e *emitter) sw(rs string, off int, base, scratch string) {
	if fitsImm12(off) {
		e.inst("sw %s, %d(%s)", rs, off, base)
		return
	}
	e.inst("li %s, %d", scratch, off)
	e.inst("add %s, %s, %s", scratch, base, scratch)
	e.inst("sw %s, 0(%s)", rs, scratch)
}

package riscv32

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
)

// sim runs the subset of RV32IM the generator emits
type sim struct {
	text   []asmLine
	labels map[string]int    // text label -> instruction index
	data   map[string]uint32 // data label -> address
	mem    map[uint32]int32
	regs   map[string]int32
	input  []int32
	out    []int32
	steps  int
}

const (
	simDataBase  = 0x1000
	simStackTop  = 0x80000
	simReturnPC  = -1
	simMaxSteps  = 5_000_000
	simClobbered = 0x0badf00d
)

func newSim(assembly string, input ...int32) (*sim, error) {
	s := &sim{
		labels: map[string]int{},
		data:   map[string]uint32{},
		mem:    map[uint32]int32{},
		regs:   map[string]int32{},
		input:  input,
	}

	inText := false
	next := uint32(simDataBase)
	var pending []string
	for _, l := range parseLines(assembly) {
		switch {
		case l.op == ".text":
			inText = true
		case l.op == ".data":
			inText = false
		case l.label != "" && inText:
			s.labels[l.label] = len(s.text)
		case l.label != "":
			pending = append(pending, l.label)
		case l.op == ".word":
			n, err := strconv.Atoi(l.operands[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad .word: %v", l.num, err)
			}
			for _, name := range pending {
				s.data[name] = next
			}
			pending = nil
			s.mem[next] = int32(n)
			next += wordSize
		case strings.HasPrefix(l.op, "."):
		case inText:
			s.text = append(s.text, l)
		}
	}
	return s, nil
}

func (s *sim) reg(name string) int32 {
	if name == "zero" || name == "x0" {
		return 0
	}
	return s.regs[name]
}

func (s *sim) set(name string, v int32) {
	if name != "zero" && name != "x0" {
		s.regs[name] = v
	}
}

func (s *sim) addr(operand string) (uint32, error) {
	m := memPattern.FindStringSubmatch(operand)
	if m == nil {
		return 0, fmt.Errorf("bad memory operand %q", operand)
	}
	off, _ := strconv.Atoi(m[1])
	a := uint32(s.reg(m[2]) + int32(off))
	if a%wordSize != 0 {
		return 0, fmt.Errorf("misaligned access at %#x", a)
	}
	return a, nil
}

func imm(operand string) int32 {
	n, _ := strconv.Atoi(operand)
	return int32(n)
}

// run calls fn and returns a0 when it returns to the harness
func (s *sim) run(fn string) (int32, error) {
	pc, ok := s.labels[fn]
	if !ok {
		return 0, fmt.Errorf("no function %s", fn)
	}
	s.set("sp", simStackTop)
	s.set("ra", simReturnPC)

	for {
		if s.steps++; s.steps > simMaxSteps {
			return 0, fmt.Errorf("step limit exceeded")
		}
		if pc < 0 || pc >= len(s.text) {
			return 0, fmt.Errorf("pc %d out of range", pc)
		}
		l := s.text[pc]
		o := l.operands
		pc++

		switch l.op {
		case "li":
			s.set(o[0], imm(o[1]))
		case "la":
			a, ok := s.data[o[1]]
			if !ok {
				return 0, fmt.Errorf("line %d: unknown symbol %s", l.num, o[1])
			}
			s.set(o[0], int32(a))
		case "mv":
			s.set(o[0], s.reg(o[1]))
		case "addi":
			s.set(o[0], s.reg(o[1])+imm(o[2]))
		case "seqz":
			s.set(o[0], boolWord(s.reg(o[1]) == 0))
		case "snez":
			s.set(o[0], boolWord(s.reg(o[1]) != 0))
		case "add", "sub", "mul", "div", "rem", "and", "or", "xor", "slt", "sgt":
			s.set(o[0], alu(l.op, s.reg(o[1]), s.reg(o[2])))
		case "lw":
			a, err := s.addr(o[1])
			if err != nil {
				return 0, fmt.Errorf("line %d: %w", l.num, err)
			}
			s.set(o[0], s.mem[a])
		case "sw":
			a, err := s.addr(o[1])
			if err != nil {
				return 0, fmt.Errorf("line %d: %w", l.num, err)
			}
			s.mem[a] = s.reg(o[0])
		case "bnez", "beqz":
			if (s.reg(o[0]) != 0) == (l.op == "bnez") {
				pc = s.labels[o[1]]
			}
		case "j":
			target, ok := s.labels[o[0]]
			if !ok {
				return 0, fmt.Errorf("line %d: unknown label %s", l.num, o[0])
			}
			pc = target
		case "call":
			if s.reg("sp")%16 != 0 {
				return 0, fmt.Errorf("line %d: sp %#x misaligned at call", l.num, s.reg("sp"))
			}
			if target, ok := s.labels[o[0]]; ok {
				s.set("ra", int32(pc))
				pc = target
				continue
			}
			if err := s.runtime(o[0]); err != nil {
				return 0, fmt.Errorf("line %d: %w", l.num, err)
			}
		case "ret":
			ra := s.reg("ra")
			if ra == simReturnPC {
				if s.reg("sp") != simStackTop {
					return 0, fmt.Errorf("sp %#x not restored", s.reg("sp"))
				}
				return s.reg("a0"), nil
			}
			pc = int(ra)
		default:
			return 0, fmt.Errorf("line %d: unsupported instruction %s", l.num, l.text)
		}
	}
}

// runtime models the SysY library and clobbers every caller-saved register
func (s *sim) runtime(name string) error {
	a0 := s.reg("a0")
	for _, r := range []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "a1", "a2", "a3", "a4", "a5", "a6", "a7"} {
		s.set(r, simClobbered)
	}
	switch name {
	case "putint", "putch":
		s.out = append(s.out, a0)
		s.set("a0", simClobbered)
	case "getint", "getch":
		v := int32(-1)
		if len(s.input) > 0 {
			v, s.input = s.input[0], s.input[1:]
		}
		s.set("a0", v)
	case "starttime", "stoptime":
		s.set("a0", simClobbered)
	default:
		return fmt.Errorf("call to undefined function %s", name)
	}
	return nil
}

func alu(op string, a, b int32) int32 {
	switch op {
	case "add":
		return a + b
	case "sub":
		return a - b
	case "mul":
		return a * b
	case "div":
		switch {
		case b == 0:
			return -1
		case a == math.MinInt32 && b == -1:
			return a
		}
		return a / b
	case "rem":
		switch {
		case b == 0:
			return a
		case a == math.MinInt32 && b == -1:
			return 0
		}
		return a % b
	case "and":
		return a & b
	case "or":
		return a | b
	case "xor":
		return a ^ b
	case "slt":
		return boolWord(a < b)
	case "sgt":
		return boolWord(a > b)
	}
	panic("alu: " + op)
}

func boolWord(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func buildIR(t testing.TB, src string) *ir.Program {
	t.Helper()
	unit, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, err := ir.Build(unit)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return prog
}

// compile runs source through the builder and the validating generator
func compile(t testing.TB, src string) string {
	t.Helper()
	asm, err := NewGenerator(nil).GenerateWithValidation(buildIR(t, src))
	if err != nil {
		t.Fatalf("codegen: %v\n%s", err, asm)
	}
	return asm
}

// execute compiles src and runs main on the simulator
func execute(t *testing.T, src string, input ...int32) (int32, []int32) {
	t.Helper()
	asm := compile(t, src)
	s, err := newSim(asm, input...)
	if err != nil {
		t.Fatal(err)
	}
	ret, err := s.run("main")
	if err != nil {
		t.Fatalf("simulation: %v\n%s", err, asm)
	}
	return ret, s.out
}

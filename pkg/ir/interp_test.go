package ir

import (
	"fmt"
	"testing"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
)

// interp executes IR directly so tests can check behavior instead of text
type interp struct {
	globals map[*Global]int32
	input   []int32
	out     []int32
	steps   int
}

const maxSteps = 1_000_000

func newInterp(prog *Program, input ...int32) *interp {
	in := &interp{globals: map[*Global]int32{}, input: input}
	for _, g := range prog.Globals {
		in.globals[g] = g.Init
	}
	return in
}

func (in *interp) call(fn *Function, args []int32) (int32, error) {
	if fn.IsDecl() {
		return in.runtime(fn, args)
	}

	vals := map[Value]int32{}
	slots := map[Value]int32{}

	read := func(v Value) (int32, error) {
		switch k := fn.Value(v).Kind.(type) {
		case Integer:
			return k.Val, nil
		case FuncArg:
			return args[k.Index], nil
		}
		x, ok := vals[v]
		if !ok {
			return 0, fmt.Errorf("%s: value %d read before definition", fn.Name, int(v))
		}
		return x, nil
	}
	load := func(ptr Value) int32 {
		if g, ok := fn.Value(ptr).Kind.(GlobalRef); ok {
			return in.globals[g.Global]
		}
		return slots[ptr]
	}
	store := func(ptr Value, x int32) {
		if g, ok := fn.Value(ptr).Kind.(GlobalRef); ok {
			in.globals[g.Global] = x
			return
		}
		slots[ptr] = x
	}

	bb := fn.Entry()
	for {
		for _, v := range bb.Insts {
			if in.steps++; in.steps > maxSteps {
				return 0, fmt.Errorf("step limit exceeded")
			}
			switch k := fn.Value(v).Kind.(type) {
			case Alloc:
			case Load:
				vals[v] = load(k.Src)
			case Store:
				x, err := read(k.Val)
				if err != nil {
					return 0, err
				}
				store(k.Dest, x)
			case Binary:
				l, err := read(k.L)
				if err != nil {
					return 0, err
				}
				r, err := read(k.R)
				if err != nil {
					return 0, err
				}
				x, err := evalOp(k.Op, l, r)
				if err != nil {
					return 0, err
				}
				vals[v] = x
			case Call:
				callArgs := make([]int32, len(k.Args))
				for i, a := range k.Args {
					x, err := read(a)
					if err != nil {
						return 0, err
					}
					callArgs[i] = x
				}
				x, err := in.call(k.Callee, callArgs)
				if err != nil {
					return 0, err
				}
				vals[v] = x
			default:
				return 0, fmt.Errorf("unexpected instruction %T", k)
			}
		}

		switch t := fn.Value(bb.Term).Kind.(type) {
		case Jump:
			bb = t.Target
		case Branch:
			c, err := read(t.Cond)
			if err != nil {
				return 0, err
			}
			if c != 0 {
				bb = t.True
			} else {
				bb = t.False
			}
		case Return:
			if t.Val == NoValue {
				return 0, nil
			}
			return read(t.Val)
		default:
			return 0, fmt.Errorf("unexpected terminator %T", t)
		}
	}
}

func (in *interp) runtime(fn *Function, args []int32) (int32, error) {
	switch fn.Name {
	case "putint", "putch":
		in.out = append(in.out, args[0])
	case "getint", "getch":
		if len(in.input) == 0 {
			return -1, nil
		}
		x := in.input[0]
		in.input = in.input[1:]
		return x, nil
	}
	return 0, nil
}

func evalOp(op Op, l, r int32) (int32, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv, OpMod:
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		if op == OpDiv {
			return l / r, nil
		}
		return l % r, nil
	case OpAnd:
		return l & r, nil
	case OpOr:
		return l | r, nil
	case OpXor:
		return l ^ r, nil
	case OpEq:
		return boolInt(l == r), nil
	case OpNe:
		return boolInt(l != r), nil
	case OpLt:
		return boolInt(l < r), nil
	case OpGt:
		return boolInt(l > r), nil
	case OpLe:
		return boolInt(l <= r), nil
	case OpGe:
		return boolInt(l >= r), nil
	}
	return 0, fmt.Errorf("unknown op %v", op)
}

func buildSource(t *testing.T, src string) *Program {
	t.Helper()
	unit, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	prog, err := Build(unit)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return prog
}

func findFunction(prog *Program, name string) *Function {
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// runMain builds src and runs main, returning its result and putint output
func runMain(t *testing.T, src string, input ...int32) (int32, []int32) {
	t.Helper()
	prog := buildSource(t, src)
	main := findFunction(prog, "main")
	if main == nil {
		t.Fatal("no main function")
	}
	in := newInterp(prog, input...)
	ret, err := in.call(main, nil)
	if err != nil {
		t.Fatalf("interpretation failed: %v\n%s", err, prog)
	}
	return ret, in.out
}

// Expression lowering
package ir

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
)

var binaryOps = map[frontend.BinaryOp]Op{
	frontend.Add: OpAdd,
	frontend.Sub: OpSub,
	frontend.Mul: OpMul,
	frontend.Div: OpDiv,
	frontend.Mod: OpMod,
	frontend.Lt:  OpLt,
	frontend.Gt:  OpGt,
	frontend.Le:  OpLe,
	frontend.Ge:  OpGe,
	frontend.Eq:  OpEq,
	frontend.Ne:  OpNe,
}

// buildValue lowers an expression that must produce an i32
func (b *Builder) buildValue(e frontend.Expr) (Value, error) {
	v, err := b.buildExpr(e)
	if err != nil {
		return NoValue, err
	}
	if v == NoValue {
		name, pos := "", frontend.Pos{}
		if call, ok := e.(*frontend.CallExpr); ok {
			name, pos = call.Func, call.Pos
		}
		return NoValue, newError(UsingVoidValue, name, pos)
	}
	return v, nil
}

// buildExpr lowers an expression. A void call yields NoValue.
func (b *Builder) buildExpr(e frontend.Expr) (Value, error) {
	switch e := e.(type) {
	case *frontend.Number:
		return b.fn.Integer(e.Value), nil

	case *frontend.LVal:
		sym, err := b.scopes.Lookup(e.Name, e.Pos)
		if err != nil {
			return NoValue, err
		}
		switch sym.Kind {
		case SymConst:
			return b.fn.Integer(sym.Const), nil
		case SymVariable:
			return b.fn.Load(b.bb, b.varSlot(sym)), nil
		default:
			return NoValue, newError(UseFunctionAsVariable, e.Name, e.Pos)
		}

	case *frontend.UnaryExpr:
		x, err := b.buildValue(e.X)
		if err != nil {
			return NoValue, err
		}
		switch e.Op {
		case frontend.Plus:
			return x, nil
		case frontend.Minus:
			return b.fn.Binary(b.bb, OpSub, b.fn.Integer(0), x), nil
		default:
			return b.fn.Binary(b.bb, OpEq, x, b.fn.Integer(0)), nil
		}

	case *frontend.BinaryExpr:
		if e.Op == frontend.LAnd || e.Op == frontend.LOr {
			return b.buildShortCircuit(e)
		}
		l, err := b.buildValue(e.L)
		if err != nil {
			return NoValue, err
		}
		r, err := b.buildValue(e.R)
		if err != nil {
			return NoValue, err
		}
		op, ok := binaryOps[e.Op]
		if !ok {
			return NoValue, fmt.Errorf("unknown binary operator %v", e.Op)
		}
		return b.fn.Binary(b.bb, op, l, r), nil

	case *frontend.CallExpr:
		return b.buildCall(e)

	default:
		return NoValue, fmt.Errorf("unsupported expression %T", e)
	}
}

// buildShortCircuit lowers && and || with branches so the right operand runs
// only when the left one does not decide the result. The hidden slot holds the
// booleanized left value on the short path.
func (b *Builder) buildShortCircuit(e *frontend.BinaryExpr) (Value, error) {
	var rhs, end *BasicBlock
	if e.Op == frontend.LAnd {
		id := b.andID
		b.andID++
		rhs, end = b.newBlock("and_rhs", id), b.newBlock("and_end", id)
	} else {
		id := b.orID
		b.orID++
		rhs, end = b.newBlock("or_rhs", id), b.newBlock("or_end", id)
	}

	slot := b.fn.Alloc(b.bb, IntType{}, "")

	l, err := b.buildValue(e.L)
	if err != nil {
		return NoValue, err
	}
	lb := b.fn.Binary(b.bb, OpNe, l, b.fn.Integer(0))
	b.fn.Store(b.bb, lb, slot)
	if e.Op == frontend.LAnd {
		b.fn.Branch(b.bb, lb, rhs, end)
	} else {
		b.fn.Branch(b.bb, lb, end, rhs)
	}

	b.bb = rhs
	r, err := b.buildValue(e.R)
	if err != nil {
		return NoValue, err
	}
	rb := b.fn.Binary(b.bb, OpNe, r, b.fn.Integer(0))
	b.fn.Store(b.bb, rb, slot)
	b.fn.Jump(b.bb, end)

	b.bb = end
	return b.fn.Load(end, slot), nil
}

func (b *Builder) buildCall(e *frontend.CallExpr) (Value, error) {
	sym, ok := b.scopes.LookupGlobal(e.Func)
	if !ok || sym.Kind != SymFunction {
		return NoValue, newError(FunctionUndeclared, e.Func, e.Pos)
	}
	callee := sym.Func
	if len(e.Args) != len(callee.ParamTypes) {
		return NoValue, newError(ArgumentCountMismatch,
			fmt.Sprintf("%s (want %d, got %d)", e.Func, len(callee.ParamTypes), len(e.Args)), e.Pos)
	}

	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := b.buildValue(a)
		if err != nil {
			return NoValue, err
		}
		args = append(args, v)
	}

	v := b.fn.Call(b.bb, callee, args)
	if IsUnit(callee.ReturnType) {
		return NoValue, nil
	}
	return v, nil
}

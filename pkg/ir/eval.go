package ir

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
)

// EvalConst folds a constant expression to an i32 with wraparound arithmetic.
// Identifiers must resolve to constants; && and || evaluate both sides.
func EvalConst(e frontend.Expr, scopes *Scopes) (int32, error) {
	switch e := e.(type) {
	case *frontend.Number:
		return e.Value, nil

	case *frontend.LVal:
		sym, err := scopes.Lookup(e.Name, e.Pos)
		if err != nil {
			return 0, err
		}
		switch sym.Kind {
		case SymConst:
			return sym.Const, nil
		case SymVariable:
			return 0, newError(InitializeConstWithVariable, e.Name, e.Pos)
		default:
			return 0, newError(InitializeConstWithFunctionCall, e.Name, e.Pos)
		}

	case *frontend.CallExpr:
		return 0, newError(InitializeConstWithFunctionCall, e.Func, e.Pos)

	case *frontend.UnaryExpr:
		x, err := EvalConst(e.X, scopes)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case frontend.Plus:
			return x, nil
		case frontend.Minus:
			return -x, nil
		default:
			return boolInt(x == 0), nil
		}

	case *frontend.BinaryExpr:
		l, err := EvalConst(e.L, scopes)
		if err != nil {
			return 0, err
		}
		r, err := EvalConst(e.R, scopes)
		if err != nil {
			return 0, err
		}
		return foldBinary(e.Op, l, r)

	default:
		return 0, fmt.Errorf("unsupported constant expression %T", e)
	}
}

func foldBinary(op frontend.BinaryOp, l, r int32) (int32, error) {
	switch op {
	case frontend.Add:
		return l + r, nil
	case frontend.Sub:
		return l - r, nil
	case frontend.Mul:
		return l * r, nil
	case frontend.Div, frontend.Mod:
		if r == 0 {
			return 0, newError(ConstDivisionByZero, "", frontend.Pos{})
		}
		if op == frontend.Div {
			return l / r, nil
		}
		return l % r, nil
	case frontend.Lt:
		return boolInt(l < r), nil
	case frontend.Gt:
		return boolInt(l > r), nil
	case frontend.Le:
		return boolInt(l <= r), nil
	case frontend.Ge:
		return boolInt(l >= r), nil
	case frontend.Eq:
		return boolInt(l == r), nil
	case frontend.Ne:
		return boolInt(l != r), nil
	case frontend.LAnd:
		return boolInt(l != 0 && r != 0), nil
	case frontend.LOr:
		return boolInt(l != 0 || r != 0), nil
	default:
		return 0, fmt.Errorf("unknown binary operator %v", op)
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

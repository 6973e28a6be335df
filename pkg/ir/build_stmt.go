// Statement lowering
package ir

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
)

// buildItems lowers block items until the current block is terminated.
// Items after a return, break or continue are unreachable and never lowered.
func (b *Builder) buildItems(items []frontend.BlockItem) error {
	for _, item := range items {
		if b.bb.Terminated() {
			return nil
		}
		var err error
		switch it := item.(type) {
		case *frontend.ConstDecl:
			err = b.buildConstDecl(it)
		case *frontend.VarDecl:
			err = b.buildVarDecl(it)
		case frontend.Stmt:
			err = b.buildStatement(it)
		default:
			err = fmt.Errorf("unsupported block item %T", item)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildStatement(stmt frontend.Stmt) error {
	switch s := stmt.(type) {
	case *frontend.AssignStmt:
		return b.buildAssign(s)

	case *frontend.ExprStmt:
		if s.X == nil {
			return nil
		}
		_, err := b.buildExpr(s.X)
		return err

	case *frontend.Block:
		b.scopes.Push()
		defer b.scopes.Pop()
		return b.buildItems(s.Items)

	case *frontend.IfStmt:
		return b.buildIf(s)

	case *frontend.WhileStmt:
		return b.buildWhile(s)

	case *frontend.BreakStmt:
		if b.loop == nil {
			return newError(BreakOutsideLoop, "", s.Pos)
		}
		b.fn.Jump(b.bb, b.loop.end)
		return nil

	case *frontend.ContinueStmt:
		if b.loop == nil {
			return newError(ContinueOutsideLoop, "", s.Pos)
		}
		b.fn.Jump(b.bb, b.loop.cond)
		return nil

	case *frontend.ReturnStmt:
		return b.buildReturn(s)

	default:
		return fmt.Errorf("unsupported statement %T", stmt)
	}
}

func (b *Builder) buildAssign(s *frontend.AssignStmt) error {
	sym, err := b.scopes.Lookup(s.Target.Name, s.Target.Pos)
	if err != nil {
		return err
	}
	switch sym.Kind {
	case SymConst:
		return newError(AssignToConst, s.Target.Name, s.Target.Pos)
	case SymFunction:
		return newError(UseFunctionAsVariable, s.Target.Name, s.Target.Pos)
	}

	v, err := b.buildValue(s.Value)
	if err != nil {
		return err
	}
	b.fn.Store(b.bb, v, b.varSlot(sym))
	return nil
}

func (b *Builder) buildReturn(s *frontend.ReturnStmt) error {
	if s.Value != nil {
		if IsUnit(b.fn.ReturnType) {
			return newError(ReturnWithExpressionInVoidFunction, b.fn.Name, s.Pos)
		}
		v, err := b.buildValue(s.Value)
		if err != nil {
			return err
		}
		b.fn.Store(b.bb, v, b.retSlot)
	}
	// A bare return in an int function leaves %ret as it is.
	b.fn.Jump(b.bb, b.exit)
	return nil
}

func (b *Builder) buildIf(s *frontend.IfStmt) error {
	id := b.branchID
	b.branchID++

	cond, err := b.buildValue(s.Cond)
	if err != nil {
		return err
	}

	then := b.newBlock("then", id)
	var els *BasicBlock
	if s.Else != nil {
		els = b.newBlock("else", id)
	}
	end := b.newBlock("end", id)

	if els != nil {
		b.fn.Branch(b.bb, cond, then, els)
	} else {
		b.fn.Branch(b.bb, cond, then, end)
	}

	if err := b.buildArm(then, s.Then, end); err != nil {
		return err
	}
	if els != nil {
		if err := b.buildArm(els, s.Else, end); err != nil {
			return err
		}
	}

	b.bb = end
	return nil
}

// buildArm lowers stmt into bb and falls through to next unless it terminated
func (b *Builder) buildArm(bb *BasicBlock, stmt frontend.Stmt, next *BasicBlock) error {
	b.bb = bb
	if err := b.buildStatement(stmt); err != nil {
		return err
	}
	if !b.bb.Terminated() {
		b.fn.Jump(b.bb, next)
	}
	return nil
}

func (b *Builder) buildWhile(s *frontend.WhileStmt) error {
	id := b.whileID
	b.whileID++

	cond := b.newBlock("while_cond", id)
	body := b.newBlock("while_body", id)
	end := b.newBlock("while_end", id)

	b.fn.Jump(b.bb, cond)

	b.bb = cond
	c, err := b.buildValue(s.Cond)
	if err != nil {
		return err
	}
	b.fn.Branch(b.bb, c, body, end)

	saved := b.loop
	b.loop = &loopContext{cond: cond, end: end}
	err = b.buildArm(body, s.Body, cond)
	b.loop = saved
	if err != nil {
		return err
	}

	b.bb = end
	return nil
}

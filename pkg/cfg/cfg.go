// Package cfg builds control-flow graphs over IR functions.
//
// Design: Read-only view. Edges come from block terminators; nothing here
// mutates the IR. Verify checks the structural invariants the code generator
// relies on.
package cfg

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
)

// Graph is the control-flow graph of one defined function
type Graph struct {
	Fn     *ir.Function
	Blocks []*ir.BasicBlock
	Preds  map[*ir.BasicBlock][]*ir.BasicBlock
	Succs  map[*ir.BasicBlock][]*ir.BasicBlock
}

// New builds the graph of fn from its terminators
func New(fn *ir.Function) *Graph {
	g := &Graph{
		Fn:     fn,
		Blocks: fn.Blocks,
		Preds:  make(map[*ir.BasicBlock][]*ir.BasicBlock, len(fn.Blocks)),
		Succs:  make(map[*ir.BasicBlock][]*ir.BasicBlock, len(fn.Blocks)),
	}
	for _, bb := range fn.Blocks {
		for _, s := range fn.Successors(bb) {
			g.Succs[bb] = append(g.Succs[bb], s)
			g.Preds[s] = append(g.Preds[s], bb)
		}
	}
	return g
}

// Entry is the first laid-out block
func (g *Graph) Entry() *ir.BasicBlock {
	return g.Fn.Entry()
}

// Reachable returns the blocks reachable from entry
func (g *Graph) Reachable() map[*ir.BasicBlock]bool {
	seen := map[*ir.BasicBlock]bool{}
	entry := g.Entry()
	if entry == nil {
		return seen
	}
	stack := []*ir.BasicBlock{entry}
	for len(stack) > 0 {
		bb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[bb] {
			continue
		}
		seen[bb] = true
		stack = append(stack, g.Succs[bb]...)
	}
	return seen
}

// Dominators computes the immediate dominator of every reachable block with
// the iterative Cooper-Harvey-Kennedy algorithm. The entry maps to itself.
func (g *Graph) Dominators() map[*ir.BasicBlock]*ir.BasicBlock {
	idom := map[*ir.BasicBlock]*ir.BasicBlock{}
	entry := g.Entry()
	if entry == nil {
		return idom
	}

	order := g.reversePostorder()
	index := make(map[*ir.BasicBlock]int, len(order))
	for i, bb := range order {
		index[bb] = i
	}

	intersect := func(a, b *ir.BasicBlock) *ir.BasicBlock {
		for a != b {
			for index[a] > index[b] {
				a = idom[a]
			}
			for index[b] > index[a] {
				b = idom[b]
			}
		}
		return a
	}

	idom[entry] = entry
	for changed := true; changed; {
		changed = false
		for _, bb := range order[1:] {
			var newIdom *ir.BasicBlock
			for _, p := range g.Preds[bb] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom != nil && idom[bb] != newIdom {
				idom[bb] = newIdom
				changed = true
			}
		}
	}
	return idom
}

// Dominates reports whether a dominates b (reflexive)
func Dominates(idom map[*ir.BasicBlock]*ir.BasicBlock, a, b *ir.BasicBlock) bool {
	for {
		if a == b {
			return true
		}
		next, ok := idom[b]
		if !ok || next == b {
			return false
		}
		b = next
	}
}

func (g *Graph) reversePostorder() []*ir.BasicBlock {
	var post []*ir.BasicBlock
	seen := map[*ir.BasicBlock]bool{}
	var visit func(bb *ir.BasicBlock)
	visit = func(bb *ir.BasicBlock) {
		seen[bb] = true
		for _, s := range g.Succs[bb] {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, bb)
	}
	visit(g.Entry())

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Verify checks a defined function: unique labels, every block terminated,
// every edge targets a laid-out block, entry first and a single returning
// block laid out last.
func Verify(fn *ir.Function) error {
	if fn.IsDecl() {
		return nil
	}

	laid := make(map[*ir.BasicBlock]bool, len(fn.Blocks))
	labels := make(map[string]bool, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		if labels[bb.Label] {
			return fmt.Errorf("%s: duplicate block label %%%s", fn.Name, bb.Label)
		}
		labels[bb.Label] = true
		laid[bb] = true
	}

	if fn.Entry().Label != "entry" {
		return fmt.Errorf("%s: first block is %%%s, want %%entry", fn.Name, fn.Entry().Label)
	}

	returns := 0
	for _, bb := range fn.Blocks {
		if !bb.Terminated() {
			return fmt.Errorf("%s: block %%%s has no terminator", fn.Name, bb.Label)
		}
		if _, ok := fn.Value(bb.Term).Kind.(ir.Return); ok {
			returns++
			if bb != fn.Blocks[len(fn.Blocks)-1] {
				return fmt.Errorf("%s: return in %%%s, only the exit block may return", fn.Name, bb.Label)
			}
		}
		for _, s := range fn.Successors(bb) {
			if !laid[s] {
				return fmt.Errorf("%s: %%%s jumps to block %%%s outside the function", fn.Name, bb.Label, s.Label)
			}
		}
	}
	if returns != 1 {
		return fmt.Errorf("%s: %d returning blocks, want 1", fn.Name, returns)
	}
	return nil
}

// VerifyProgram verifies every function in prog
func VerifyProgram(prog *ir.Program) error {
	for _, fn := range prog.Functions {
		if err := Verify(fn); err != nil {
			return err
		}
	}
	return nil
}

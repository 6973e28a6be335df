package ir

import (
	"errors"
	"testing"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
)

func TestScopes(t *testing.T) {
	s := NewScopes()
	pos := frontend.Pos{Line: 1, Col: 1}

	if err := s.Declare("x", Symbol{Kind: SymConst, Const: 1}, pos); err != nil {
		t.Fatal(err)
	}
	s.Push()
	if err := s.Declare("x", Symbol{Kind: SymConst, Const: 2}, pos); err != nil {
		t.Fatalf("shadowing in an inner scope failed: %v", err)
	}
	if err := s.Declare("x", Symbol{Kind: SymConst, Const: 3}, pos); !errors.Is(err, ErrSymbolDeclaredMoreThanOnce) {
		t.Errorf("redeclaration: got %v", err)
	}

	sym, err := s.Lookup("x", pos)
	if err != nil || sym.Const != 2 {
		t.Errorf("inner lookup = %+v, %v", sym, err)
	}
	if g, ok := s.LookupGlobal("x"); !ok || g.Const != 1 {
		t.Errorf("global lookup = %+v, %v", g, ok)
	}

	s.Pop()
	if sym, _ := s.Lookup("x", pos); sym.Const != 1 {
		t.Errorf("after pop got %d, want 1", sym.Const)
	}

	s.Pop()
	if s.Depth() != 1 {
		t.Errorf("global scope popped, depth %d", s.Depth())
	}

	if _, err := s.Lookup("y", pos); !errors.Is(err, ErrSymbolUndeclared) {
		t.Errorf("missing name: got %v", err)
	}
}

func TestDeclareGlobalFromInnerScope(t *testing.T) {
	s := NewScopes()
	s.Push()
	s.Push()
	if err := s.DeclareGlobal("f", Symbol{Kind: SymFunction}, frontend.Pos{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.LookupGlobal("f"); !ok {
		t.Error("function not visible in the global scope")
	}
	if err := s.DeclareGlobal("f", Symbol{Kind: SymFunction}, frontend.Pos{}); !errors.Is(err, ErrSymbolDeclaredMoreThanOnce) {
		t.Errorf("duplicate global: got %v", err)
	}
}

func TestEvalConst(t *testing.T) {
	tests := []struct {
		expr string
		want int32
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"-7 / 2", -3},
		{"-7 % 2", -1},
		{"!0 + !3", 1},
		{"3 > 2 && 0", 0},
		{"0 || 4", 1},
		{"K * 2", 84},
		{"2147483647 + 1", -2147483648},
		{"-2147483647 - 2", 2147483647},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			unit, err := frontend.Parse("const int x = " + tt.expr + ";")
			if err != nil {
				t.Fatal(err)
			}
			s := NewScopes()
			s.Declare("K", Symbol{Kind: SymConst, Const: 42}, frontend.Pos{})
			init := unit.Items[0].(*frontend.ConstDecl).Defs[0].Init
			got, err := EvalConst(init, s)
			if err != nil {
				t.Fatalf("EvalConst: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

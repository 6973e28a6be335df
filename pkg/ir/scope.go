package ir

import "github.com/GriffinCanCode/sysy-compiler/pkg/frontend"

// SymbolKind tags what an identifier is bound to
type SymbolKind int

const (
	SymConst SymbolKind = iota
	SymVariable
	SymFunction
)

// Symbol is a Const value, a Variable slot (Alloc or GlobalRef) or a Function
type Symbol struct {
	Kind  SymbolKind
	Const int32
	Var   Value
	Glob  *Global // set for module-level variables; Var is materialized per function
	Func  *Function
}

// Scopes is a stack of identifier maps. The outermost map is the global scope.
type Scopes struct {
	stack []map[string]Symbol
}

func NewScopes() *Scopes {
	return &Scopes{stack: []map[string]Symbol{{}}}
}

func (s *Scopes) Push() {
	s.stack = append(s.stack, map[string]Symbol{})
}

// Pop discards the innermost scope. The global scope is never popped.
func (s *Scopes) Pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Depth is the number of live scopes, global included
func (s *Scopes) Depth() int {
	return len(s.stack)
}

// Declare binds name in the innermost scope
func (s *Scopes) Declare(name string, sym Symbol, pos frontend.Pos) error {
	inner := s.stack[len(s.stack)-1]
	if _, ok := inner[name]; ok {
		return newError(SymbolDeclaredMoreThanOnce, name, pos)
	}
	inner[name] = sym
	return nil
}

// Lookup resolves name innermost to outermost
func (s *Scopes) Lookup(name string, pos frontend.Pos) (Symbol, error) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if sym, ok := s.stack[i][name]; ok {
			return sym, nil
		}
	}
	return Symbol{}, newError(SymbolUndeclared, name, pos)
}

// DeclareGlobal binds name in the outermost scope
func (s *Scopes) DeclareGlobal(name string, sym Symbol, pos frontend.Pos) error {
	global := s.stack[0]
	if _, ok := global[name]; ok {
		return newError(SymbolDeclaredMoreThanOnce, name, pos)
	}
	global[name] = sym
	return nil
}

// LookupGlobal resolves name in the outermost scope only
func (s *Scopes) LookupGlobal(name string) (Symbol, bool) {
	sym, ok := s.stack[0][name]
	return sym, ok
}

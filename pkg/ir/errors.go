package ir

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
)

// ErrorKind classifies builder errors. Every kind is terminal.
type ErrorKind int

const (
	UnknownType ErrorKind = iota
	SymbolDeclaredMoreThanOnce
	SymbolUndeclared
	AssignToConst
	InitializeConstWithVariable
	InitializeConstWithFunctionCall
	BreakOutsideLoop
	ContinueOutsideLoop
	UseFunctionAsVariable
	FunctionUndeclared
	ReturnWithExpressionInVoidFunction
	UsingVoidValue
	ArgumentCountMismatch
	ConstDivisionByZero
)

var errorKindNames = [...]string{
	UnknownType:                        "UnknownType",
	SymbolDeclaredMoreThanOnce:         "SymbolDeclaredMoreThanOnce",
	SymbolUndeclared:                   "SymbolUndeclared",
	AssignToConst:                      "AssignToConst",
	InitializeConstWithVariable:        "InitializeConstWithVariable",
	InitializeConstWithFunctionCall:    "InitializeConstWithFunctionCall",
	BreakOutsideLoop:                   "BreakOutsideLoop",
	ContinueOutsideLoop:                "ContinueOutsideLoop",
	UseFunctionAsVariable:              "UseFunctionAsVariable",
	FunctionUndeclared:                 "FunctionUndeclared",
	ReturnWithExpressionInVoidFunction: "ReturnWithExpressionInVoidFunction",
	UsingVoidValue:                     "UsingVoidValue",
	ArgumentCountMismatch:              "ArgumentCountMismatch",
	ConstDivisionByZero:                "ConstDivisionByZero",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// BuildError is a semantic error found while lowering the AST
type BuildError struct {
	Kind ErrorKind
	Name string // offending identifier, if any
	Pos  frontend.Pos
}

func (e *BuildError) Error() string {
	msg := e.Kind.String()
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Pos.Line > 0 {
		msg += " at " + e.Pos.String()
	}
	return msg
}

// Is matches any BuildError of the same kind, so sentinels work with errors.Is
func (e *BuildError) Is(target error) bool {
	t, ok := target.(*BuildError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrUnknownType                        = &BuildError{Kind: UnknownType}
	ErrSymbolDeclaredMoreThanOnce         = &BuildError{Kind: SymbolDeclaredMoreThanOnce}
	ErrSymbolUndeclared                   = &BuildError{Kind: SymbolUndeclared}
	ErrAssignToConst                      = &BuildError{Kind: AssignToConst}
	ErrInitializeConstWithVariable        = &BuildError{Kind: InitializeConstWithVariable}
	ErrInitializeConstWithFunctionCall    = &BuildError{Kind: InitializeConstWithFunctionCall}
	ErrBreakOutsideLoop                   = &BuildError{Kind: BreakOutsideLoop}
	ErrContinueOutsideLoop                = &BuildError{Kind: ContinueOutsideLoop}
	ErrUseFunctionAsVariable              = &BuildError{Kind: UseFunctionAsVariable}
	ErrFunctionUndeclared                 = &BuildError{Kind: FunctionUndeclared}
	ErrReturnWithExpressionInVoidFunction = &BuildError{Kind: ReturnWithExpressionInVoidFunction}
	ErrUsingVoidValue                     = &BuildError{Kind: UsingVoidValue}
	ErrArgumentCountMismatch              = &BuildError{Kind: ArgumentCountMismatch}
	ErrConstDivisionByZero                = &BuildError{Kind: ConstDivisionByZero}
)

func newError(kind ErrorKind, name string, pos frontend.Pos) error {
	return &BuildError{Kind: kind, Name: name, Pos: pos}
}

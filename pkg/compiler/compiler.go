// Package compiler drives the SysY pipeline: parse, build IR, verify, emit.
//
// Design: Fail-fast. The first error from any phase aborts the run and no
// partial artifact is returned.
package compiler

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/sysy-compiler/pkg/cfg"
	"github.com/GriffinCanCode/sysy-compiler/pkg/codegen/riscv32"
	"github.com/GriffinCanCode/sysy-compiler/pkg/frontend"
	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

// Mode selects the output artifact
type Mode int

const (
	ModeKoopa Mode = iota
	ModeRISCV
)

func (m Mode) String() string {
	switch m {
	case ModeKoopa:
		return "koopa"
	case ModeRISCV:
		return "riscv"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a CLI flag (-koopa, -riscv) to a Mode
func ParseMode(flag string) (Mode, bool) {
	switch flag {
	case "-koopa":
		return ModeKoopa, true
	case "-riscv":
		return ModeRISCV, true
	default:
		return 0, false
	}
}

// Options configures one compilation
type Options struct {
	Mode     Mode
	Validate bool // run the assembly validator on -riscv output
	File     string
}

// BuildIR parses source and lowers it to a verified IR program
func BuildIR(source string, file string) (*ir.Program, error) {
	logger.LogPhase("parse")
	unit, err := frontend.Parse(source)
	if err != nil {
		logger.LogError("parse", file, err.Error())
		return nil, err
	}
	logger.LogPhaseComplete("parse")

	logger.LogPhase("irgen")
	prog, err := ir.Build(unit)
	if err != nil {
		logger.LogError("irgen", file, err.Error())
		return nil, err
	}
	if err := cfg.VerifyProgram(prog); err != nil {
		logger.LogError("irgen", file, err.Error())
		return nil, fmt.Errorf("IR verification failed: %w", err)
	}
	for _, fn := range prog.Functions {
		if fn.IsDecl() {
			continue
		}
		// Blocks after a return or break stay in the layout with a terminator.
		if dead := len(fn.Blocks) - len(cfg.New(fn).Reachable()); dead > 0 {
			logger.Debug("Unreachable blocks", "function", fn.Name, "count", dead)
		}
	}
	logger.LogPhaseComplete("irgen")
	return prog, nil
}

// Compile runs the whole pipeline and returns the selected artifact as text
func Compile(source string, opts Options) (string, error) {
	logger.LogFileProcessing(opts.File)

	prog, err := BuildIR(source, opts.File)
	if err != nil {
		return "", err
	}

	var out string
	switch opts.Mode {
	case ModeKoopa:
		out = prog.String()

	case ModeRISCV:
		logger.LogPhase("codegen")
		var sb strings.Builder
		gen := riscv32.NewGenerator(&sb)
		if opts.Validate {
			out, err = gen.GenerateWithValidation(prog)
		} else {
			err = gen.Generate(prog)
			out = sb.String()
		}
		if err != nil {
			logger.LogError("codegen", opts.File, err.Error())
			return "", err
		}
		logger.LogPhaseComplete("codegen")

	default:
		return "", fmt.Errorf("unknown mode %v", opts.Mode)
	}

	return out, nil
}

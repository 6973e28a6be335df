// Package main implements the sysyc compiler binary.
//
// Usage: sysyc MODE INPUT -o OUTPUT, where MODE is -koopa or -riscv.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GriffinCanCode/sysy-compiler/pkg/compiler"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

const version = "0.1.0"

var (
	exitFn   = os.Exit
	getenvFn = os.Getenv
)

func main() {
	exitFn(run(os.Args[1:], os.Stdout, os.Stderr))
}

var errUsage = errors.New("usage: sysyc MODE INPUT -o OUTPUT")

func usage(w io.Writer) {
	fmt.Fprintln(w, `sysyc - SysY to Koopa IR / RISC-V compiler

Usage:
    sysyc -koopa <input.c> -o <output.koopa>   Emit Koopa IR text
    sysyc -riscv <input.c> -o <output.S>       Emit RV32IM assembly
    sysyc -version                             Show compiler version
    sysyc -help                                Show this help message

Environment (logs are off unless SYSYC_LOG_LEVEL or SYSYC_LOG_FILE is set):
    SYSYC_LOG_LEVEL   debug|info|warn|error (default warn)
    SYSYC_LOG_FORMAT  text|json (default text)
    SYSYC_LOG_FILE    append logs to this file instead of stderr`)
}

// run is main without the process exit, so tests can drive it
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 1 {
		switch args[0] {
		case "-version", "--version":
			fmt.Fprintf(stdout, "sysyc version %s\n", version)
			return 0
		case "-help", "--help", "-h":
			usage(stdout)
			return 0
		}
	}

	mode, input, output, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			usage(stderr)
		}
		return 1
	}

	cfg := logger.ConfigFromEnv(getenvFn)
	cfg.Output = stderr
	// Structured logs stay off unless asked for; stderr carries one error line.
	if getenvFn(logger.EnvLevel) == "" && cfg.LogFile == "" {
		cfg.Output = io.Discard
	}
	if err := logger.Init(cfg); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer logger.Reset()

	start := time.Now()
	logger.LogCompilerStart(args)

	if err := compileFile(mode, input, output); err != nil {
		logger.LogCompilerComplete(false, time.Since(start).String())
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger.LogCompilerComplete(true, time.Since(start).String())
	return 0
}

func parseArgs(args []string) (compiler.Mode, string, string, error) {
	if len(args) != 4 || args[2] != "-o" {
		return 0, "", "", errUsage
	}
	mode, ok := compiler.ParseMode(args[0])
	if !ok {
		return 0, "", "", fmt.Errorf("unknown mode %q: %w", args[0], errUsage)
	}
	return mode, args[1], args[3], nil
}

func compileFile(mode compiler.Mode, input, output string) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	out, err := compiler.Compile(string(src), compiler.Options{
		Mode:     mode,
		Validate: mode == compiler.ModeRISCV,
		File:     input,
	})
	if err != nil {
		return err
	}

	// Nothing is written unless the whole pipeline succeeded.
	return os.WriteFile(output, []byte(out), 0o644)
}

// Package riscv32 - Assembly validation and correctness verification
package riscv32

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

// ValidationError represents an assembly validation error
type ValidationError struct {
	Line    int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.Line, e.Message, e.Code)
}

// Validator validates generated RISC-V assembly
type Validator struct {
	errors []ValidationError
	warns  []ValidationError
}

// NewValidator creates a new assembly validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
		warns:  make([]ValidationError, 0),
	}
}

// asmLine is one parsed source line
type asmLine struct {
	num      int
	text     string
	label    string // set for `name:` lines
	op       string // mnemonic or directive
	operands []string
}

func (l asmLine) isInst() bool {
	return l.op != "" && !strings.HasPrefix(l.op, ".")
}

// operand kinds
const (
	opReg = iota
	opImm
	opMem
	opSym
)

// instShapes lists the operand kinds each supported mnemonic takes
var instShapes = map[string][]int{
	"add": {opReg, opReg, opReg}, "sub": {opReg, opReg, opReg},
	"mul": {opReg, opReg, opReg}, "div": {opReg, opReg, opReg}, "rem": {opReg, opReg, opReg},
	"and": {opReg, opReg, opReg}, "or": {opReg, opReg, opReg}, "xor": {opReg, opReg, opReg},
	"slt": {opReg, opReg, opReg}, "sgt": {opReg, opReg, opReg}, "sltu": {opReg, opReg, opReg},
	"addi": {opReg, opReg, opImm}, "andi": {opReg, opReg, opImm}, "ori": {opReg, opReg, opImm},
	"xori": {opReg, opReg, opImm}, "slti": {opReg, opReg, opImm}, "sltiu": {opReg, opReg, opImm},
	"seqz": {opReg, opReg}, "snez": {opReg, opReg}, "mv": {opReg, opReg}, "neg": {opReg, opReg},
	"li": {opReg, opImm}, "la": {opReg, opSym},
	"lw": {opReg, opMem}, "sw": {opReg, opMem},
	"bnez": {opReg, opSym}, "beqz": {opReg, opSym},
	"j": {opSym}, "call": {opSym}, "ret": {},
}

// immediate-carrying mnemonics limited to 12 signed bits
var imm12Insts = map[string]bool{
	"addi": true, "andi": true, "ori": true, "xori": true, "slti": true, "sltiu": true,
	"lw": true, "sw": true,
}

var (
	regPattern   = regexp.MustCompile(`^(zero|ra|sp|gp|tp|fp|s[0-9]|s1[01]|a[0-7]|t[0-6]|x[0-9]|x[12][0-9]|x3[01])$`)
	memPattern   = regexp.MustCompile(`^(-?[0-9]+)\(([a-z0-9]+)\)$`)
	labelPattern = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Validate performs comprehensive validation on assembly code
func (v *Validator) Validate(assembly string) error {
	lines := parseLines(assembly)

	v.validateSyntax(lines)
	v.validateOperands(lines)
	v.validateLabels(lines)
	v.validateCallingConvention(lines)
	v.validateStackBalance(lines)
	v.validateInstructionValidity(lines)
	v.detectRedundantMoves(lines)

	if len(v.errors) > 0 {
		return v.formatErrors()
	}

	if len(v.warns) > 0 {
		v.logWarnings()
	}

	return nil
}

// Warnings returns the warnings of the last Validate call
func (v *Validator) Warnings() []ValidationError {
	return v.warns
}

func parseLines(assembly string) []asmLine {
	var out []asmLine
	for i, raw := range strings.Split(assembly, "\n") {
		text := raw
		if idx := strings.Index(text, "#"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		l := asmLine{num: i + 1, text: text}
		if strings.HasSuffix(text, ":") {
			l.label = strings.TrimSuffix(text, ":")
			out = append(out, l)
			continue
		}

		fields := strings.SplitN(text, " ", 2)
		l.op = fields[0]
		if len(fields) == 2 {
			for _, operand := range strings.Split(fields[1], ",") {
				l.operands = append(l.operands, strings.TrimSpace(operand))
			}
		}
		out = append(out, l)
	}
	return out
}

// validateSyntax checks mnemonics, directives and label names
func (v *Validator) validateSyntax(lines []asmLine) {
	for _, l := range lines {
		switch {
		case l.label != "":
			if !labelPattern.MatchString(l.label) {
				v.addError(l.num, "invalid label format", l.text)
			}
		case strings.HasPrefix(l.op, "."):
			// directives are passed through to the assembler
		default:
			if _, ok := instShapes[l.op]; !ok {
				v.addError(l.num, fmt.Sprintf("unknown instruction: %s", l.op), l.text)
			}
		}
	}
}

// validateOperands checks operand count, register names and addressing modes
func (v *Validator) validateOperands(lines []asmLine) {
	for _, l := range lines {
		shape, ok := instShapes[l.op]
		if !ok || !l.isInst() {
			continue
		}
		if len(l.operands) != len(shape) {
			v.addError(l.num, fmt.Sprintf("%s takes %d operands, got %d", l.op, len(shape), len(l.operands)), l.text)
			continue
		}

		for i, kind := range shape {
			operand := l.operands[i]
			switch kind {
			case opReg:
				if !regPattern.MatchString(operand) {
					v.addError(l.num, fmt.Sprintf("invalid register: %s", operand), l.text)
				}
			case opImm:
				n, err := strconv.Atoi(operand)
				if err != nil {
					v.addError(l.num, fmt.Sprintf("invalid immediate: %s", operand), l.text)
					continue
				}
				if imm12Insts[l.op] && !fitsImm12(n) {
					v.addError(l.num, fmt.Sprintf("immediate %d out of range for I-type instruction", n), l.text)
				}
			case opMem:
				m := memPattern.FindStringSubmatch(operand)
				if m == nil || !regPattern.MatchString(m[2]) {
					v.addError(l.num, fmt.Sprintf("invalid memory addressing mode: %s", operand), l.text)
					continue
				}
				if n, _ := strconv.Atoi(m[1]); !fitsImm12(n) {
					v.addError(l.num, fmt.Sprintf("offset %d out of range for %s", n, l.op), l.text)
				}
			case opSym:
				if !labelPattern.MatchString(operand) {
					v.addError(l.num, fmt.Sprintf("invalid symbol: %s", operand), l.text)
				}
			}
		}
	}
}

// validateLabels reports jumps to undefined local labels and duplicate labels
func (v *Validator) validateLabels(lines []asmLine) {
	defined := map[string]bool{}
	for _, l := range lines {
		if l.label == "" {
			continue
		}
		if defined[l.label] {
			v.addError(l.num, fmt.Sprintf("duplicate label: %s", l.label), l.text)
		}
		defined[l.label] = true
	}

	for _, l := range lines {
		if !l.isInst() || len(l.operands) == 0 {
			continue
		}
		switch l.op {
		case "j", "bnez", "beqz":
			target := l.operands[len(l.operands)-1]
			if strings.HasPrefix(target, ".L") && !defined[target] {
				v.addError(l.num, fmt.Sprintf("undefined label: %s", target), l.text)
			}
		}
	}
}

// functions splits the .text section into per-function line runs
func functions(lines []asmLine) map[string][]asmLine {
	funcs := map[string][]asmLine{}
	inText := false
	current := ""
	for _, l := range lines {
		switch l.op {
		case ".text":
			inText = true
			continue
		case ".data", ".section", ".rodata", ".bss":
			inText = false
			current = ""
			continue
		}
		if !inText {
			continue
		}
		if l.label != "" && !strings.HasPrefix(l.label, ".L") {
			current = l.label
			funcs[current] = nil
			continue
		}
		if current != "" {
			funcs[current] = append(funcs[current], l)
		}
	}
	return funcs
}

// validateCallingConvention checks that non-leaf functions save and restore ra
func (v *Validator) validateCallingConvention(lines []asmLine) {
	for name, body := range functions(lines) {
		calls, saved, restored := false, false, false
		for _, l := range body {
			switch {
			case l.op == "call":
				calls = true
			case l.op == "sw" && len(l.operands) > 0 && l.operands[0] == "ra":
				saved = true
			case l.op == "lw" && len(l.operands) > 0 && l.operands[0] == "ra":
				restored = true
			case l.op == "ret":
				if calls && !restored {
					v.addError(l.num, fmt.Sprintf("ra not restored before ret in %s", name), l.text)
				}
			}
		}
		if calls && !saved {
			v.addError(lineOf(body), fmt.Sprintf("%s calls without saving ra", name), name+":")
		}
	}
}

// validateStackBalance checks that sp is back to its entry value at every ret
func (v *Validator) validateStackBalance(lines []asmLine) {
	for name, body := range functions(lines) {
		net := 0
		lastLi := map[string]int{}
		for _, l := range body {
			switch {
			case l.op == "li" && len(l.operands) == 2:
				if n, err := strconv.Atoi(l.operands[1]); err == nil {
					lastLi[l.operands[0]] = n
				}
			case l.op == "addi" && len(l.operands) == 3 && l.operands[0] == "sp" && l.operands[1] == "sp":
				n, _ := strconv.Atoi(l.operands[2])
				net += n
			case l.op == "add" && len(l.operands) == 3 && l.operands[0] == "sp" && l.operands[1] == "sp":
				net += lastLi[l.operands[2]]
			case l.op == "ret":
				if net != 0 {
					v.addWarn(l.num, fmt.Sprintf("potential stack imbalance in %s: sp off by %d", name, net), l.text)
				}
				if net > 0 {
					v.addError(l.num, "stack underflow detected", l.text)
				}
			}
		}
	}
}

// validateInstructionValidity checks for suspicious instruction forms
func (v *Validator) validateInstructionValidity(lines []asmLine) {
	for _, l := range lines {
		if !l.isInst() || len(l.operands) == 0 {
			continue
		}

		shape := instShapes[l.op]
		if len(shape) > 1 && shape[0] == opReg && l.op != "sw" && l.op != "bnez" && l.op != "beqz" {
			if dest := l.operands[0]; dest == "zero" || dest == "x0" {
				v.addWarn(l.num, "writing to zero register has no effect", l.text)
			}
		}

		if (l.op == "div" || l.op == "rem") && len(l.operands) == 3 {
			if divisor := l.operands[2]; divisor == "zero" || divisor == "x0" {
				v.addError(l.num, "division by zero", l.text)
			}
		}
	}
}

// detectRedundantMoves identifies and warns about redundant move instructions
func (v *Validator) detectRedundantMoves(lines []asmLine) {
	for i, l := range lines {
		if l.op != "mv" || len(l.operands) != 2 {
			continue
		}
		dest, src := l.operands[0], l.operands[1]

		if dest == src {
			v.addWarn(l.num, fmt.Sprintf("redundant move: source and destination are identical (%s)", src), l.text)
			continue
		}

		if i+1 < len(lines) {
			next := lines[i+1]
			if next.text == l.text {
				v.addWarn(next.num, "duplicate move instruction", next.text)
			} else if (next.op == "mv" || next.op == "li") && len(next.operands) > 0 && next.operands[0] == dest {
				v.addWarn(l.num, "move immediately overwritten by next instruction", l.text)
			}
		}
	}
}

// Helper functions

func lineOf(body []asmLine) int {
	if len(body) == 0 {
		return 0
	}
	return body[0].num
}

func (v *Validator) addError(line int, msg, code string) {
	v.errors = append(v.errors, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) addWarn(line int, msg, code string) {
	v.warns = append(v.warns, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) formatErrors() error {
	var sb strings.Builder
	sb.WriteString("Assembly validation failed:\n")
	for _, err := range v.errors {
		sb.WriteString("  " + err.Error() + "\n")
	}
	return fmt.Errorf("%s", sb.String())
}

func (v *Validator) logWarnings() {
	for _, warn := range v.warns {
		logger.Warn("Assembly validation warning", "line", warn.Line, "msg", warn.Message)
	}
}

// ValidateProgram validates an entire generated program
func ValidateProgram(assembly string) error {
	validator := NewValidator()
	return validator.Validate(assembly)
}

// QuickValidate performs fast basic validation for development
func QuickValidate(assembly string) bool {
	validator := NewValidator()
	lines := parseLines(assembly)

	// Just check syntax and operands for quick feedback
	validator.validateSyntax(lines)
	validator.validateOperands(lines)

	return len(validator.errors) == 0
}

// ValidateAndReport validates assembly and returns a detailed report
func ValidateAndReport(assembly string) (bool, string) {
	validator := NewValidator()
	err := validator.Validate(assembly)

	var report strings.Builder
	report.WriteString("=== RISC-V Assembly Validation Report ===\n\n")

	if err != nil {
		report.WriteString(fmt.Sprintf("Status: FAILED\n\nErrors:\n%s\n", err.Error()))
		return false, report.String()
	}

	report.WriteString("Status: PASSED\n\n")

	if len(validator.warns) > 0 {
		report.WriteString("Warnings:\n")
		for _, warn := range validator.warns {
			report.WriteString(fmt.Sprintf("  Line %d: %s\n", warn.Line, warn.Message))
		}
	} else {
		report.WriteString("No warnings.\n")
	}

	instCount := 0
	for _, l := range parseLines(assembly) {
		if l.isInst() {
			instCount++
		}
	}

	report.WriteString("\nStatistics:\n")
	report.WriteString(fmt.Sprintf("  Total lines: %d\n", len(strings.Split(assembly, "\n"))))
	report.WriteString(fmt.Sprintf("  Instructions: %d\n", instCount))

	logger.Info("RISC-V assembly validation passed", "instructions", instCount, "warnings", len(validator.warns))

	return true, report.String()
}

// Package calc is the SCSA 1-bit virtual calculator.
//
// An expression is compiled to SCSA1 assembly, assembled, and run on a
// 1-bit core with a 32 byte memory. The result is the output cell.
package calc

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ezrec/scsa/cpu"
)

const (
	MEMORY_SIZE = 32   // Calculator memory, in bytes.
	OUTPUT_PORT = 0x1F // Output cell, the last byte of memory.
	OPERAND_B   = 0x18 // Scratch cell for the second operand.
	MAX_CYCLES  = 16
)

// Operation is a calculator operation.
type Operation string

const (
	OP_ADD = Operation("ADD") // Sum bit, without carry.
	OP_XOR = Operation("XOR")
	OP_AND = Operation("AND")
	OP_NOT = Operation("NOT")
)

// Expression is a parsed calculator expression.
type Expression struct {
	Op Operation
	A  int
	B  int // Unused by NOT.
}

func (expr Expression) String() string {
	if expr.Op == OP_NOT {
		return f("%v %d", expr.Op, expr.A)
	}
	return f("%d %v %d", expr.A, expr.Op, expr.B)
}

func parseBit(word string) (bit int, err error) {
	bit, err = strconv.Atoi(word)
	if err != nil || (bit != 0 && bit != 1) {
		err = ErrOperandInvalid
	}
	return
}

func parseOperation(word string) (op Operation, err error) {
	op = Operation(strings.ToUpper(word))
	switch op {
	case OP_ADD, OP_XOR, OP_AND, OP_NOT:
	default:
		err = ErrOperation(word)
	}
	return
}

// Parse parses 'A OP B' (ADD, XOR, AND) or 'NOT A'.
func Parse(text string) (expr Expression, err error) {
	words := strings.Fields(text)

	switch len(words) {
	case 2:
		expr.Op, err = parseOperation(words[0])
		if err != nil {
			return
		}
		if expr.Op != OP_NOT {
			err = ErrExpressionSyntax
			return
		}
		expr.A, err = parseBit(words[1])
	case 3:
		expr.Op, err = parseOperation(words[1])
		if err != nil {
			return
		}
		if expr.Op == OP_NOT {
			err = ErrExpressionSyntax
			return
		}
		expr.A, err = parseBit(words[0])
		if err != nil {
			return
		}
		expr.B, err = parseBit(words[2])
	default:
		err = ErrExpressionSyntax
	}

	return
}

// Source returns the SCSA1 assembly that evaluates the expression.
func (expr Expression) Source() string {
	var lines []string
	if expr.Op == OP_NOT {
		lines = []string{
			fmt.Sprintf("LDI R0,%d", expr.A),
			"NOT",
		}
	} else {
		lines = []string{
			fmt.Sprintf("LDI R0,%d", expr.B),
			"STA R0,$(OPERAND_B)",
			fmt.Sprintf("LDI R0,%d", expr.A),
			fmt.Sprintf("%v R0,$(OPERAND_B)", expr.Op),
		}
	}
	lines = append(lines, "OUT", "HLT")

	return strings.Join(lines, "\n") + "\n"
}

// Calculator runs expressions on a 1-bit SCSA core.
type Calculator struct {
	Verbose bool        // If set, logs the assembly listing.
	Log     *log.Logger // Destination of assembler diagnostics, may be nil.
	Tracer  cpu.Tracer  // Optional cycle observer.
}

// Config returns the calculator core configuration.
func Config() cpu.Config {
	return cpu.Config{
		Isa:        cpu.SCSA1,
		Width:      1,
		MemorySize: MEMORY_SIZE,
		OutputPort: OUTPUT_PORT,
	}
}

// Compile assembles an expression into a calculator program.
func (calc *Calculator) Compile(expr Expression) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{
		Verbose:  calc.Verbose,
		Isa:      cpu.SCSA1,
		Origin:   0,
		Capacity: MEMORY_SIZE,
	}
	if calc.Verbose {
		asm.Log = calc.Log
	}
	asm.Predefine("OPERAND_B", fmt.Sprintf("%d", OPERAND_B))
	asm.Predefine("OUTPUT_PORT", fmt.Sprintf("%d", OUTPUT_PORT))

	prog, err = asm.Parse(strings.NewReader(expr.Source()))
	if err != nil {
		return
	}
	if len(prog.Diagnostics) != 0 {
		err = prog.Diagnostics[0]
		prog = nil
	}

	return
}

// Solve evaluates an expression, returning the output cell.
func (calc *Calculator) Solve(text string) (result uint64, err error) {
	expr, err := Parse(text)
	if err != nil {
		return
	}

	prog, err := calc.Compile(expr)
	if err != nil {
		return
	}

	machine, err := cpu.NewCpu(Config())
	if err != nil {
		return
	}
	machine.Verbose = calc.Verbose
	machine.Tracer = calc.Tracer

	err = machine.Load(prog.Image.Origin, prog.Image.Data)
	if err != nil {
		return
	}
	machine.Pc = prog.Image.Origin

	for cycle := 0; cycle < MAX_CYCLES && !machine.Halted; cycle++ {
		err = machine.Tick()
		if err != nil {
			return
		}
	}
	if !machine.Halted {
		err = ErrNoResult
		return
	}

	result, err = machine.ReadWord(OUTPUT_PORT)
	return
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	DEFAULT_ORIGIN = 0x0100 // Default image origin, and initial cursors.
	COMMENT        = ";"    // Comment marker.
	DIRECTIVE      = "."    // Directive marker.
)

// Assembler is a single pass, line oriented assembler for SCSA.
//
// There is no symbol table: every address is a literal, optionally computed
// with a $(...) expression over the predefined constants.
type Assembler struct {
	Verbose  bool        // If set, echoes every source line.
	Isa      *Table      // Instruction set to assemble against.
	Origin   uint16      // Address of the first image byte.
	Capacity int         // Size of the address space backing the image.
	Log      *log.Logger // Destination of diagnostics.

	predefine map[string]string // Constants visible to $(...) expressions.

	buffer    []byte
	pc        int // Logical program counter.
	offset    int // Physical write position.
	highWater int // Highest offset written.
	stmts     []Statement
}

// NewAssembler creates an SCSA-16 assembler with the default origin.
func NewAssembler() *Assembler {
	return &Assembler{
		Isa:      SCSA16,
		Origin:   DEFAULT_ORIGIN,
		Capacity: ADDRESS_SPACE,
		Log:      log.Default(),
	}
}

// Predefine defines a constant for $(...) expressions, or redefines an
// existing one.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

func (asm *Assembler) logf(format string, args ...any) {
	if asm.Log != nil {
		asm.Log.Print(f(format, args...))
	}
}

// ParseNumber parses a numeric literal: hex when prefixed with 0x,
// otherwise decimal. The value is truncated to 16 bits.
func ParseNumber(word string) (value uint16, err error) {
	var v64 int64
	if len(word) > 2 && word[0] == '0' && (word[1] == 'x' || word[1] == 'X') {
		var u64 uint64
		u64, err = strconv.ParseUint(word[2:], 16, 64)
		v64 = int64(u64)
	} else {
		v64, err = strconv.ParseInt(word, 10, 64)
	}
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = uint16(v64)
	return
}

// parenEval does compile-time $(...) evaluations.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.predefine {
		var v16 uint16
		v16, err = ParseNumber(str)
		if err != nil {
			// Ignore non-numeric predefines.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(int(v16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

var reParen = regexp.MustCompile(`\$\([^\$]*\)`)

// tokenize expands $(...) expressions, and splits a line on white space
// and commas.
func (asm *Assembler) tokenize(line string) (words []string, err error) {
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return
}

// Parse assembles an input stream into a Program.
//
// Syntax errors are line local: the line is skipped, the error is logged
// and kept in Program.Diagnostics, and assembly continues. The returned
// error is only set if the input could not be read.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	if asm.Isa == nil {
		asm.Isa = SCSA16
	}
	if asm.Capacity <= 0 || asm.Capacity > ADDRESS_SPACE {
		asm.Capacity = ADDRESS_SPACE
	}
	if int(asm.Origin) >= asm.Capacity {
		err = ErrImageOverflow
		return
	}

	asm.buffer = make([]byte, asm.Capacity)
	asm.pc = int(asm.Origin)
	asm.offset = int(asm.Origin)
	asm.highWater = int(asm.Origin)
	asm.stmts = nil

	prog = &Program{}

	asm.logf("--- %v Assembler Start ---", strings.ToUpper(asm.Isa.Name))

	scanner := bufio.NewScanner(input)
	var lineno int
	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			asm.logf("%v: %v", lineno, text)
		}

		line := strings.TrimSpace(text)
		if len(line) == 0 || strings.HasPrefix(line, COMMENT) {
			continue
		}
		line, _, _ = strings.Cut(line, COMMENT)

		var words []string
		words, err = asm.tokenize(line)
		if err == nil && len(words) > 0 {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: strings.TrimSpace(line), Err: err}
			asm.logf("[ERROR] %v", err)
			prog.Diagnostics = append(prog.Diagnostics, err)
			err = nil
		}
	}

	err = scanner.Err()
	if err != nil {
		prog = nil
		return
	}

	size := max(asm.highWater-int(asm.Origin), 0)
	asm.logf("--- %v Assembler Complete. Size: %v Bytes ---", strings.ToUpper(asm.Isa.Name), strconv.Itoa(size))

	prog.Statements = asm.stmts
	prog.Image = &Image{
		Origin: asm.Origin,
		Data:   slices.Clone(asm.buffer[int(asm.Origin) : int(asm.Origin)+size]),
	}

	return
}

// emit writes bytes at the image offset, and advances it.
func (asm *Assembler) emit(data []byte) (err error) {
	if asm.offset < int(asm.Origin) {
		err = ErrImageOrigin(asm.offset)
		return
	}
	if asm.offset+len(data) > asm.Capacity {
		err = ErrImageOverflow
		return
	}

	copy(asm.buffer[asm.offset:], data)
	asm.offset += len(data)
	asm.highWater = max(asm.highWater, asm.offset)

	return
}

// value returns the numeric value of the n'th argument.
func value(args []string, n int) (v uint16, err error) {
	if len(args) <= n {
		err = ErrOperandMissing
		return
	}
	return ParseNumber(args[n])
}

// parseDirective evaluates a directive. Unknown directives are ignored.
func (asm *Assembler) parseDirective(words []string, lineno int) (err error) {
	args := words[1:]

	switch fold(words[0]) {
	case ".org":
		if len(args) == 0 {
			err = ErrDirectiveSyntax
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		var addr uint16
		addr, err = value(args, 0)
		if err != nil {
			return
		}
		if int(addr) >= asm.Capacity {
			err = ErrImageOverflow
			return
		}
		asm.stmts = append(asm.stmts, Statement{LineNo: lineno, Pc: int(addr), Offset: int(addr), Words: words})
		asm.pc = int(addr)
		asm.offset = int(addr)
		asm.logf("[ASM] Setting PC/Offset to: 0x%04X", addr)
	case ".word":
		if len(args) == 0 {
			err = ErrDirectiveSyntax
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		var data uint16
		data, err = value(args, 0)
		if err != nil {
			return
		}
		offset := asm.offset
		bytes := []byte{byte(data >> 8), byte(data & 0xff)}
		err = asm.emit(bytes)
		if err != nil {
			return
		}
		asm.stmts = append(asm.stmts, Statement{LineNo: lineno, Pc: asm.pc, Offset: offset, Words: words, Bytes: bytes})
		asm.logf("[ASM] %04X: .WORD -> %02X %02X", offset, bytes[0], bytes[1])
	default:
		// Tolerated no-op.
		if asm.Verbose {
			asm.logf("[ASM] ignoring directive %v", words[0])
		}
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if strings.HasPrefix(words[0], DIRECTIVE) {
		return asm.parseDirective(words, lineno)
	}

	desc, ok := asm.Isa.Lookup(words[0])
	if !ok {
		err = ErrInstruction(words[0])
		return
	}

	args := words[1:]
	if len(args) < desc.Operands {
		err = ErrOperandMissing
		return
	}
	if len(args) > desc.Operands {
		err = ErrOpcodeExtraArgs
		return
	}

	var code Code
	switch desc.Operands {
	case 0:
		code = MakeCode(desc.Opcode, REG_R0, 0)
	case 1:
		// Single address form; the register field is unused.
		var operand uint16
		operand, err = value(args, 0)
		if err != nil {
			return
		}
		code = MakeCode(desc.Opcode, REG_R0, operand)
	case 2:
		reg, ok := regMap[fold(args[0])]
		if !ok {
			err = ErrRegister(args[0])
			return
		}
		var operand uint16
		operand, err = value(args, 1)
		if err != nil {
			return
		}
		code = MakeCode(desc.Opcode, reg, operand)
	}

	bytes := code.Bytes()
	offset := asm.offset
	err = asm.emit(bytes[:])
	if err != nil {
		return
	}

	asm.stmts = append(asm.stmts, Statement{LineNo: lineno, Pc: asm.pc, Offset: offset, Words: words, Bytes: bytes[:]})
	asm.logf("[ASM] %04X: %v -> %02X %02X %02X", asm.pc, strings.ToUpper(words[0]), bytes[0], bytes[1], bytes[2])

	asm.pc += INSTRUCTION_SIZE

	return
}

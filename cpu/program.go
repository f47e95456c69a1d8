package cpu

import (
	"iter"
)

// Statement is a line of assembled source with what it emitted.
type Statement struct {
	LineNo int      // Source line number.
	Pc     int      // Program counter when the line was assembled.
	Offset int      // Image buffer offset the bytes were written at.
	Words  []string // Tokens of the line.
	Bytes  []byte   // Emitted bytes, nil for .ORG.
}

// Program is the output of the assembler.
type Program struct {
	Statements  []Statement
	Image       *Image
	Diagnostics []error // Per-line syntax errors, each an ErrSyntax.
}

// Debug finds the instruction statement covering an address.
func (prog *Program) Debug(pc uint16) (stmt *Statement, ok bool) {
	for n, st := range prog.Statements {
		if len(st.Bytes) != INSTRUCTION_SIZE {
			continue
		}
		if int(pc) >= st.Offset && int(pc) < st.Offset+len(st.Bytes) {
			return &prog.Statements[n], true
		}
	}

	return
}

// LineNo returns the source line of an address, or 0 if unknown.
func (prog *Program) LineNo(pc uint16) int {
	if prog == nil {
		return 0
	}
	stmt, ok := prog.Debug(pc)
	if !ok {
		return 0
	}
	return stmt.LineNo
}

// Codes iterates the assembled instructions by address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, st := range prog.Statements {
			if len(st.Bytes) != INSTRUCTION_SIZE {
				continue
			}
			code, err := DecodeCode(st.Bytes)
			if err != nil {
				continue
			}
			if !yield(uint16(st.Offset), code) {
				return
			}
		}
	}
}

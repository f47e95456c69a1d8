package cpu

import (
	"iter"
	"slices"

	"golang.org/x/text/cases"
)

// CodeOp is a 4-bit operation code.
type CodeOp uint8

const (
	OP_HLT = CodeOp(0x0) // Halt.
	OP_LDA = CodeOp(0x2) // Load accumulator from memory.
	OP_STA = CodeOp(0x3) // Store accumulator to memory.
	OP_LDI = CodeOp(0x4) // Load accumulator with immediate.
	OP_NOT = CodeOp(0x5) // Complement accumulator.
	OP_XOR = CodeOp(0x6) // Exclusive-or with memory.
	OP_AND = CodeOp(0x7) // And with memory.
	OP_JMP = CodeOp(0x8) // Unconditional jump.
	OP_OUT = CodeOp(0xB) // Accumulator to output port.
	OP_ADD = CodeOp(0xC) // Add memory.
	OP_SUB = CodeOp(0xD) // Subtract memory.
	OP_MUL = CodeOp(0xE) // Multiply by memory.
	OP_DIV = CodeOp(0xF) // Divide by memory.

	OP_MASK = CodeOp(0xF)
)

// CodeRegister is a 4-bit register id.
type CodeRegister uint8

const (
	REG_R0 = CodeRegister(0) // Accumulator.
)

// regMap maps register names (case folded) to register ids.
var regMap = map[string]CodeRegister{
	"r0":  REG_R0,
	"acc": REG_R0,
}

// Descriptor describes a single mnemonic of an instruction set.
type Descriptor struct {
	Mnemonic string // Upper case mnemonic.
	Opcode   CodeOp // Opcode nibble.
	Operands int    // Operand count: 0, 1 (address) or 2 (register, operand).
}

// Table is an immutable instruction set.
type Table struct {
	Name string

	descs    []Descriptor
	mnemonic map[string]int
	opcode   [OP_MASK + 1]int // index+1 into descs, 0 if unused
}

func fold(word string) string {
	return cases.Fold().String(word)
}

// NewTable builds an instruction set, rejecting duplicated opcodes or
// mnemonics and out of range descriptors.
func NewTable(name string, descs ...Descriptor) (table *Table, err error) {
	tb := &Table{
		Name:     name,
		descs:    slices.Clone(descs),
		mnemonic: make(map[string]int, len(descs)),
	}

	for n, desc := range tb.descs {
		if len(desc.Mnemonic) == 0 || desc.Opcode > OP_MASK || desc.Operands < 0 || desc.Operands > 2 {
			err = ErrDescriptorInvalid(desc.Mnemonic)
			return
		}
		key := fold(desc.Mnemonic)
		if _, ok := tb.mnemonic[key]; ok {
			err = ErrMnemonicDuplicate(desc.Mnemonic)
			return
		}
		if tb.opcode[desc.Opcode] != 0 {
			err = ErrOpcodeDuplicate(desc.Opcode)
			return
		}
		tb.mnemonic[key] = n
		tb.opcode[desc.Opcode] = n + 1
	}

	table = tb
	return
}

// MustTable is like NewTable, but panics on an invalid table.
func MustTable(name string, descs ...Descriptor) *Table {
	table, err := NewTable(name, descs...)
	if err != nil {
		panic(name + ": " + err.Error())
	}
	return table
}

// Lookup finds a mnemonic, ignoring letter case.
func (tb *Table) Lookup(mnemonic string) (desc Descriptor, ok bool) {
	n, ok := tb.mnemonic[fold(mnemonic)]
	if ok {
		desc = tb.descs[n]
	}
	return
}

// ByOpcode finds the descriptor of an opcode.
func (tb *Table) ByOpcode(op CodeOp) (desc Descriptor, ok bool) {
	if op > OP_MASK {
		return
	}
	n := tb.opcode[op]
	if n == 0 {
		return
	}
	return tb.descs[n-1], true
}

// All iterates the descriptors in declaration order.
func (tb *Table) All() iter.Seq[Descriptor] {
	return slices.Values(tb.descs)
}

// String returns the mnemonic of an opcode in the instruction set, or a
// hex placeholder.
func (tb *Table) String(op CodeOp) string {
	desc, ok := tb.ByOpcode(op)
	if !ok {
		return f("?%X", uint8(op))
	}
	return desc.Mnemonic
}

// SCSA16 is the instruction set of the 16-bit fixed boot machine.
var SCSA16 = MustTable("scsa16",
	Descriptor{"HLT", OP_HLT, 0},
	Descriptor{"LDA", OP_LDA, 2},
	Descriptor{"STA", OP_STA, 2},
	Descriptor{"LDI", OP_LDI, 2},
	Descriptor{"JMP", OP_JMP, 1},
	Descriptor{"ADD", OP_ADD, 2},
	Descriptor{"SUB", OP_SUB, 2},
	Descriptor{"MUL", OP_MUL, 2},
	Descriptor{"DIV", OP_DIV, 2},
)

// SCSA1 is the instruction set of the 1-bit calculator.
var SCSA1 = MustTable("scsa1",
	Descriptor{"HLT", OP_HLT, 0},
	Descriptor{"LDA", OP_LDA, 2},
	Descriptor{"STA", OP_STA, 2},
	Descriptor{"LDI", OP_LDI, 2},
	Descriptor{"NOT", OP_NOT, 0},
	Descriptor{"XOR", OP_XOR, 2},
	Descriptor{"AND", OP_AND, 2},
	Descriptor{"OUT", OP_OUT, 0},
	Descriptor{"ADD", OP_ADD, 2},
)

var tables = []*Table{SCSA16, SCSA1}

// TableByName returns a predefined instruction set.
func TableByName(name string) (table *Table, err error) {
	for _, table = range tables {
		if table.Name == fold(name) {
			return
		}
	}
	table = nil
	err = ErrTableUnknown(name)
	return
}

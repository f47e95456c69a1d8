// Package cpu implements the SCSA instruction set, its assembler and the
// virtual processor core.
//
// An instruction is three bytes: the high nibble of the first byte is the
// opcode, the low nibble is the register id, and the next two bytes are a
// big-endian 16-bit operand used as an address or an immediate. The single
// general register is the accumulator (R0, also spelt ACC).
//
// The assembler is line oriented: it has no labels and no forward
// references, every address is a literal. It tracks two cursors, the
// logical program counter and the physical image offset, which the .ORG
// directive moves together and the .WORD directive separates.
//
// The core fetches, decodes and executes against a configurable register
// width, wrapping arithmetic by truncation. Wide registers (see Register)
// only carry a security tag.
package cpu

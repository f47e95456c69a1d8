package cpu

import (
	"io"
)

const (
	INSTRUCTION_SIZE = 3       // Bytes per encoded instruction.
	WORD_SIZE        = 2       // Bytes per .WORD datum.
	ADDRESS_SPACE    = 0x10000 // Full 16-bit address space.
)

// Code is a decoded instruction word.
type Code struct {
	Opcode   CodeOp
	Register CodeRegister
	Operand  uint16
}

// MakeCode creates an instruction.
func MakeCode(op CodeOp, reg CodeRegister, operand uint16) Code {
	return Code{Opcode: op & OP_MASK, Register: reg & 0xf, Operand: operand}
}

// MakeCodeHalt creates a halt instruction.
func MakeCodeHalt() Code {
	return MakeCode(OP_HLT, REG_R0, 0)
}

// MakeCodeJump creates an unconditional jump to an address.
func MakeCodeJump(addr uint16) Code {
	return MakeCode(OP_JMP, REG_R0, addr)
}

// Bytes encodes the instruction: opcode and register nibbles, then the
// operand big-endian.
func (code Code) Bytes() [INSTRUCTION_SIZE]byte {
	return [INSTRUCTION_SIZE]byte{
		(byte(code.Opcode&OP_MASK) << 4) | byte(code.Register&0xf),
		byte(code.Operand >> 8),
		byte(code.Operand & 0xff),
	}
}

// DecodeCode decodes the instruction at the start of data.
func DecodeCode(data []byte) (code Code, err error) {
	if len(data) < INSTRUCTION_SIZE {
		err = ErrCodeShort
		return
	}

	code = Code{
		Opcode:   CodeOp(data[0]>>4) & OP_MASK,
		Register: CodeRegister(data[0] & 0xf),
		Operand:  (uint16(data[1]) << 8) | uint16(data[2]),
	}
	return
}

// String returns the assembly form of the instruction in the default
// instruction set.
func (code Code) String() string {
	return code.Format(SCSA16)
}

// Format returns the assembly form of the instruction in an instruction set.
func (code Code) Format(isa *Table) string {
	desc, ok := isa.ByOpcode(code.Opcode)
	if !ok {
		return f("?%X %X,0x%04X", uint8(code.Opcode), uint8(code.Register), code.Operand)
	}
	switch desc.Operands {
	case 0:
		return desc.Mnemonic
	case 1:
		return f("%v 0x%04X", desc.Mnemonic, code.Operand)
	default:
		return f("%v R%d,0x%04X", desc.Mnemonic, code.Register, code.Operand)
	}
}

// Image is a flat binary image. It has no header; Origin is the address
// its first byte is loaded at.
type Image struct {
	Origin uint16
	Data   []byte
}

// Len returns the image size in bytes.
func (img *Image) Len() int {
	return len(img.Data)
}

// WriteTo writes the raw image bytes.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	wrote, err := w.Write(img.Data)
	n = int64(wrote)
	return
}

// ReadImage reads a raw image to be loaded at origin.
func ReadImage(r io.Reader, origin uint16) (img *Image, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	img = &Image{Origin: origin, Data: data}
	return
}

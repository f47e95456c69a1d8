package cpu

import (
	"errors"
	"strconv"

	"github.com/ezrec/scsa/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted         = errors.New(f("halted"))
	ErrOpcodeUnknown  = errors.New(f("unknown opcode"))
	ErrDivideByZero   = errors.New(f("divide by zero"))
	ErrAddressInvalid = errors.New(f("address invalid"))
	ErrWidthInvalid   = errors.New(f("register width invalid"))
	ErrMemoryInvalid  = errors.New(f("memory size invalid"))
	ErrTableMissing   = errors.New(f("instruction set missing"))

	// Wide register errors
	ErrLimbInvalid = errors.New(f("limb invalid"))
	ErrTagInvalid  = errors.New(f("tag range invalid"))

	// Assembler errors
	ErrDirectiveSyntax    = errors.New(f("directive value missing"))
	ErrOperandMissing     = errors.New(f("operand missing"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrInstructionInvalid = errors.New(f("unknown instruction"))
	ErrRegisterInvalid    = errors.New(f("invalid register"))
	ErrImageOverflow      = errors.New(f("image capacity exceeded"))
	ErrCodeShort          = errors.New(f("instruction truncated"))
)

type ErrOpcodeDuplicate CodeOp

func (eo ErrOpcodeDuplicate) Error() string {
	return f("opcode 0x%X duplicated", uint8(eo))
}

type ErrMnemonicDuplicate string

func (em ErrMnemonicDuplicate) Error() string {
	return f("mnemonic %v duplicated", string(em))
}

type ErrDescriptorInvalid string

func (ed ErrDescriptorInvalid) Error() string {
	return f("descriptor '%v' invalid", string(ed))
}

type ErrTableUnknown string

func (et ErrTableUnknown) Error() string {
	return f("instruction set '%v' unknown", string(et))
}

// ErrOpcode reports the instruction that failed to execute.
type ErrOpcode struct {
	Pc   uint16
	Code Code
	Err  error
}

func (eo *ErrOpcode) Error() string {
	return f("pc 0x%04X opcode 0x%X operand 0x%04X: %v", eo.Pc, uint8(eo.Code.Opcode), eo.Code.Operand, eo.Err)
}

func (eo *ErrOpcode) Unwrap() error {
	return eo.Err
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %v '%v' %v", strconv.Itoa(err.LineNo), err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrInstruction reports the mnemonic that could not be assembled.
type ErrInstruction string

func (ei ErrInstruction) Error() string {
	return f("%v: %v", ErrInstructionInvalid, string(ei))
}

func (ei ErrInstruction) Unwrap() error {
	return ErrInstructionInvalid
}

// ErrRegister reports the register token that could not be resolved.
type ErrRegister string

func (er ErrRegister) Error() string {
	return f("%v: %v", ErrRegisterInvalid, string(er))
}

func (er ErrRegister) Unwrap() error {
	return ErrRegisterInvalid
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrImageOrigin reports a write below the image origin.
type ErrImageOrigin int

func (eo ErrImageOrigin) Error() string {
	return f("write at 0x%04X is below the image origin", int(eo))
}

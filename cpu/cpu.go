// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"strconv"
)

const (
	DEFAULT_WIDTH       = 16     // Default accumulator width in bits.
	DEFAULT_OUTPUT_PORT = 0xFFFE // Default output cell.
	MAX_WIDTH           = 64     // Widest accumulator with defined arithmetic.
)

var _cpu_defines = map[string]string{
	"INSTRUCTION_SIZE": fmt.Sprintf("%d", INSTRUCTION_SIZE),
	"WORD_SIZE":        fmt.Sprintf("%d", WORD_SIZE),
}

// Config describes the processor hardware.
type Config struct {
	Isa        *Table // Instruction set decoded by the core.
	Width      int    // Accumulator width in bits, 1 to MAX_WIDTH.
	MemorySize int    // Address space size in bytes.
	OutputPort uint16 // Designated output cell.
}

// DefaultConfig is the SCSA-16 fixed boot machine.
func DefaultConfig() Config {
	return Config{
		Isa:        SCSA16,
		Width:      DEFAULT_WIDTH,
		MemorySize: ADDRESS_SPACE,
		OutputPort: DEFAULT_OUTPUT_PORT,
	}
}

// Validate checks the configuration.
func (cfg Config) Validate() (err error) {
	switch {
	case cfg.Isa == nil:
		err = ErrTableMissing
	case cfg.Width < 1 || cfg.Width > MAX_WIDTH:
		err = ErrWidthInvalid
	case cfg.MemorySize < INSTRUCTION_SIZE || cfg.MemorySize > ADDRESS_SPACE:
		err = ErrMemoryInvalid
	}
	return
}

// Cpu is the machine state: registers and memory, owned by the core once
// the loader has handed it over.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.
	Config

	Pc          uint16 // Address of the next instruction.
	Accumulator uint64 // Accumulator, truncated to Width bits.
	Memory      []byte // Memory, MemorySize bytes.
	Halted      bool   // Set once the core stops.
	Ticks       int    // Cycles executed since reset.

	Tracer Tracer // Optional cycle observer.
}

// NewCpu creates a processor with zeroed memory.
func NewCpu(cfg Config) (cpu *Cpu, err error) {
	err = cfg.Validate()
	if err != nil {
		return
	}

	cpu = &Cpu{
		Config: cfg,
		Memory: make([]byte, cfg.MemorySize),
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	defines := maps.Clone(_cpu_defines)
	defines["MEMORY_SIZE"] = fmt.Sprintf("%d", cpu.MemorySize)
	defines["OUTPUT_PORT"] = fmt.Sprintf("%d", cpu.OutputPort)
	return maps.All(defines)
}

// Reset clears memory and registers, and sets the core running.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory)
	cpu.Pc = 0
	cpu.Accumulator = 0
	cpu.Halted = false
	cpu.Ticks = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() string {
	out, _ := cpu.ReadWord(cpu.OutputPort)
	return f("PC: %04X | ACC: %0*X (%v) | OUT[%04X]: %0*X | halted: %v",
		cpu.Pc, cpu.hexDigits(), cpu.Accumulator, strconv.FormatUint(cpu.Accumulator, 10),
		cpu.OutputPort, cpu.hexDigits(), out, cpu.Halted)
}

func (cpu *Cpu) hexDigits() int {
	return (cpu.Width + 3) / 4
}

// WordSize returns the size in bytes of a memory word.
func (cpu *Cpu) WordSize() int {
	return (cpu.Width + 7) / 8
}

// Mask returns the accumulator mask.
func (cpu *Cpu) Mask() uint64 {
	if cpu.Width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << cpu.Width) - 1
}

// wrap truncates a value to the register width.
func (cpu *Cpu) wrap(value uint64) uint64 {
	return value & cpu.Mask()
}

// ReadWord reads a big-endian memory word, truncated to the register width.
func (cpu *Cpu) ReadWord(addr uint16) (value uint64, err error) {
	size := cpu.WordSize()
	if int(addr)+size > len(cpu.Memory) {
		err = ErrAddressInvalid
		return
	}

	for _, b := range cpu.Memory[int(addr) : int(addr)+size] {
		value = (value << 8) | uint64(b)
	}
	value = cpu.wrap(value)

	return
}

// WriteWord writes a big-endian memory word.
func (cpu *Cpu) WriteWord(addr uint16, value uint64) (err error) {
	size := cpu.WordSize()
	if int(addr)+size > len(cpu.Memory) {
		err = ErrAddressInvalid
		return
	}

	for n := size - 1; n >= 0; n-- {
		cpu.Memory[int(addr)+n] = byte(value)
		value >>= 8
	}

	return
}

// Load copies data into memory at an address.
func (cpu *Cpu) Load(addr uint16, data []byte) (err error) {
	if int(addr)+len(data) > len(cpu.Memory) {
		err = ErrAddressInvalid
		return
	}

	copy(cpu.Memory[addr:], data)
	return
}

// Poke writes an instruction at an address.
func (cpu *Cpu) Poke(addr uint16, code Code) (err error) {
	bytes := code.Bytes()
	return cpu.Load(addr, bytes[:])
}

// Peek decodes the instruction at an address.
func (cpu *Cpu) Peek(addr uint16) (code Code, err error) {
	if int(addr)+INSTRUCTION_SIZE > len(cpu.Memory) {
		err = ErrAddressInvalid
		return
	}
	return DecodeCode(cpu.Memory[addr:])
}

// advance returns an address moved forward, wrapping at the end of the
// address space.
func (cpu *Cpu) advance(addr uint16, n int) uint16 {
	return uint16((int(addr) + n) % len(cpu.Memory))
}

// FetchCode fetches the instruction at the program counter. Fetch wraps
// around the end of memory.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	var raw [INSTRUCTION_SIZE]byte
	for n := range raw {
		raw[n] = cpu.Memory[cpu.advance(cpu.Pc, n)]
	}

	return DecodeCode(raw[:])
}

func (cpu *Cpu) snapshot(code Code) Snapshot {
	out, _ := cpu.ReadWord(cpu.OutputPort)
	return Snapshot{
		Cycle:       cpu.Ticks,
		Pc:          cpu.Pc,
		Code:        code,
		Accumulator: cpu.Accumulator,
		Output:      out,
		Halted:      cpu.Halted,
	}
}

// Tick executes a single fetch-decode-execute cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	if cpu.Tracer != nil {
		cpu.Tracer.Trace(TRACE_FETCH, cpu.snapshot(code))
	}

	pc := cpu.Pc
	err = cpu.Execute(code)

	if cpu.Tracer != nil {
		snap := cpu.snapshot(code)
		snap.Pc = pc
		cpu.Tracer.Trace(TRACE_EXECUTE, snap)
	}

	cpu.Ticks += 1

	return
}

// Execute executes a single decoded instruction at the program counter.
//
// Any error halts the core; the accumulator is left as it was before the
// failing instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			cpu.Halted = true
			err = &ErrOpcode{Pc: cpu.Pc, Code: code, Err: err}
		}
	}()

	if cpu.Verbose {
		log.Printf("%04X: %v", cpu.Pc, code.Format(cpu.Isa))
	}

	if _, ok := cpu.Isa.ByOpcode(code.Opcode); !ok {
		err = ErrOpcodeUnknown
		return
	}

	next_pc := cpu.advance(cpu.Pc, INSTRUCTION_SIZE)
	addr := code.Operand
	acc := cpu.Accumulator

	// operand reads the memory word at the operand address.
	operand := func() (value uint64) {
		value, err = cpu.ReadWord(addr)
		return
	}

	switch code.Opcode {
	case OP_HLT:
		cpu.Halted = true
		if cpu.Verbose {
			log.Print(f("HLT executed. Simulation stopped."))
		}
		return
	case OP_JMP:
		cpu.Pc = addr
		return
	case OP_LDA:
		acc = operand()
	case OP_STA:
		err = cpu.WriteWord(addr, acc)
	case OP_LDI:
		acc = cpu.wrap(uint64(addr))
	case OP_ADD:
		acc = cpu.wrap(acc + operand())
	case OP_SUB:
		acc = cpu.wrap(acc - operand())
	case OP_MUL:
		acc = cpu.wrap(acc * operand())
	case OP_DIV:
		divisor := operand()
		if err == nil && divisor == 0 {
			err = ErrDivideByZero
		}
		if err == nil {
			acc = acc / divisor
		}
	case OP_NOT:
		acc = cpu.wrap(^acc)
	case OP_XOR:
		acc = cpu.wrap(acc ^ operand())
	case OP_AND:
		acc = cpu.wrap(acc & operand())
	case OP_OUT:
		err = cpu.WriteWord(cpu.OutputPort, acc)
	default:
		err = ErrOpcodeUnknown
	}

	if err != nil {
		return
	}

	cpu.Accumulator = acc
	cpu.Pc = next_pc

	if cpu.Verbose {
		log.Print(f("%v executed. ACC = %0*X.", code.Format(cpu.Isa), cpu.hexDigits(), cpu.Accumulator))
	}

	return
}

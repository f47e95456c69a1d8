package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCpu(t *testing.T, cfg Config) *Cpu {
	cpu, err := NewCpu(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return cpu
}

// program pokes codes at an address, and points the program counter at
// the first.
func program(cpu *Cpu, addr uint16, codes ...Code) {
	cpu.Pc = addr
	for _, code := range codes {
		cpu.Poke(addr, code)
		addr += INSTRUCTION_SIZE
	}
}

func TestCpuConfig(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		cfg Config
		err error
	}{
		{DefaultConfig(), nil},
		{Config{Isa: nil, Width: 16, MemorySize: 0x100}, ErrTableMissing},
		{Config{Isa: SCSA16, Width: 0, MemorySize: 0x100}, ErrWidthInvalid},
		{Config{Isa: SCSA16, Width: 65, MemorySize: 0x100}, ErrWidthInvalid},
		{Config{Isa: SCSA16, Width: 8, MemorySize: 2}, ErrMemoryInvalid},
		{Config{Isa: SCSA16, Width: 8, MemorySize: 0x10001}, ErrMemoryInvalid},
		{Config{Isa: SCSA1, Width: 1, MemorySize: 32}, nil},
	}

	for n, entry := range table {
		cpu, err := NewCpu(entry.cfg)
		assert.Equal(entry.err, err, "%d", n)
		if err == nil {
			assert.Equal(entry.cfg.MemorySize, len(cpu.Memory), "%d", n)
		}
	}

	cpu := newCpu(t, DefaultConfig())
	defines := map[string]string{}
	for key, value := range cpu.Defines() {
		defines[key] = value
	}
	assert.Equal("65534", defines["OUTPUT_PORT"])
	assert.Equal("65536", defines["MEMORY_SIZE"])
	assert.Equal("3", defines["INSTRUCTION_SIZE"])
}

func TestCpuWords(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	assert.Equal(2, cpu.WordSize())
	assert.Equal(uint64(0xFFFF), cpu.Mask())

	assert.NoError(cpu.WriteWord(0xE000, 1000))
	assert.Equal([]byte{0x03, 0xE8}, cpu.Memory[0xE000:0xE002])
	value, err := cpu.ReadWord(0xE000)
	assert.NoError(err)
	assert.Equal(uint64(1000), value)

	assert.ErrorIs(cpu.WriteWord(0xFFFF, 1), ErrAddressInvalid)
	_, err = cpu.ReadWord(0xFFFF)
	assert.ErrorIs(err, ErrAddressInvalid)

	wide := newCpu(t, Config{Isa: SCSA16, Width: 24, MemorySize: 0x100})
	assert.Equal(3, wide.WordSize())
	assert.NoError(wide.WriteWord(0x10, 0x123456))
	assert.Equal([]byte{0x12, 0x34, 0x56}, wide.Memory[0x10:0x13])

	bit := newCpu(t, Config{Isa: SCSA1, Width: 1, MemorySize: 32})
	assert.Equal(1, bit.WordSize())
	bit.Memory[4] = 0xFF
	value, err = bit.ReadWord(4)
	assert.NoError(err)
	assert.Equal(uint64(1), value)
}

func TestCpuMultiply(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	cpu.WriteWord(0xE000, 1000)
	cpu.WriteWord(0xE002, 10)

	program(cpu, 0x0100,
		MakeCode(OP_LDA, REG_R0, 0xE000),
		MakeCode(OP_MUL, REG_R0, 0xE002),
		MakeCode(OP_STA, REG_R0, 0xFFFE),
		MakeCodeHalt(),
	)

	for !cpu.Halted {
		pc := cpu.Pc
		assert.NoError(cpu.Tick())
		if !cpu.Halted {
			assert.Equal(pc+INSTRUCTION_SIZE, cpu.Pc)
		}
	}

	assert.Equal(4, cpu.Ticks)
	assert.Equal(uint16(0x0109), cpu.Pc)
	out, err := cpu.ReadWord(0xFFFE)
	assert.NoError(err)
	assert.Equal(uint64(10000), out)

	assert.ErrorIs(cpu.Tick(), ErrHalted)
	assert.Equal(4, cpu.Ticks)
}

func TestCpuArithmetic(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		acc      uint64
		op       CodeOp
		operand  uint64
		expected uint64
	}{
		{0xFFFF, OP_ADD, 1, 0},
		{0x0000, OP_SUB, 1, 0xFFFF},
		{0x0100, OP_MUL, 0x0100, 0},
		{0x0300, OP_MUL, 0x0101, 0x0300},
		{100, OP_DIV, 7, 14},
		{5, OP_SUB, 3, 2},
		{0, OP_LDA, 0xBEEF, 0xBEEF},
	}

	for n, entry := range table {
		cpu := newCpu(t, DefaultConfig())
		cpu.Accumulator = entry.acc
		cpu.WriteWord(0x2000, entry.operand)
		program(cpu, 0x0100, MakeCode(entry.op, REG_R0, 0x2000))

		assert.NoError(cpu.Tick(), "%d", n)
		assert.Equal(entry.expected, cpu.Accumulator, "%d", n)
		assert.Equal(uint16(0x0103), cpu.Pc, "%d", n)
		assert.False(cpu.Halted, "%d", n)
	}
}

func TestCpuLoadImmediate(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, Config{Isa: SCSA16, Width: 8, MemorySize: 0x100})
	program(cpu, 0x00, MakeCode(OP_LDI, REG_R0, 0x1234))

	assert.NoError(cpu.Tick())
	assert.Equal(uint64(0x34), cpu.Accumulator)
}

func TestCpuDivideByZero(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	program(cpu, 0x0100,
		MakeCode(OP_LDI, REG_R0, 42),
		MakeCode(OP_DIV, REG_R0, 0x2000),
		MakeCode(OP_LDI, REG_R0, 7),
	)

	assert.NoError(cpu.Tick())
	err := cpu.Tick()
	assert.ErrorIs(err, ErrDivideByZero)

	var eo *ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(uint16(0x0103), eo.Pc)
	assert.Equal(OP_DIV, eo.Code.Opcode)

	assert.True(cpu.Halted)
	assert.Equal(uint64(42), cpu.Accumulator)
	assert.Equal(uint16(0x0103), cpu.Pc)
	assert.ErrorIs(cpu.Tick(), ErrHalted)
}

func TestCpuUnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	program(cpu, 0x0100, MakeCode(CodeOp(0x1), REG_R0, 0), MakeCodeHalt())
	cpu.Accumulator = 9

	assert.ErrorIs(cpu.Tick(), ErrOpcodeUnknown)
	assert.True(cpu.Halted)
	assert.Equal(uint64(9), cpu.Accumulator)

	// NOT exists only in the calculator set.
	cpu = newCpu(t, DefaultConfig())
	program(cpu, 0x0100, MakeCode(OP_NOT, REG_R0, 0))
	assert.ErrorIs(cpu.Tick(), ErrOpcodeUnknown)
}

func TestCpuAddressInvalid(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	program(cpu, 0x0100, MakeCode(OP_STA, REG_R0, 0xFFFF))

	assert.ErrorIs(cpu.Tick(), ErrAddressInvalid)
	assert.True(cpu.Halted)
}

func TestCpuJump(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	program(cpu, 0xF000, MakeCodeJump(0x0100))
	cpu.Poke(0x0100, MakeCodeHalt())

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x0100), cpu.Pc)
	assert.NoError(cpu.Tick())
	assert.True(cpu.Halted)
	assert.Equal(uint16(0x0100), cpu.Pc)
}

func TestCpuWrap(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())

	// The instruction straddles the end of memory.
	cpu.Memory[0xFFFF] = byte(OP_LDI) << 4
	cpu.Memory[0x0000] = 0x12
	cpu.Memory[0x0001] = 0x34
	cpu.Pc = 0xFFFF

	assert.NoError(cpu.Tick())
	assert.Equal(uint64(0x1234), cpu.Accumulator)
	assert.Equal(uint16(0x0002), cpu.Pc)

	small := newCpu(t, Config{Isa: SCSA16, Width: 8, MemorySize: 0x10})
	small.Memory[0x0F] = byte(OP_LDI) << 4
	small.Pc = 0x0F
	assert.NoError(small.Tick())
	assert.Equal(uint16(0x02), small.Pc)
}

func TestCpuWrapOpcodes(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		op   CodeOp
		pc   uint16
		next uint16
	}{
		{OP_LDA, 0xFFFE, 0x0001},
		{OP_STA, 0xFFFE, 0x0001},
		{OP_LDI, 0xFFFE, 0x0001},
		{OP_ADD, 0xFFFE, 0x0001},
		{OP_SUB, 0xFFFE, 0x0001},
		{OP_MUL, 0xFFFE, 0x0001},
		{OP_DIV, 0xFFFE, 0x0001},
		{OP_LDA, 0xFFFF, 0x0002},
		{OP_STA, 0xFFFF, 0x0002},
		{OP_LDI, 0xFFFF, 0x0002},
		{OP_ADD, 0xFFFF, 0x0002},
		{OP_SUB, 0xFFFF, 0x0002},
		{OP_MUL, 0xFFFF, 0x0002},
		{OP_DIV, 0xFFFF, 0x0002},
	}

	for _, entry := range table {
		cpu := newCpu(t, DefaultConfig())
		cpu.Accumulator = 6
		cpu.WriteWord(0x2000, 3)

		// Encode by hand, the instruction straddles the end of memory.
		code := MakeCode(entry.op, REG_R0, 0x2000).Bytes()
		for n, b := range code {
			cpu.Memory[(int(entry.pc)+n)%ADDRESS_SPACE] = b
		}
		cpu.Pc = entry.pc

		assert.NoError(cpu.Tick(), "%v at 0x%04X", SCSA16.String(entry.op), entry.pc)
		assert.False(cpu.Halted)
		assert.Equal(entry.next, cpu.Pc, "%v at 0x%04X", SCSA16.String(entry.op), entry.pc)
	}
}

func TestCpuCalculator(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, Config{Isa: SCSA1, Width: 1, MemorySize: 32, OutputPort: 0x1F})
	cpu.Memory[0x18] = 1
	cpu.Memory[0x1F] = 1
	program(cpu, 0,
		MakeCode(OP_LDI, REG_R0, 1),
		MakeCode(OP_XOR, REG_R0, 0x18),
		MakeCode(OP_NOT, REG_R0, 0),
		MakeCode(OP_AND, REG_R0, 0x18),
		MakeCode(OP_ADD, REG_R0, 0x18),
		MakeCode(OP_OUT, REG_R0, 0),
		MakeCodeHalt(),
	)

	expected := []uint64{1, 0, 1, 1, 0, 0, 0}
	for n, acc := range expected {
		assert.NoError(cpu.Tick(), "%d", n)
		assert.Equal(acc, cpu.Accumulator, "%d", n)
	}
	assert.True(cpu.Halted)
	assert.Equal(byte(0), cpu.Memory[0x1F])
}

func TestCpuTracer(t *testing.T) {
	assert := assert.New(t)

	var events []TraceEvent
	var snaps []Snapshot

	cpu := newCpu(t, DefaultConfig())
	cpu.Tracer = TracerFunc(func(event TraceEvent, snap Snapshot) {
		events = append(events, event)
		snaps = append(snaps, snap)
	})
	program(cpu, 0x0100, MakeCode(OP_LDI, REG_R0, 5), MakeCodeHalt())

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())

	assert.Equal([]TraceEvent{TRACE_FETCH, TRACE_EXECUTE, TRACE_FETCH, TRACE_EXECUTE}, events)
	assert.Equal(Snapshot{Cycle: 0, Pc: 0x0100, Code: MakeCode(OP_LDI, REG_R0, 5)}, snaps[0])
	assert.Equal(Snapshot{Cycle: 0, Pc: 0x0100, Code: MakeCode(OP_LDI, REG_R0, 5), Accumulator: 5}, snaps[1])
	assert.Equal(uint16(0x0103), snaps[2].Pc)
	assert.True(snaps[3].Halted)

	assert.Equal("fetch", TRACE_FETCH.String())
	assert.Equal("execute", TRACE_EXECUTE.String())
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	program(cpu, 0x0100, MakeCodeHalt())
	assert.NoError(cpu.Tick())
	cpu.Accumulator = 3

	cpu.Reset()
	assert.False(cpu.Halted)
	assert.Equal(uint16(0), cpu.Pc)
	assert.Equal(uint64(0), cpu.Accumulator)
	assert.Equal(0, cpu.Ticks)
	assert.Equal(make([]byte, ADDRESS_SPACE), cpu.Memory)
}

func TestCpuArenas(t *testing.T) {
	assert := assert.New(t)

	cpu := newCpu(t, DefaultConfig())
	arenas := append(cpu.Arenas(), Arena{Name: "boot", Start: 0x0100, Size: 0x20})
	SortArenas(arenas)

	assert.Equal([]Arena{
		{Name: "memory", Start: 0, Size: 0x10000},
		{Name: "boot", Start: 0x0100, Size: 0x20},
		{Name: "output port", Start: 0xFFFE, Size: 2},
	}, arenas)

	assert.Equal(0xFFFF, arenas[2].End())
	assert.True(arenas[1].Contains(0x011F))
	assert.False(arenas[1].Contains(0x0120))
	assert.Equal("0x0100-0x011F boot", arenas[1].String())
}

package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzCpu(f *testing.F) {
	for op := range 0x10 {
		f.Add(uint8(op<<4), uint16(0x0000), uint16(0), uint16(0))
		f.Add(uint8(op<<4), uint16(0xFFFE), uint16(0xFFFF), uint16(7))
		f.Add(uint8(op<<4), uint16(0x2000), uint16(1000), uint16(0))
	}

	f.Fuzz(func(t *testing.T, opcode uint8, operand uint16, acc uint16, word uint16) {
		assert := assert.New(t)

		cpu, err := NewCpu(DefaultConfig())
		if err != nil {
			t.Fatal(err)
		}

		code := Code{
			Opcode:   CodeOp(opcode>>4) & OP_MASK,
			Register: CodeRegister(opcode & 0xf),
			Operand:  operand,
		}

		cpu.Accumulator = uint64(acc)
		if int(operand)+WORD_SIZE <= ADDRESS_SPACE {
			cpu.WriteWord(operand, uint64(word))
		}
		cpu.Pc = 0x0100
		cpu.Poke(cpu.Pc, code)

		err = cpu.Tick()

		assert.LessOrEqual(cpu.Accumulator, cpu.Mask())
		assert.Equal(1, cpu.Ticks)

		switch {
		case err != nil:
			assert.True(cpu.Halted)
			assert.Equal(uint16(0x0100), cpu.Pc)
			assert.Equal(uint64(acc), cpu.Accumulator)
			var eo *ErrOpcode
			assert.True(errors.As(err, &eo))
		case code.Opcode == OP_HLT:
			assert.True(cpu.Halted)
			assert.Equal(uint16(0x0100), cpu.Pc)
		case code.Opcode == OP_JMP:
			assert.False(cpu.Halted)
			assert.Equal(operand, cpu.Pc)
		default:
			assert.False(cpu.Halted)
			assert.Equal(uint16(0x0100+INSTRUCTION_SIZE), cpu.Pc)
		}
	})
}

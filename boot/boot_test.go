package boot

import (
	"bytes"
	"errors"
	"io/fs"
	"log"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/scsa/cpu"
)

func newMachine(t *testing.T) *cpu.Cpu {
	machine, err := cpu.NewCpu(cpu.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return machine
}

func image(codes ...cpu.Code) []byte {
	var data []byte
	for _, code := range codes {
		raw := code.Bytes()
		data = append(data, raw[:]...)
	}
	return data
}

func TestBootAccepted(t *testing.T) {
	assert := assert.New(t)

	data := image(
		cpu.MakeCode(cpu.OP_LDA, cpu.REG_R0, 0xE000),
		cpu.MakeCodeHalt(),
	)
	fsys := fstest.MapFS{IMAGE_NAME: &fstest.MapFile{Data: data}}

	machine := newMachine(t)
	ld := &Loader{Descriptor: DefaultDescriptor()}

	outcome, err := ld.Boot(fsys, IMAGE_NAME, machine)
	assert.NoError(err)
	assert.Equal(Booted, outcome)
	assert.Equal("booted", outcome.String())

	assert.Equal(data, machine.Memory[ORIGIN:ORIGIN+len(data)])
	assert.Equal(uint16(FIRMWARE_ADDRESS), machine.Pc)

	code, err := machine.Peek(FIRMWARE_ADDRESS)
	assert.NoError(err)
	assert.Equal(cpu.MakeCodeJump(ORIGIN), code)

	// Firmware jumps to the image, which runs to its halt.
	for !machine.Halted {
		assert.NoError(machine.Tick())
	}
	assert.Equal(uint16(ORIGIN+cpu.INSTRUCTION_SIZE), machine.Pc)
}

func TestBootLog(t *testing.T) {
	assert := assert.New(t)

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	data := make([]byte, 0x1000)
	copy(data, image(cpu.MakeCode(cpu.OP_LDA, cpu.REG_R0, 0xE000)))
	fsys := fstest.MapFS{IMAGE_NAME: &fstest.MapFile{Data: data}}

	ld := &Loader{Descriptor: DefaultDescriptor()}
	outcome, err := ld.Boot(fsys, IMAGE_NAME, newMachine(t))
	assert.NoError(err)
	assert.Equal(Booted, outcome)
	assert.Contains(logged.String(), "[BOOT] bootloader.bin: 4096 bytes at 0x0100, firmware 0xF000 -> JMP 0x0100")
}

func TestBootRejected(t *testing.T) {
	assert := assert.New(t)

	good := image(cpu.MakeCode(cpu.OP_LDA, cpu.REG_R0, 0xE000))

	table := []struct {
		name string
		data []byte
		desc Descriptor
		err  error
	}{
		{"empty", []byte{}, DefaultDescriptor(), ErrImageEmpty},
		{"opcode", image(cpu.MakeCode(cpu.OP_LDI, cpu.REG_R0, 0xE000)), DefaultDescriptor(), ErrSignature},
		{"page", image(cpu.MakeCode(cpu.OP_LDA, cpu.REG_R0, 0x1000)), DefaultDescriptor(), ErrSignature},
		{"short", []byte{0x20, 0xE0}, Descriptor{MaxImageSize: 0x10, Origin: 0xFFFE, Firmware: FIRMWARE_ADDRESS, SignatureOpcode: cpu.OP_LDA, SignatureByte: SIGNATURE_BYTE}, ErrSignature},
		{"oversize", make([]byte, MAX_IMAGE_SIZE+1), DefaultDescriptor(), ErrImageOversize},
		{"limit", good, Descriptor{MaxImageSize: 2, Origin: ORIGIN, Firmware: FIRMWARE_ADDRESS, SignatureOpcode: cpu.OP_LDA, SignatureByte: SIGNATURE_BYTE}, ErrImageOversize},
		{"memory", good, Descriptor{MaxImageSize: 0x100, Origin: 0xFFFF, Firmware: FIRMWARE_ADDRESS, SignatureOpcode: cpu.OP_LDA, SignatureByte: SIGNATURE_BYTE}, ErrImageOversize},
	}

	for _, entry := range table {
		fsys := fstest.MapFS{IMAGE_NAME: &fstest.MapFile{Data: entry.data}}

		machine := newMachine(t)
		// Stale firmware entry, to check that rejection overwrites it.
		machine.Poke(entry.desc.Firmware, cpu.MakeCodeJump(0x1234))

		ld := &Loader{Descriptor: entry.desc}
		outcome, err := ld.Boot(fsys, IMAGE_NAME, machine)
		assert.Equal(Rejected, outcome, entry.name)
		assert.ErrorIs(err, entry.err, entry.name)

		var ei *ErrIntegrity
		assert.True(errors.As(err, &ei), entry.name)

		assert.Equal(entry.desc.Firmware, machine.Pc, entry.name)
		code, err := machine.Peek(entry.desc.Firmware)
		assert.NoError(err, entry.name)
		assert.Equal(cpu.MakeCodeHalt(), code, entry.name)

		assert.NoError(machine.Tick(), entry.name)
		assert.True(machine.Halted, entry.name)
	}
}

func TestBootMissing(t *testing.T) {
	assert := assert.New(t)

	machine := newMachine(t)
	ld := &Loader{Descriptor: DefaultDescriptor()}

	outcome, err := ld.Boot(fstest.MapFS{}, IMAGE_NAME, machine)
	assert.Equal(Rejected, outcome)
	assert.ErrorIs(err, fs.ErrNotExist)

	var eo *ErrImageOpen
	assert.True(errors.As(err, &eo))
	assert.Equal(IMAGE_NAME, eo.Name)

	code, err := machine.Peek(FIRMWARE_ADDRESS)
	assert.NoError(err)
	assert.Equal(cpu.OP_HLT, code.Opcode)
}

func TestDescriptor(t *testing.T) {
	assert := assert.New(t)

	desc := DefaultDescriptor()
	assert.Equal(0xFF00, desc.MaxImageSize)
	assert.Equal(cpu.OP_LDA, desc.SignatureOpcode)

	defines := map[string]string{}
	for key, value := range desc.Defines() {
		defines[key] = value
	}
	assert.Equal(map[string]string{
		"BOOT_ORIGIN":    "256",
		"FIRMWARE_BOOT":  "61440",
		"MAX_IMAGE_SIZE": "65280",
	}, defines)

	arenas := desc.Arenas()
	assert.Equal(2, len(arenas))
	assert.True(arenas[1].Contains(FIRMWARE_ADDRESS + 2))

	assert.Equal("rejected", Rejected.String())
}

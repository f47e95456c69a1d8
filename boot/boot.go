// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package boot implements the SCSA secure boot loader.
//
// The loader validates a flat binary image, installs it into machine
// memory at the bootloader origin, and writes the firmware entry at the
// fixed firmware boot address: a jump to the origin when the image is
// accepted, or a halt when it is rejected.
package boot

import (
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"maps"
	"strconv"

	"github.com/ezrec/scsa/cpu"
)

const (
	IMAGE_NAME       = "bootloader.bin" // Fixed image file name.
	ORIGIN           = 0x0100           // Default bootloader origin.
	FIRMWARE_ADDRESS = 0xF000           // Default firmware boot address.
	SIGNATURE_BYTE   = 0xE0             // Default signature byte: data page of the first load.
	MAX_IMAGE_SIZE   = cpu.ADDRESS_SPACE - ORIGIN
)

// Outcome is the result of a boot attempt.
type Outcome int

const (
	Rejected = Outcome(0) // Image refused, firmware entry is a halt.
	Booted   = Outcome(1) // Image installed, firmware entry jumps to it.
)

func (oc Outcome) String() string {
	switch oc {
	case Booted:
		return f("booted")
	case Rejected:
		return f("rejected")
	}
	return f("outcome(%d)", int(oc))
}

// Descriptor is the immutable secure boot configuration.
type Descriptor struct {
	MaxImageSize    int        // Largest accepted image, in bytes.
	Origin          uint16     // Address the image is installed at.
	Firmware        uint16     // Fixed firmware boot address.
	SignatureOpcode cpu.CodeOp // Opcode the first instruction must carry.
	SignatureByte   byte       // Byte that must follow the opcode byte.
}

// DefaultDescriptor is the SCSA-16 fixed boot configuration.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		MaxImageSize:    MAX_IMAGE_SIZE,
		Origin:          ORIGIN,
		Firmware:        FIRMWARE_ADDRESS,
		SignatureOpcode: cpu.OP_LDA,
		SignatureByte:   SIGNATURE_BYTE,
	}
}

// Defines returns the boot addresses as assembler constants.
func (desc Descriptor) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"BOOT_ORIGIN":    fmt.Sprintf("%d", desc.Origin),
		"FIRMWARE_BOOT":  fmt.Sprintf("%d", desc.Firmware),
		"MAX_IMAGE_SIZE": fmt.Sprintf("%d", desc.MaxImageSize),
	})
}

// Arenas returns the address ranges reserved by the boot descriptor.
func (desc Descriptor) Arenas() []cpu.Arena {
	return []cpu.Arena{
		{Name: "bootloader", Start: desc.Origin, Size: desc.MaxImageSize},
		{Name: "firmware boot", Start: desc.Firmware, Size: cpu.INSTRUCTION_SIZE},
	}
}

// Loader boots images into a machine.
type Loader struct {
	Verbose    bool
	Descriptor Descriptor
}

// Boot validates and installs an image, or rejects it.
//
// On Booted the firmware address holds a jump to the origin. On Rejected
// it holds a halt, and the returned error is the reason; the caller must
// enter the fallback shell and must not run the processor. Either way the
// program counter is left at the firmware address.
func (ld *Loader) Boot(fsys fs.FS, name string, machine *cpu.Cpu) (outcome Outcome, err error) {
	desc := ld.Descriptor

	defer func() {
		if err == nil {
			return
		}
		outcome = Rejected
		// Every rejection path leaves a halt at the firmware entry.
		if perr := machine.Poke(desc.Firmware, cpu.MakeCodeHalt()); perr != nil {
			log.Print(f("boot: firmware address 0x%04X: %v", desc.Firmware, perr))
		}
		machine.Pc = desc.Firmware
		log.Print(f("[BOOT] %v", err))
	}()

	if ld.Verbose {
		log.Print(f("[BOOT] loading %v at 0x%04X", name, desc.Origin))
	}

	file, err := fsys.Open(name)
	if err != nil {
		err = &ErrImageOpen{Name: name, Err: err}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		err = &ErrImageOpen{Name: name, Err: err}
		return
	}

	size := info.Size()
	switch {
	case size == 0:
		err = &ErrIntegrity{Name: name, Err: ErrImageEmpty}
		return
	case size > int64(desc.MaxImageSize) || int64(desc.Origin)+size > int64(len(machine.Memory)):
		err = &ErrIntegrity{Name: name, Err: ErrImageOversize}
		return
	}

	img, err := cpu.ReadImage(io.LimitReader(file, size), desc.Origin)
	if err != nil {
		err = &ErrImageOpen{Name: name, Err: err}
		return
	}
	if int64(img.Len()) != size {
		err = &ErrImageOpen{Name: name, Err: ErrImageIncomplete}
		return
	}

	err = machine.Load(img.Origin, img.Data)
	if err != nil {
		err = &ErrIntegrity{Name: name, Err: ErrImageOversize}
		return
	}

	err = ld.verify(machine)
	if err != nil {
		err = &ErrIntegrity{Name: name, Err: err}
		return
	}

	err = machine.Poke(desc.Firmware, cpu.MakeCodeJump(desc.Origin))
	if err != nil {
		return
	}
	machine.Pc = desc.Firmware
	outcome = Booted

	log.Print(f("[BOOT] %v: %v bytes at 0x%04X, firmware 0x%04X -> JMP 0x%04X",
		name, strconv.FormatInt(size, 10), desc.Origin, desc.Firmware, desc.Origin))

	return
}

// verify checks the signature of the first instruction at the origin.
func (ld *Loader) verify(machine *cpu.Cpu) (err error) {
	desc := ld.Descriptor

	code, err := machine.Peek(desc.Origin)
	if err != nil {
		err = ErrSignature
		return
	}

	if code.Opcode != desc.SignatureOpcode || byte(code.Operand>>8) != desc.SignatureByte {
		err = ErrSignature
		return
	}

	return
}

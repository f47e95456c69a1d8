// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs an SCSA machine: secure boot, then the bounded
// fetch-execute loop, or the PSI/O shell when boot is rejected.
package emulator

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"maps"

	"github.com/ezrec/scsa/boot"
	"github.com/ezrec/scsa/cpu"
	"github.com/ezrec/scsa/internal"
)

const (
	DEFAULT_MAX_CYCLES = 1000 // Default bounded-cycle safety net.
)

// Shell is the fallback entered on boot rejection. It never returns into
// the loader.
type Shell interface {
	EnterShell(reason error) error
}

// Emulator state. CPU + boot configuration + fallback shell.
type Emulator struct {
	Verbose   bool         // If set, enables verbose logging.
	*cpu.Cpu               // Reference to the machine state.
	Program   *cpu.Program // Optional listing, for runtime error line numbers.
	Loader    boot.Loader  // Secure boot loader.
	MaxCycles int          // Cycle bound of Run.
	Shell     Shell        // Fallback shell, may be nil.

	outcome boot.Outcome
}

// NewEmulator creates a new emulator.
func NewEmulator(cc cpu.Config, desc boot.Descriptor) (emu *Emulator, err error) {
	machine, err := cpu.NewCpu(cc)
	if err != nil {
		return
	}

	emu = &Emulator{
		Cpu:       machine,
		Loader:    boot.Loader{Descriptor: desc},
		MaxCycles: DEFAULT_MAX_CYCLES,
	}

	return
}

// Defines returns an iterator over all of the assembler constants of the
// machine.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		maps.All(map[string]string{
			"MAX_CYCLES": fmt.Sprintf("%d", emu.MaxCycles),
		}),
		emu.Cpu.Defines(),
		emu.Loader.Descriptor.Defines(),
	)
}

// Start resets the machine and boots an image from fsys. On rejection the
// shell is entered, and the machine must not be run.
func (emu *Emulator) Start(fsys fs.FS, name string) (outcome boot.Outcome, err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Loader.Verbose = emu.Verbose

	emu.Cpu.Reset()

	outcome, err = emu.Loader.Boot(fsys, name, emu.Cpu)
	emu.outcome = outcome
	if outcome == boot.Booted {
		return
	}

	if emu.Shell != nil {
		if serr := emu.Shell.EnterShell(err); serr != nil {
			err = errors.Join(err, serr)
		}
	}

	return
}

// Outcome returns the result of the last Start.
func (emu *Emulator) Outcome() boot.Outcome {
	return emu.outcome
}

// LineNo returns the source line number of the current instruction, or 0.
func (emu *Emulator) LineNo() int {
	return emu.Program.LineNo(emu.Cpu.Pc)
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.outcome != boot.Booted {
		err = ErrNotBooted
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()

	err = emu.Cpu.Tick()
	done = emu.Cpu.Halted
	if err != nil {
		err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
	}

	return
}

// Run ticks until the core halts, fails, or reaches MaxCycles.
func (emu *Emulator) Run() (err error) {
	for cycle := 0; cycle < emu.MaxCycles; cycle++ {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}

	err = ErrCycleLimit(emu.MaxCycles)
	return
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command scsa boots the image in the working directory and runs it, or
// drops into the PSI/O shell when the image is rejected.
package main

import (
	"errors"
	"flag"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ezrec/scsa/boot"
	"github.com/ezrec/scsa/config"
	"github.com/ezrec/scsa/cpu"
	"github.com/ezrec/scsa/emulator"
	"github.com/ezrec/scsa/psio"
	"github.com/ezrec/scsa/translate"
)

// banner returns the execution banner of a phase for an instruction set.
func banner(isa *cpu.Table, phase string) string {
	return translate.From("--- %v VM Execution %v ---", strings.ToUpper(isa.Name), phase)
}

// result returns the final output cell report.
func result(port uint16, out uint64) string {
	return translate.From("Final Result (RAM[%04X]): %v (0x%04X)", port, strconv.FormatUint(out, 10), out)
}

// run boots the image from fsys and runs it. Failures are reported, and
// routed to the shell.
func run(cfg config.Config, fsys fs.FS, in io.Reader, out io.Writer, trace bool, verbose bool) {
	cc, err := cfg.Cpu()
	if err != nil {
		log.Printf("%v", err)
		return
	}

	emu, err := emulator.NewEmulator(cc, cfg.Descriptor())
	if err != nil {
		log.Printf("%v", err)
		return
	}
	emu.Verbose = verbose
	emu.MaxCycles = cfg.Machine.MaxCycles

	tracer := log.New(out, "", 0)
	if trace {
		emu.Cpu.Tracer = emulator.NewLogTracer(tracer, emu.Cpu)
	}

	desc := cfg.Descriptor()
	emu.Shell = &psio.Shell{
		In:          in,
		Out:         out,
		Cpu:         emu.Cpu,
		Firmware:    desc.Firmware,
		Arenas:      desc.Arenas(),
		Security:    cfg.Profile(),
		SecurityTag: cfg.Security.Tag,
	}

	// The loader logs the rejection reason, and the shell reports it.
	outcome, _ := emu.Start(fsys, cfg.Boot.Image)
	if outcome != boot.Booted {
		return
	}

	tracer.Print(banner(cc.Isa, "Start"))
	err = emu.Run()
	var limit emulator.ErrCycleLimit
	switch {
	case errors.As(err, &limit):
		log.Printf("%v", err)
	case err != nil:
		log.Printf("[FATAL] %v", err)
	}

	value, _ := emu.Cpu.ReadWord(cc.OutputPort)
	tracer.Print(banner(cc.Isa, "Complete"))
	tracer.Print(result(cc.OutputPort, value))
}

func main() {
	var configFile string
	var trace bool
	var verbose bool

	log.SetPrefix("scsa: ")
	log.SetFlags(0)

	flag.StringVar(&configFile, "config", "", "TOML machine profile")
	flag.BoolVar(&trace, "t", true, "Trace every cycle")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Printf("Unknown arguments: %v", flag.Args())
	}

	// The exit code is always zero.
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Printf("%v: %v", configFile, err)
		cfg = config.Default()
	}

	run(cfg, os.DirFS("."), os.Stdin, os.Stdout, trace, verbose)
}

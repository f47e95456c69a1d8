// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command scsa-asm assembles an SCSA source file into the boot image.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/ezrec/scsa/config"
	"github.com/ezrec/scsa/cpu"
	"github.com/ezrec/scsa/emulator"
)

func assemble(cfg config.Config, source string, output string, verbose bool) (err error) {
	cc, err := cfg.Cpu()
	if err != nil {
		return
	}

	emu, err := emulator.NewEmulator(cc, cfg.Descriptor())
	if err != nil {
		return
	}
	emu.MaxCycles = cfg.Machine.MaxCycles

	inf, err := os.Open(source)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := cpu.NewAssembler()
	asm.Verbose = verbose
	asm.Isa = cc.Isa
	asm.Origin = cfg.Boot.Origin
	asm.Capacity = cc.MemorySize
	asm.Log = log.New(os.Stdout, "", 0)
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(inf)
	if err != nil {
		return
	}

	ouf, err := os.Create(output)
	if err != nil {
		return
	}
	defer func() {
		cerr := ouf.Close()
		if err == nil {
			err = cerr
		}
	}()

	_, err = prog.Image.WriteTo(ouf)
	if err != nil {
		return
	}

	log.Printf("%v: %d bytes, %d diagnostics", output, prog.Image.Len(), len(prog.Diagnostics))

	return
}

// watch re-assembles the source whenever it changes.
func watch(cfg config.Config, source string, output string, verbose bool) (err error) {
	source = filepath.Clean(source)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer watcher.Close()

	err = watcher.Watch(filepath.Dir(source))
	if err != nil {
		return
	}

	run := time.After(time.Millisecond)
	for {
		select {
		case <-run:
			aerr := assemble(cfg, source, output, verbose)
			if aerr != nil {
				log.Printf("%v: %v", source, aerr)
			}
		case ev := <-watcher.Event:
			if filepath.Clean(ev.Name) == source && (ev.IsModify() || ev.IsCreate()) {
				run = time.After(100 * time.Millisecond)
			}
		case werr := <-watcher.Error:
			log.Printf("watcher: %v", werr)
		}
	}
}

// run parses the command line and assembles, returning the exit code. Only
// usage errors fail; I/O errors are reported.
func run(args []string) (code int) {
	var configFile string
	var output string
	var verbose bool
	var watching bool

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.StringVar(&configFile, "config", "", "TOML machine profile")
	flags.StringVar(&output, "o", "", "Image file (default: profile image name)")
	flags.BoolVar(&verbose, "v", false, "Verbose mode")
	flags.BoolVar(&watching, "w", false, "Re-assemble when the source changes")

	err := flags.Parse(args[1:])
	if err != nil {
		return 1
	}

	if flags.NArg() != 1 {
		log.Printf("usage: %v [options] <source.asm>", args[0])
		flags.PrintDefaults()
		return 1
	}
	source := flags.Arg(0)

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Printf("%v: %v", configFile, err)
		return
	}

	if len(output) == 0 {
		output = cfg.Boot.Image
	}

	if watching {
		err = watch(cfg, source, output, verbose)
	} else {
		err = assemble(cfg, source, output, verbose)
	}
	if err != nil {
		log.Printf("%v: %v", source, err)
	}

	return
}

func main() {
	log.SetPrefix("scsa-asm: ")
	log.SetFlags(0)

	os.Exit(run(os.Args))
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command scsa-calc solves one 1-bit expression on the SCSA calculator.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/ezrec/scsa/calc"
	"github.com/ezrec/scsa/emulator"
	"github.com/ezrec/scsa/translate"
)

func main() {
	var trace bool
	var verbose bool

	log.SetPrefix("scsa-calc: ")
	log.SetFlags(0)

	flag.BoolVar(&trace, "t", true, "Trace every cycle")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	out := log.New(os.Stdout, "", 0)
	out.Print(translate.From("SCSA 1-Bit Virtual Calculator"))
	out.Print(translate.From("Supported Ops: ADD, XOR, AND (A op B), NOT (op A)"))
	translate.Fprintf(os.Stdout, "Enter the operation to solve (e.g. 1 XOR 0 or NOT 1):\n> ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && len(line) == 0 {
		log.Fatalf("%v", err)
	}

	calculator := &calc.Calculator{
		Verbose: verbose,
		Log:     out,
	}
	if trace {
		machine := calc.Config()
		calculator.Tracer = &emulator.LogTracer{
			Log:   out,
			Isa:   machine.Isa,
			Width: machine.Width,
			Port:  machine.OutputPort,
		}
	}

	result, err := calculator.Solve(strings.TrimSpace(line))
	if err != nil {
		log.Fatalf("%v", err)
	}

	out.Print(translate.From("Result in Output RAM[%d]: %d", calc.OUTPUT_PORT, result))
}

// Package psio implements the PSI/O shell, the secure mode fallback entered
// when the boot loader rejects an image.
//
// The shell is line oriented: it prints a prompt, reads one command per
// line, and runs until EXIT or the end of its input. It never hands
// control back to the loader.
package psio

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/ezrec/scsa/cpu"
	"github.com/ezrec/scsa/translate"
)

const (
	PROMPT    = "PSIO> "
	DUMP_SIZE = 16 // Default MEM byte count, and bytes per dump line.
)

var f = translate.From

// Shell is the PSI/O shell.
type Shell struct {
	In  io.Reader // Command input.
	Out io.Writer // Console output.

	Cpu         *cpu.Cpu        // Machine being diagnosed, may be nil.
	Firmware    uint16          // Fixed firmware boot address.
	Arenas      []cpu.Arena     // Reserved address ranges, for the memory map.
	Security    cpu.WideProfile // Layout of the security register.
	SecurityTag uint64          // Tag installed in the security register.

	reason   error
	register *cpu.Register
}

func (sh *Shell) printf(format string, args ...any) {
	translate.Fprintf(sh.Out, format, args...)
}

// EnterShell runs the shell for a boot failure reason. It returns when the
// input is exhausted or the operator exits; the only errors reported are
// console I/O errors.
func (sh *Shell) EnterShell(reason error) (err error) {
	sh.reason = reason

	sh.register, err = sh.Security.NewRegister()
	if err == nil {
		err = sh.register.SetLimb(0, 1)
	}
	if err == nil {
		err = sh.register.SetTag(sh.Security.Tag, sh.SecurityTag)
	}
	if err != nil {
		sh.printf("[PSIO] security register: %v\n", err)
		sh.register = nil
		err = nil
	}

	sh.printf("Welcome to PSI/O Shell v1.0 (Secure Mode).\n")
	if reason != nil {
		sh.printf("[PSIO] Entered on: %v\n", reason)
	}

	scanner := bufio.NewScanner(sh.In)
	for {
		sh.printf("%v", PROMPT)
		if !scanner.Scan() {
			break
		}
		done := sh.Execute(scanner.Text())
		if done {
			break
		}
	}

	err = scanner.Err()
	return
}

// Execute runs a single command line, and reports if the shell should exit.
func (sh *Shell) Execute(line string) (done bool) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	switch strings.ToUpper(words[0]) {
	case "HELP", "?":
		sh.help()
	case "DIAG":
		sh.diagnostics()
	case "REASON":
		sh.lastError()
	case "MEM":
		sh.memory(words[1:])
	case "SVC":
		sh.service(words[1:])
	case "EXIT", "QUIT":
		sh.printf("[PSIO] Shell exit.\n")
		done = true
	default:
		sh.printf("Unknown command: %v\n", words[0])
	}

	return
}

func (sh *Shell) help() {
	sh.printf("Commands:\n")
	sh.printf("  DIAG               run system diagnostics\n")
	sh.printf("  REASON             show the last boot error\n")
	sh.printf("  MEM <addr> [count] dump memory\n")
	sh.printf("  SVC <id>           run a service (1 diagnostics, 2 security, 3 memory map)\n")
	sh.printf("  EXIT               leave the shell\n")
}

func (sh *Shell) lastError() {
	if sh.reason == nil {
		sh.printf("[DIAG] Last error: none.\n")
		return
	}
	sh.printf("[DIAG] Last error: %v.\n", sh.reason)
}

// diagnostics checks memory, the firmware entry, and the security tag.
func (sh *Shell) diagnostics() {
	if sh.Cpu == nil {
		sh.printf("[DIAG] No machine attached.\n")
	} else {
		status := f("OK")
		if len(sh.Cpu.Memory) != sh.Cpu.MemorySize {
			status = f("FAIL")
		}
		sh.printf("[DIAG] Running memory tests... %v.\n", status)

		status = f("OK")
		code, err := sh.Cpu.Peek(sh.Firmware)
		switch {
		case err != nil:
			status = err.Error()
		case code.Opcode != cpu.OP_HLT:
			status = f("FAIL (%v)", code)
		}
		sh.printf("[DIAG] Checking Fixed Boot Address (0x%04X)... %v.\n", sh.Firmware, status)
	}

	sh.lastError()
	sh.verifyTag()
}

// verifyTag reports the security tag state.
func (sh *Shell) verifyTag() (ok bool) {
	if sh.register != nil {
		ok = sh.register.VerifyTag(sh.Security.Tag, sh.Security.Expected)
	}
	if ok {
		sh.printf("[SERVICE] %v-bit Security Tag Verified OK.\n", strconv.Itoa(sh.Security.Width))
	} else {
		sh.printf("[SERVICE] %v-bit Security Tag Failure. System Locked.\n", strconv.Itoa(sh.Security.Width))
	}
	return
}

// Service is a PSI/O service id.
type Service int

const (
	SERVICE_NONE           = Service(0)
	SERVICE_DIAGNOSTICS    = Service(1)
	SERVICE_SECURITY_CHECK = Service(2)
	SERVICE_MEMORY_MAP     = Service(3)
)

var ErrServiceUnknown = errors.New(f("unknown service"))

func (sh *Shell) service(args []string) {
	if len(args) != 1 {
		sh.printf("usage: SVC <id>\n")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		sh.printf("SVC: '%v' is not a service id\n", args[0])
		return
	}

	err = sh.RunService(Service(id))
	if err != nil {
		sh.printf("SVC %d: %v\n", id, err)
	}
}

// RunService executes a service from the service table.
func (sh *Shell) RunService(id Service) (err error) {
	sh.printf("[SERVICE] Executing Service ID %d: ", int(id))
	switch id {
	case SERVICE_DIAGNOSTICS:
		sh.printf("Running system diagnostics (%v-bit check)...\n", strconv.Itoa(sh.Security.Width))
		sh.verifyTag()
	case SERVICE_SECURITY_CHECK:
		sh.printf("Re-evaluating PSI/O Security Tag...\n")
		sh.verifyTag()
	case SERVICE_MEMORY_MAP:
		sh.printf("Memory map.\n")
		sh.memoryMap()
	default:
		sh.printf("Unknown Service.\n")
		err = ErrServiceUnknown
	}
	return
}

func (sh *Shell) memoryMap() {
	if sh.Cpu == nil {
		sh.printf("[SVC] No machine attached.\n")
		return
	}
	arenas := append(sh.Cpu.Arenas(), sh.Arenas...)
	cpu.SortArenas(arenas)
	for _, arena := range arenas {
		sh.printf("[SVC] %v\n", arena)
	}
}

// memory dumps memory as hex.
func (sh *Shell) memory(args []string) {
	if sh.Cpu == nil {
		sh.printf("MEM: no machine attached\n")
		return
	}
	if len(args) < 1 || len(args) > 2 {
		sh.printf("usage: MEM <addr> [count]\n")
		return
	}

	addr, err := cpu.ParseNumber(args[0])
	if err != nil {
		sh.printf("MEM: %v\n", err)
		return
	}
	count := DUMP_SIZE
	if len(args) == 2 {
		var c16 uint16
		c16, err = cpu.ParseNumber(args[1])
		if err != nil {
			sh.printf("MEM: %v\n", err)
			return
		}
		count = int(c16)
	}

	end := min(int(addr)+count, len(sh.Cpu.Memory))
	if int(addr) >= end {
		sh.printf("MEM: %v\n", cpu.ErrAddressInvalid)
		return
	}

	for line := int(addr); line < end; line += DUMP_SIZE {
		var sb strings.Builder
		for n := line; n < min(line+DUMP_SIZE, end); n++ {
			sb.WriteString(f(" %02X", sh.Cpu.Memory[n]))
		}
		sh.printf("%04X:%v\n", line, sb.String())
	}
}

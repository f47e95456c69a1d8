package emulator

import (
	"log"
	"strconv"

	"github.com/ezrec/scsa/cpu"
)

// LogTracer prints a state line for every executed cycle.
type LogTracer struct {
	Log   *log.Logger
	Isa   *cpu.Table
	Width int    // Accumulator width, for hex padding.
	Port  uint16 // Output port address.
}

var _ cpu.Tracer = (*LogTracer)(nil)

// NewLogTracer creates a tracer for a machine.
func NewLogTracer(logger *log.Logger, machine *cpu.Cpu) *LogTracer {
	return &LogTracer{
		Log:   logger,
		Isa:   machine.Isa,
		Width: machine.Width,
		Port:  machine.OutputPort,
	}
}

// Trace prints the post-fetch state of each cycle.
func (lt *LogTracer) Trace(event cpu.TraceEvent, snap cpu.Snapshot) {
	if event != cpu.TRACE_FETCH {
		return
	}

	digits := (lt.Width + 3) / 4
	code := snap.Code
	lt.Log.Print(f("--- CYCLE %v ---", strconv.Itoa(snap.Cycle)))
	lt.Log.Print(f("PC: %04X | Opcode: %01X (%v) | Reg: %01X | Operand: %04X | ACC: %0*X (%v) | OUT[%04X]: %0*X",
		snap.Pc, uint8(code.Opcode), lt.Isa.String(code.Opcode), uint8(code.Register), code.Operand,
		digits, snap.Accumulator, strconv.FormatUint(snap.Accumulator, 10), lt.Port, digits, snap.Output))
}

package cpu

// TraceEvent identifies where in a cycle a snapshot was taken.
type TraceEvent int

const (
	TRACE_FETCH   = TraceEvent(0) // After fetch, before execute.
	TRACE_EXECUTE = TraceEvent(1) // After execute.
)

func (ev TraceEvent) String() string {
	switch ev {
	case TRACE_FETCH:
		return "fetch"
	case TRACE_EXECUTE:
		return "execute"
	}
	return f("event(%d)", int(ev))
}

// Snapshot is the observable processor state at a trace point.
type Snapshot struct {
	Cycle       int    // Cycle number, from 0.
	Pc          uint16 // Address of the instruction.
	Code        Code   // Decoded instruction.
	Accumulator uint64
	Output      uint64 // Word at the output port.
	Halted      bool
}

// Tracer observes processor cycles. It has no effect on execution.
type Tracer interface {
	Trace(event TraceEvent, snap Snapshot)
}

// TracerFunc adapts a function to a Tracer.
type TracerFunc func(event TraceEvent, snap Snapshot)

func (tf TracerFunc) Trace(event TraceEvent, snap Snapshot) {
	tf(event, snap)
}

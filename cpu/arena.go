package cpu

import (
	"slices"
)

// Arena is a named range of the address space.
type Arena struct {
	Name  string
	Start uint16
	Size  int // Size in bytes.
}

// End returns the address of the last byte of the arena.
func (ar Arena) End() int {
	return int(ar.Start) + ar.Size - 1
}

// Contains reports if an address is inside the arena.
func (ar Arena) Contains(addr uint16) bool {
	return addr >= ar.Start && int(addr) <= ar.End()
}

func (ar Arena) String() string {
	return f("0x%04X-0x%04X %v", ar.Start, ar.End(), ar.Name)
}

// Arenas returns the arenas of the processor: its memory and output port.
func (cpu *Cpu) Arenas() []Arena {
	return []Arena{
		{Name: "memory", Start: 0, Size: len(cpu.Memory)},
		{Name: "output port", Start: cpu.OutputPort, Size: cpu.WordSize()},
	}
}

// SortArenas orders arenas by start address, then by decreasing size.
func SortArenas(arenas []Arena) {
	slices.SortStableFunc(arenas, func(a, b Arena) int {
		if a.Start != b.Start {
			return int(a.Start) - int(b.Start)
		}
		return b.Size - a.Size
	})
}

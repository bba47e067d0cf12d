// Package tracer reconstructs a deterministic, instruction-granular
// execution trace of a user-mode x86 process: attaching or spawning a
// tracee under ptrace, single-stepping it one instruction at a time, and
// recording the concrete memory operations each instruction performs.
package tracer

import (
	"fmt"

	"github.com/keurnel/mttn/architecture/x86_64"
)

// RegisterFile is the architectural register snapshot type; the projection
// operation (ValueOf) and the field layout live alongside the rest of the
// register catalog in architecture/x86_64.
type RegisterFile = x86_64.RegisterFile

// MemoryWidth is the byte count of one memory access, restricted to the four
// widths the architecture (and the Tiny86 wire format) can represent. Its
// numeric value equals the byte count; this is load-bearing in the Tiny86
// packer, where the width also stands in for a bit mask.
type MemoryWidth int

const (
	WidthByte  MemoryWidth = 1
	WidthWord  MemoryWidth = 2
	WidthDWord MemoryWidth = 4
	WidthQWord MemoryWidth = 8
)

// NewMemoryWidth validates n as one of {1,2,4,8} and returns the
// corresponding MemoryWidth, or a domain error otherwise.
func NewMemoryWidth(n int) (MemoryWidth, error) {
	switch n {
	case 1, 2, 4, 8:
		return MemoryWidth(n), nil
	default:
		return 0, fmt.Errorf("tracer: invalid memory width %d, want one of {1,2,4,8}", n)
	}
}

// String names the width the way the JSON encoding does.
func (w MemoryWidth) String() string {
	switch w {
	case WidthByte:
		return "Byte"
	case WidthWord:
		return "Word"
	case WidthDWord:
		return "DWord"
	case WidthQWord:
		return "QWord"
	default:
		return fmt.Sprintf("MemoryWidth(%d)", int(w))
	}
}

// MemoryDirection distinguishes a read from a write memory access.
type MemoryDirection int

const (
	DirectionRead MemoryDirection = iota
	DirectionWrite
)

func (d MemoryDirection) String() string {
	if d == DirectionWrite {
		return "Write"
	}
	return "Read"
}

// MemoryHint is one concrete memory operation performed by one executed
// instruction: the address touched, the direction, the width, and the
// little-endian bytes of the observed value (length <= width and <= 4, the
// latter bound imposed by the Tiny86 wire envelope).
type MemoryHint struct {
	Address   uint64
	Direction MemoryDirection
	Width     MemoryWidth
	Data      []byte
}

// Step is one executed instruction: its raw bytes (1..15), the register
// file snapshot taken immediately before it executed, and the ordered list
// of memory hints it produced.
type Step struct {
	Instr []byte
	Regs  RegisterFile
	Hints []MemoryHint
}

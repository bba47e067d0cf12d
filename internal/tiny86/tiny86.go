// Package tiny86 implements the fixed-width, big-endian "Tiny86" binary
// packing of a trace step: a witness format consumed by a downstream
// verifiable-computation circuit. Every encoder here has a fixed serialized
// size and a pad-write operation that emits an all-zero payload of that
// size, used as the "no hint" placeholder.
package tiny86

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/keurnel/mttn/tracer"
)

const (
	maxInstrLen   = 12
	maxHintData   = 4
	maxHints      = 2
	hintSize      = 9
	regFileSize   = 40
	stepSize      = maxInstrLen + regFileSize + maxHints*hintSize // 70
)

// ErrUnsupportedTiny86Width is returned when asked to encode a memory hint
// whose width cannot be represented in the packed byte's 2-bit mask field.
// See DESIGN.md's resolution of spec.md's QWord open question: this
// implementation surfaces the ambiguity as an error rather than silently
// emitting a colliding mask byte.
type ErrUnsupportedTiny86Width struct {
	Width tracer.MemoryWidth
}

func (e *ErrUnsupportedTiny86Width) Error() string {
	return fmt.Sprintf("tiny86: width %s cannot be represented in the 2-bit mask field", e.Width)
}

// ErrInvariantViolation is returned when a value violates one of the fixed
// Tiny86 envelope sizes (too many instruction bytes, too much hint data, or
// too many hints in a step).
type ErrInvariantViolation struct {
	Reason string
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("tiny86: invariant violation: %s", e.Reason)
}

// HintSerializedSize is the fixed wire size of one MemoryHint encoding.
func HintSerializedSize() int { return hintSize }

// RegisterFileSerializedSize is the fixed wire size of one RegisterFile encoding.
func RegisterFileSerializedSize() int { return regFileSize }

// StepSerializedSize is the fixed wire size of one Step encoding.
func StepSerializedSize() int { return stepSize }

// EncodeHint serializes a MemoryHint into its 9-byte Tiny86 representation.
func EncodeHint(h tracer.MemoryHint) ([]byte, error) {
	if len(h.Data) > maxHintData {
		return nil, &ErrInvariantViolation{Reason: fmt.Sprintf("hint data length %d exceeds %d", len(h.Data), maxHintData)}
	}
	if h.Width == tracer.WidthQWord {
		return nil, &ErrUnsupportedTiny86Width{Width: h.Width}
	}

	mask := uint8(bits.TrailingZeros(uint(h.Width)))
	var direction uint8
	if h.Direction == tracer.DirectionWrite {
		direction = 1
	}
	packed := mask | (direction << 2) | 0x80

	out := make([]byte, 0, hintSize)
	out = append(out, packed)

	var addrBuf [4]byte
	binary.BigEndian.PutUint32(addrBuf[:], uint32(h.Address))
	out = append(out, addrBuf[:]...)

	var dataBuf [maxHintData]byte
	copy(dataBuf[:], h.Data)
	out = append(out, dataBuf[:]...)

	return out, nil
}

// PadHint returns the 9-byte all-zero "no hint" placeholder.
func PadHint() []byte {
	return make([]byte, hintSize)
}

// EncodeRegisterFile serializes the ten fields the circuit cares about (the
// 8 general-purpose accumulator/index/pointer registers, rip, rflags), each
// truncated to 32 bits and emitted big-endian. R8-R15, fs_base, and gs_base
// are not encoded.
func EncodeRegisterFile(r tracer.RegisterFile) []byte {
	fields := []uint64{r.Rax, r.Rbx, r.Rcx, r.Rdx, r.Rsi, r.Rdi, r.Rsp, r.Rbp, r.Rip, r.Rflags}
	out := make([]byte, 0, regFileSize)
	var buf [4]byte
	for _, f := range fields {
		binary.BigEndian.PutUint32(buf[:], uint32(f))
		out = append(out, buf[:]...)
	}
	return out
}

// EncodeStep serializes a full trace step into its 70-byte Tiny86
// representation: two hint slots, then the register file, then the
// instruction bytes (themselves reversed) — the reverse of the conceptual
// instruction/registers/hints order, because the consuming circuit reads
// bits starting at the instruction end.
func EncodeStep(s tracer.Step) ([]byte, error) {
	if len(s.Hints) > maxHints {
		return nil, &ErrInvariantViolation{Reason: fmt.Sprintf("step has %d hints, want <= %d", len(s.Hints), maxHints)}
	}
	if len(s.Instr) > maxInstrLen {
		return nil, &ErrInvariantViolation{Reason: fmt.Sprintf("instruction length %d exceeds %d", len(s.Instr), maxInstrLen)}
	}

	out := make([]byte, 0, stepSize)

	for slot := 0; slot < maxHints; slot++ {
		if slot < len(s.Hints) {
			enc, err := EncodeHint(s.Hints[slot])
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		} else {
			out = append(out, PadHint()...)
		}
	}

	out = append(out, EncodeRegisterFile(s.Regs)...)

	instrBuf := make([]byte, maxInstrLen)
	for i := range instrBuf {
		instrBuf[i] = 0x90
	}
	copy(instrBuf, s.Instr)
	reverse(instrBuf)
	out = append(out, instrBuf...)

	return out, nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// Bitstring returns the MSB-first binary text representation of an encoded
// value, for debugging.
func Bitstring(encoded []byte) string {
	out := make([]byte, 0, len(encoded)*8)
	for _, b := range encoded {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) != 0 {
				out = append(out, '1')
			} else {
				out = append(out, '0')
			}
		}
	}
	return string(out)
}

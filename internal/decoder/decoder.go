// Package decoder wraps golang.org/x/arch/x86/x86asm as the instruction
// decode oracle spec.md §6 specifies. x86asm decodes syntax (opcode,
// operands, length) but does not report per-operand read/write semantics
// the way iced-x86 (used by the original implementation) does, so this
// package layers a small mnemonic-keyed access table on top (see access.go)
// while delegating all byte-level decoding to x86asm.Decode.
package decoder

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/keurnel/mttn/architecture/x86_64"
)

// ErrInvalidOpcode is returned when x86asm cannot decode the bytes at the
// current instruction pointer.
type ErrInvalidOpcode struct {
	IP  uint64
	Err error
}

func (e *ErrInvalidOpcode) Error() string {
	return fmt.Sprintf("decoder: invalid opcode at %#x: %v", e.IP, e.Err)
}

func (e *ErrInvalidOpcode) Unwrap() error { return e.Err }

// MemoryUse is one memory operand a decoded instruction declares, not yet
// resolved to a concrete address or width.
type MemoryUse struct {
	Access AccessKind
	Size   MemorySize

	mem      x86asm.Mem
	hasMem   bool
	implicit string // "rsi"/"rdi" for string-instruction operands, "push:rsp"/"pop:rsp" for stack operands
}

// Instruction is a decoded x86 instruction together with its declared
// memory uses.
type Instruction struct {
	Len      int
	Mnemonic string
	Encoding x86_64.InstructionEncoding
	Uses     []MemoryUse

	raw x86asm.Inst
}

// Decode decodes the instruction at ip from raw (which should contain at
// least the maximum instruction length, 15 bytes, or as many as are
// available at the end of a mapped segment) under the given bitness.
func Decode(raw []byte, bitness int, ip uint64) (*Instruction, error) {
	mode := 64
	if bitness == 32 {
		mode = 32
	}

	inst, err := x86asm.Decode(raw, mode)
	if err != nil {
		return nil, &ErrInvalidOpcode{IP: ip, Err: err}
	}
	if inst.Op == 0 {
		return nil, &ErrInvalidOpcode{IP: ip, Err: fmt.Errorf("decoded to no-op opcode")}
	}

	out := &Instruction{
		Len:      inst.Len,
		Mnemonic: strings.ToUpper(inst.Op.String()),
		Encoding: x86_64.ClassifyEncoding(raw[:inst.Len]),
		raw:      inst,
	}
	out.Uses = classify(out.Mnemonic, inst)
	return out, nil
}

// classify derives the declared memory uses of a decoded instruction.
func classify(mnemonic string, inst x86asm.Inst) []MemoryUse {
	if uses, ok := classifyStringOp(mnemonic); ok {
		return uses
	}
	if uses, ok := classifyStackOp(mnemonic, inst); ok {
		return uses
	}

	mem, idx, ok := findMemArg(inst)
	if !ok {
		return nil
	}

	access, ok := mnemonicAccess[mnemonic]
	if !ok {
		// Positional fallback: the memory operand is the destination (and
		// thus written) when it is the first declared argument, matching
		// x86asm's Intel-style dst,src argument order; otherwise it is read.
		if idx == 0 {
			access = AccessWrite
		} else {
			access = AccessRead
		}
	}
	if access == AccessNoMemAccess {
		// LEA and multi-byte NOP decode a Mem arg (for address-form
		// purposes) but never actually touch memory.
		return nil
	}

	size := memorySize(inst.MemBytes)

	return []MemoryUse{{Access: access, Size: size, mem: mem, hasMem: true}}
}

func findMemArg(inst x86asm.Inst) (x86asm.Mem, int, bool) {
	for i, a := range inst.Args {
		if a == nil {
			continue
		}
		if m, ok := a.(x86asm.Mem); ok {
			return m, i, true
		}
	}
	return x86asm.Mem{}, -1, false
}

func memorySize(bytes int) MemorySize {
	switch bytes {
	case 1:
		return SizeUInt8
	case 2:
		return SizeUInt16
	case 4:
		return SizeUInt32
	case 8:
		return SizeUInt64
	case 0:
		return SizeUnknown
	default:
		return SizeOther
	}
}

// classifyStringOp recognizes the implicit-operand string-instruction
// families (LODS/STOS/MOVS/CMPS/SCAS), whose memory operands are not
// represented as decoded Mem args by x86asm. Width comes from the mnemonic
// suffix letter; addresses come from RSI/RDI, resolved in address.go.
func classifyStringOp(mnemonic string) ([]MemoryUse, bool) {
	if len(mnemonic) < 2 {
		return nil, false
	}
	suffix := mnemonic[len(mnemonic)-1]
	width, hasSuffix := stringOpWidths[suffix]
	if !hasSuffix {
		return nil, false
	}
	base := mnemonic[:len(mnemonic)-1]

	size := memorySize(width)

	switch base {
	case "STOS":
		return []MemoryUse{{Access: AccessCondWrite, Size: size, implicit: "rdi"}}, true
	case "LODS":
		return []MemoryUse{{Access: AccessCondRead, Size: size, implicit: "rsi"}}, true
	case "SCAS":
		return []MemoryUse{{Access: AccessCondRead, Size: size, implicit: "rdi"}}, true
	case "MOVS":
		return []MemoryUse{
			{Access: AccessCondRead, Size: size, implicit: "rsi"},
			{Access: AccessCondWrite, Size: size, implicit: "rdi"},
		}, true
	case "CMPS":
		return []MemoryUse{
			{Access: AccessCondRead, Size: size, implicit: "rsi"},
			{Access: AccessCondRead, Size: size, implicit: "rdi"},
		}, true
	}
	return nil, false
}

// classifyStackOp recognizes PUSH/POP, whose stack-memory operand is
// implicit in the opcode rather than a decoded Mem arg. Per spec.md §8's
// worked scenario, PUSH is modeled as ReadWrite: a Read hint followed by a
// Write hint at the same post-decrement address.
func classifyStackOp(mnemonic string, inst x86asm.Inst) ([]MemoryUse, bool) {
	width := inst.DataSize / 8
	if width == 0 {
		width = 8
	}
	size := memorySize(width)

	switch mnemonic {
	case "PUSH":
		return []MemoryUse{{Access: AccessReadWrite, Size: size, implicit: "push:rsp"}}, true
	case "POP":
		return []MemoryUse{{Access: AccessRead, Size: size, implicit: "pop:rsp"}}, true
	}
	return nil, false
}

package decoder

import "fmt"

// AccessKind classifies how a declared memory use touches memory, mirroring
// the vocabulary spec.md's hint-reconstruction table is built from.
type AccessKind int

const (
	AccessNoMemAccess AccessKind = iota
	AccessRead
	AccessWrite
	AccessReadWrite
	AccessCondRead
	AccessCondWrite
	AccessReadCondWrite
	AccessUnsupported
)

// MemorySize is the declared size of one memory use, before it has been
// resolved to a concrete tracer.MemoryWidth.
type MemorySize int

const (
	SizeUnknown MemorySize = iota
	SizeUInt8
	SizeInt8
	SizeUInt16
	SizeInt16
	SizeUInt32
	SizeInt32
	SizeUInt64
	SizeInt64
	SizeOther
)

// Directions returns the ordered list of MemoryDirection values (as
// spec.md §4.2's access-kind fan-out table describes) that one declared use
// produces. Conditional kinds fan out identically to their unconditional
// counterparts since the controller observes one single-stepped iteration
// at a time and the effect, if any, has already materialized.
func (a AccessKind) Directions() ([]Direction, error) {
	switch a {
	case AccessRead, AccessCondRead:
		return []Direction{DirRead}, nil
	case AccessWrite, AccessCondWrite:
		return []Direction{DirWrite}, nil
	case AccessReadWrite, AccessReadCondWrite:
		return []Direction{DirRead, DirWrite}, nil
	default:
		return nil, fmt.Errorf("decoder: unsupported access kind %v", a)
	}
}

// Direction is the fan-out result of an AccessKind: one concrete read or
// write a stage of hint reconstruction must produce.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// mnemonicAccess classifies instructions whose memory operand (found via
// x86asm's decoded Args) is unambiguous from the mnemonic alone: compares
// and tests never write, and arithmetic/bitwise/exchange instructions with
// a memory operand always read-modify-write it. Every other mnemonic with a
// memory operand is resolved positionally in decoder.go (the memory operand
// is the destination, and thus written, when it is the first declared
// argument; otherwise it is read).
var mnemonicAccess = map[string]AccessKind{
	"CMP":  AccessRead,
	"TEST": AccessRead,

	"ADD": AccessReadWrite, "ADC": AccessReadWrite,
	"SUB": AccessReadWrite, "SBB": AccessReadWrite,
	"AND": AccessReadWrite, "OR": AccessReadWrite, "XOR": AccessReadWrite,
	"INC": AccessReadWrite, "DEC": AccessReadWrite, "NEG": AccessReadWrite, "NOT": AccessReadWrite,
	"XCHG": AccessReadWrite, "CMPXCHG": AccessReadWrite,
	"SHL": AccessReadWrite, "SAL": AccessReadWrite, "SHR": AccessReadWrite, "SAR": AccessReadWrite,
	"ROL": AccessReadWrite, "ROR": AccessReadWrite, "RCL": AccessReadWrite, "RCR": AccessReadWrite,

	"LEA": AccessNoMemAccess,
	"NOP": AccessNoMemAccess,
}

// stringOpWidths maps the suffix letter x86's implicit string-instruction
// mnemonics carry to a byte width, per spec.md §4.2's width-derivation rule.
var stringOpWidths = map[byte]int{'B': 1, 'W': 2, 'D': 4, 'Q': 8}

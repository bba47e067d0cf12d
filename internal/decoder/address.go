package decoder

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// ValueOf resolves a symbolic register name to its 64-bit value against
// some register snapshot; the controller passes x86_64.RegisterFile.ValueOf.
type ValueOf func(name string) (uint64, error)

// Width returns the byte width this use's declared size resolves to, or an
// error if the size is not one of the four representable widths and cannot
// be mapped to one (the controller decides whether to treat this as fatal
// or, under ignore_unsupported_memops, skip it).
func (u MemoryUse) Width() (int, error) {
	switch u.Size {
	case SizeUInt8, SizeInt8:
		return 1, nil
	case SizeUInt16, SizeInt16:
		return 2, nil
	case SizeUInt32, SizeInt32:
		return 4, nil
	case SizeUInt64, SizeInt64:
		return 8, nil
	default:
		return 0, fmt.Errorf("decoder: unsupported memory size %v", u.Size)
	}
}

// Address computes the effective virtual address of this use. instrIP is
// the instruction's starting address (the pre-execution rip); instrLen is
// its decoded length, needed for RIP-relative addressing, which is relative
// to the address of the *following* instruction, not the current one.
func (u MemoryUse) Address(valueOf ValueOf, bitness int, instrIP uint64, instrLen int) (uint64, error) {
	if u.implicit != "" {
		return u.implicitAddress(valueOf, bitness)
	}
	if !u.hasMem {
		return 0, fmt.Errorf("decoder: use has no memory operand")
	}
	return effectiveAddress(u.mem, valueOf, instrIP, instrLen)
}

func (u MemoryUse) implicitAddress(valueOf ValueOf, bitness int) (uint64, error) {
	width, err := u.Width()
	if err != nil {
		return 0, err
	}

	switch u.implicit {
	case "rsi", "rdi":
		return valueOf(stringIndexReg(u.implicit, bitness))
	case "push:rsp":
		rsp, err := valueOf(stackPointerReg(bitness))
		if err != nil {
			return 0, err
		}
		return rsp - uint64(width), nil
	case "pop:rsp":
		return valueOf(stackPointerReg(bitness))
	}
	return 0, fmt.Errorf("decoder: unrecognized implicit address class %q", u.implicit)
}

func stringIndexReg(name string, bitness int) string {
	if bitness == 32 {
		return "e" + name[1:]
	}
	return name
}

func stackPointerReg(bitness int) string {
	if bitness == 32 {
		return "esp"
	}
	return "rsp"
}

func effectiveAddress(mem x86asm.Mem, valueOf ValueOf, instrIP uint64, instrLen int) (uint64, error) {
	var base uint64
	if mem.Base != 0 {
		if mem.Base == x86asm.RIP {
			base = instrIP + uint64(instrLen)
		} else {
			v, err := valueOf(regName(mem.Base))
			if err != nil {
				return 0, err
			}
			base = v
		}
	}

	var index uint64
	if mem.Index != 0 {
		v, err := valueOf(regName(mem.Index))
		if err != nil {
			return 0, err
		}
		index = v * uint64(mem.Scale)
	}

	return base + index + uint64(mem.Disp), nil
}

// regName translates an x86asm register into the canonical lowercase name
// this package's register-file projection understands.
func regName(r x86asm.Reg) string {
	return strings.ToLower(r.String())
}

package x86_64

import (
	"fmt"
	"sync"
)

// RegisterFile is a snapshot of the integer general-purpose registers, the
// instruction pointer, the flags word, and the FS/GS segment base MSRs of a
// traced process, taken once per step. It is a plain value: copied, never
// mutated in place.
type RegisterFile struct {
	Rax, Rbx, Rcx, Rdx uint64
	Rsi, Rdi, Rsp, Rbp uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
	Rip, Rflags        uint64
	FsBase, GsBase     uint64
}

// ErrUntrackedRegister is returned by ValueOf for any symbolic register this
// register file does not model (vector, control, debug, FPU, mask, or
// segment-descriptor registers).
type ErrUntrackedRegister struct {
	Name string
}

func (e *ErrUntrackedRegister) Error() string {
	return fmt.Sprintf("x86_64: untracked register %q", e.Name)
}

type subregWidth int

const (
	widthLow8  subregWidth = iota // al, bl, ..., r15b
	widthHigh8                    // ah, bh, ch, dh
	width16
	width32
	width64
)

type subregEntry struct {
	parent string
	width  subregWidth
}

// legacyHighByteParent hand-lists the four 8-bit registers whose ModRM
// encoding (4-7) collides with SPL/BPL/SIL/DIL's: without a REX prefix those
// encodings name AH/CH/DH/BH instead, a distinction RegistersByName's
// encoding field alone can't express.
var legacyHighByteParent = map[string]string{
	"ah": "rax", "ch": "rcx", "dh": "rdx", "bh": "rbx",
}

var (
	subregTable     map[string]subregEntry
	subregTableOnce sync.Once
)

// symbolicRegisters projects RegistersByName (architecture/x86_64/registers.go,
// plus rip.go's RIP/EIP addition) into the parent-register/sub-width table
// ValueOf resolves against, so the catalog of addressable register names is
// the single source of truth rather than a second, hand-maintained list.
// Built lazily (not as a package-level var) since rip.go's init adds RIP/EIP
// to RegistersByName after var initializers have already run.
func symbolicRegisters() map[string]subregEntry {
	subregTableOnce.Do(func() {
		parent64ByEncoding := make(map[byte]string)
		for name, reg := range RegistersByName {
			if reg.Type == Register64 {
				parent64ByEncoding[reg.Encoding] = name
			}
		}

		table := make(map[string]subregEntry, len(RegistersByName))
		for name, reg := range RegistersByName {
			var width subregWidth
			switch reg.Type {
			case Register64:
				width = width64
			case Register32:
				width = width32
			case Register16:
				width = width16
			case Register8:
				if parent, ok := legacyHighByteParent[name]; ok {
					table[name] = subregEntry{parent: parent, width: widthHigh8}
					continue
				}
				width = widthLow8
			default:
				// Segment/control/debug/MMX/XMM/YMM/ZMM registers are not
				// modeled by RegisterFile.
				continue
			}
			if parent, ok := parent64ByEncoding[reg.Encoding]; ok {
				table[name] = subregEntry{parent: parent, width: width}
			}
		}
		subregTable = table
	})
	return subregTable
}

func (r RegisterFile) parentValue(name string) uint64 {
	switch name {
	case "rax":
		return r.Rax
	case "rbx":
		return r.Rbx
	case "rcx":
		return r.Rcx
	case "rdx":
		return r.Rdx
	case "rsi":
		return r.Rsi
	case "rdi":
		return r.Rdi
	case "rsp":
		return r.Rsp
	case "rbp":
		return r.Rbp
	case "r8":
		return r.R8
	case "r9":
		return r.R9
	case "r10":
		return r.R10
	case "r11":
		return r.R11
	case "r12":
		return r.R12
	case "r13":
		return r.R13
	case "r14":
		return r.R14
	case "r15":
		return r.R15
	case "rip":
		return r.Rip
	}
	return 0
}

func applyWidth(v uint64, w subregWidth) uint64 {
	switch w {
	case widthLow8:
		return v & 0xff
	case widthHigh8:
		return (v >> 8) & 0xff
	case width16:
		return v & 0xffff
	case width32:
		return v & 0xffffffff
	default:
		return v
	}
}

// ValueOf projects the value of a symbolic register against this snapshot.
// FS and GS report the segment base MSR, not a selector value; SS/CS/DS/ES
// report 0 under the flat-memory-model assumption. Any register this file
// does not model (vector, control, debug, FPU, mask, segment-descriptor)
// reports ErrUntrackedRegister, and rflags has no symbolic register name so
// it is never addressable through this operation.
func (r RegisterFile) ValueOf(name string) (uint64, error) {
	if entry, ok := symbolicRegisters()[name]; ok {
		return applyWidth(r.parentValue(entry.parent), entry.width), nil
	}
	switch name {
	case "fs":
		return r.FsBase, nil
	case "gs":
		return r.GsBase, nil
	case "ss", "cs", "ds", "es":
		return 0, nil
	}
	return 0, &ErrUntrackedRegister{Name: name}
}

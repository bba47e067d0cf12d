package x86_64

// InstructionEncoding identifies the prefix family an instruction was
// encoded with. The decoder uses this to annotate a decoded instruction for
// diagnostics; it has no bearing on register or memory semantics.
type InstructionEncoding int

const (
	// EncodingLegacy - the legacy encoding of x86 instructions (no VEX/EVEX/XOP prefix)
	EncodingLegacy InstructionEncoding = iota
	// EncodingVEX - the VEX prefix encoding used for AVX instructions
	EncodingVEX
	// EncodingEVEX - the EVEX prefix encoding used for AVX-512 instructions
	EncodingEVEX
	// EncodingXOP - the XOP prefix encoding used for AMD-specific instructions
	EncodingXOP
)

// ClassifyEncoding inspects the leading bytes of an instruction (before any
// ModRM/SIB/displacement/immediate bytes) and reports which prefix family it
// belongs to. Only the bytes needed to distinguish the four families are
// consulted; a legacy-encoded instruction with no recognized prefix reports
// EncodingLegacy.
func ClassifyEncoding(raw []byte) InstructionEncoding {
	if len(raw) == 0 {
		return EncodingLegacy
	}
	switch raw[0] {
	case 0xc4, 0xc5:
		return EncodingVEX
	case 0x62:
		return EncodingEVEX
	case 0x8f:
		// XOP shares its leading byte with the legacy POP r/m instruction;
		// the distinguishing bit lives in the second byte's reserved field.
		if len(raw) >= 2 && raw[1]&0x18 != 0 {
			return EncodingXOP
		}
	}
	return EncodingLegacy
}

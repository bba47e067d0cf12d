package x86_64

// Instruction pointer. The teacher's register catalog never needed to name
// the instruction pointer as an operand (an assembler encodes RIP-relative
// addressing as a displacement, never as a literal register name), so these
// were absent from registers.go and are added here in the same style.
var (
	EIP = Register{Name: "eip", Type: Register32, Encoding: 0xff}
	RIP = Register{Name: "rip", Type: Register64, Encoding: 0xff}
)

func init() {
	RegistersByName["eip"] = EIP
	RegistersByName["rip"] = RIP
}

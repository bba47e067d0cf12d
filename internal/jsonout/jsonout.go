// Package jsonout encodes a trace as the structured JSON document spec.md
// §6 defines: an array of step objects, each carrying the raw instruction
// bytes, the full register-file snapshot, and the ordered memory hints.
package jsonout

import (
	"encoding/json"
	"io"

	"github.com/keurnel/mttn/tracer"
)

type stepDoc struct {
	Instr byteArray  `json:"instr"`
	Regs  regfileDoc `json:"regs"`
	Hints []hintDoc  `json:"hints"`
}

// byteArray marshals as a JSON array of small integers (spec.md §6:
// "instr": [u8...]), not the base64 string encoding/json gives a bare
// []byte.
type byteArray []byte

func (b byteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

type regfileDoc struct {
	Rax    uint64 `json:"rax"`
	Rbx    uint64 `json:"rbx"`
	Rcx    uint64 `json:"rcx"`
	Rdx    uint64 `json:"rdx"`
	Rsi    uint64 `json:"rsi"`
	Rdi    uint64 `json:"rdi"`
	Rsp    uint64 `json:"rsp"`
	Rbp    uint64 `json:"rbp"`
	R8     uint64 `json:"r8"`
	R9     uint64 `json:"r9"`
	R10    uint64 `json:"r10"`
	R11    uint64 `json:"r11"`
	R12    uint64 `json:"r12"`
	R13    uint64 `json:"r13"`
	R14    uint64 `json:"r14"`
	R15    uint64 `json:"r15"`
	Rip    uint64 `json:"rip"`
	Rflags uint64 `json:"rflags"`
	FsBase uint64 `json:"fs_base"`
	GsBase uint64 `json:"gs_base"`
}

type hintDoc struct {
	Address   uint64    `json:"address"`
	Operation string    `json:"operation"`
	Mask      string    `json:"mask"`
	Data      byteArray `json:"data"`
}

func toDoc(s tracer.Step) stepDoc {
	hints := make([]hintDoc, len(s.Hints))
	for i, h := range s.Hints {
		hints[i] = hintDoc{
			Address:   h.Address,
			Operation: h.Direction.String(),
			Mask:      h.Width.String(),
			Data:      byteArray(h.Data),
		}
	}

	return stepDoc{
		Instr: byteArray(s.Instr),
		Regs: regfileDoc{
			Rax: s.Regs.Rax, Rbx: s.Regs.Rbx, Rcx: s.Regs.Rcx, Rdx: s.Regs.Rdx,
			Rsi: s.Regs.Rsi, Rdi: s.Regs.Rdi, Rsp: s.Regs.Rsp, Rbp: s.Regs.Rbp,
			R8: s.Regs.R8, R9: s.Regs.R9, R10: s.Regs.R10, R11: s.Regs.R11,
			R12: s.Regs.R12, R13: s.Regs.R13, R14: s.Regs.R14, R15: s.Regs.R15,
			Rip: s.Regs.Rip, Rflags: s.Regs.Rflags,
			FsBase: s.Regs.FsBase, GsBase: s.Regs.GsBase,
		},
		Hints: hints,
	}
}

// Encode writes the JSON document for a complete, buffered slice of steps.
// spec.md §2 notes the JSON path is the buffered, whole-sequence consumer
// (as opposed to the Tiny86 path, which streams).
func Encode(w io.Writer, steps []tracer.Step) error {
	docs := make([]stepDoc, len(steps))
	for i, s := range steps {
		docs[i] = toDoc(s)
	}

	enc := json.NewEncoder(w)
	return enc.Encode(docs)
}

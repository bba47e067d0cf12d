package tracer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/keurnel/mttn/internal/decoder"
	"github.com/keurnel/mttn/internal/diag"
	"github.com/keurnel/mttn/internal/procmaps"
	"github.com/keurnel/mttn/internal/ptrace"
)

const maxInstrFetch = 15

// Tracee owns a debug-attached process and exposes its execution as a lazy
// finite sequence of Steps: call Next repeatedly until it returns io.EOF.
// This is where the two-phase memory-hint reconstruction (spec.md §4.2)
// lives.
type Tracee struct {
	pt            *ptrace.Tracee
	executableMap *procmaps.ExecutableMap
	config        Config
	regs          RegisterFile
	terminated    bool

	Diag *diag.Log
}

// PID returns the OS-level process identifier under debug control.
func (tc *Tracee) PID() int { return tc.pt.PID }

// ReadExecutableByte is an out-of-band diagnostic accessor over the
// executable-segment map built at construction time; it is never consulted
// on the per-step hot path.
func (tc *Tracee) ReadExecutableByte(addr uint64) (byte, bool) {
	seg, ok := tc.executableMap.Lookup(addr)
	if !ok {
		return 0, false
	}
	return seg.Data[addr-seg.Start], true
}

// Next pulls the next Step. Once the tracee has terminated, it returns
// io.EOF.
func (tc *Tracee) Next() (*Step, error) {
	if tc.terminated {
		return nil, io.EOF
	}

	tc.Diag.SetStage("read-registers")
	regs, err := tc.pt.Registers()
	if err != nil {
		return nil, tc.fault(err)
	}
	tc.regs = regs

	tc.Diag.SetStage("fetch-instruction")
	raw := make([]byte, maxInstrFetch)
	if _, err := tc.pt.ReadMemory(regs.Rip, raw); err != nil {
		return nil, tc.fault(err)
	}

	tc.Diag.SetStage("decode")
	inst, err := decoder.Decode(raw, tc.config.Bitness, regs.Rip)
	if err != nil {
		return nil, fmt.Errorf("tracer: decoding instruction at %#x: %w", regs.Rip, err)
	}

	tc.Diag.SetStage("stage1-hints")
	hints, writeIdx, err := tc.stage1Hints(inst, regs.Rip)
	if err != nil {
		return nil, err
	}

	tc.Diag.SetStage("single-step")
	if err := tc.pt.SingleStep(); err != nil {
		return nil, tc.fault(err)
	}

	time.Sleep(time.Millisecond)

	tc.Diag.SetStage("stage2-hints")
	if err := tc.stage2Hints(hints, writeIdx); err != nil {
		return nil, err
	}

	tc.Diag.SetStage("status-wait")
	status, err := tc.pt.Wait()
	if err != nil {
		return nil, tc.fault(err)
	}
	switch status.Kind {
	case ptrace.KindExited, ptrace.KindTraceExit, ptrace.KindOther:
		tc.terminated = true
	case ptrace.KindSignaled, ptrace.KindStopped, ptrace.KindStillAlive:
		// continue
	}

	return &Step{
		Instr: raw[:inst.Len],
		Regs:  regs,
		Hints: hints,
	}, nil
}

// stage1Hints enumerates the decoded instruction's declared memory uses and
// produces the hints spec.md §4.2's "Stage-1 hints" step describes: Read
// hints fully populated before the single-step, Write hints recorded as
// zero placeholders. It returns the indices of write-direction hints, which
// stage2Hints must revisit.
func (tc *Tracee) stage1Hints(inst *decoder.Instruction, rip uint64) ([]MemoryHint, []int, error) {
	var hints []MemoryHint
	var writeIdx []int

	valueOf := tc.regs.ValueOf

	for _, use := range inst.Uses {
		widthBytes, err := use.Width()
		if err != nil {
			if tc.config.IgnoreUnsupportedMemops {
				tc.Diag.Warning(diag.At(tc.pt.PID, rip), fmt.Sprintf("skipping unsupported memory size: %v", err))
				continue
			}
			return nil, nil, fmt.Errorf("tracer: unsupported memory size at %#x: %w", rip, err)
		}
		width, err := NewMemoryWidth(widthBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("tracer: %w", err)
		}

		dirs, err := use.Access.Directions()
		if err != nil {
			return nil, nil, fmt.Errorf("tracer: unsupported memory access kind at %#x: %w", rip, err)
		}

		addr, err := use.Address(valueOf, tc.config.Bitness, rip, inst.Len)
		if err != nil {
			return nil, nil, tc.fault(fmt.Errorf("tracer: computing effective address at %#x: %w", rip, err))
		}

		for _, dir := range dirs {
			switch dir {
			case decoder.DirRead:
				buf := make([]byte, widthBytes)
				if _, err := tc.pt.ReadMemory(addr, buf); err != nil {
					return nil, nil, tc.fault(fmt.Errorf("tracer: reading stage-1 data at %#x: %w", addr, err))
				}
				hints = append(hints, MemoryHint{
					Address:   addr,
					Direction: DirectionRead,
					Width:     width,
					Data:      capData(buf, widthBytes),
				})
			case decoder.DirWrite:
				writeIdx = append(writeIdx, len(hints))
				hints = append(hints, MemoryHint{
					Address:   addr,
					Direction: DirectionWrite,
					Width:     width,
					Data:      make([]byte, minInt(widthBytes, 4)),
				})
			}
		}
	}

	return hints, writeIdx, nil
}

// stage2Hints re-reads memory at every write hint's address after the
// single-step (and the 1ms settle sleep the caller already performed),
// filling in the observed value.
func (tc *Tracee) stage2Hints(hints []MemoryHint, writeIdx []int) error {
	for _, idx := range writeIdx {
		h := &hints[idx]
		buf := make([]byte, int(h.Width))
		if _, err := tc.pt.ReadMemory(h.Address, buf); err != nil {
			return tc.fault(fmt.Errorf("tracer: reading stage-2 data at %#x: %w", h.Address, err))
		}
		h.Data = capData(buf, int(h.Width))
	}
	return nil
}

// fault implements spec.md §4.2's "Faulting reads" rule: if debug_on_fault
// is set, detach the tracee leaving it stopped for inspection before
// returning the error.
func (tc *Tracee) fault(err error) error {
	if tc.config.DebugOnFault {
		if detachErr := tc.pt.DetachStopped(); detachErr != nil {
			return errors.Join(err, fmt.Errorf("tracer: detaching on fault: %w", detachErr))
		}
	}
	return err
}

func capData(buf []byte, width int) []byte {
	n := width
	if n > 4 {
		n = 4
	}
	return buf[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package tracer

import (
	"fmt"

	"github.com/keurnel/mttn/internal/diag"
	"github.com/keurnel/mttn/internal/procmaps"
	"github.com/keurnel/mttn/internal/ptrace"
)

// Tracer is the configuration object spec.md §4.4 names: it spawns or
// attaches a tracee under the debug protocol and produces a Tracee
// controller bound to that process. Exactly one of ProgramPath or
// AttachPID must be set; the command-line layer enforces this, not this
// type.
type Tracer struct {
	Config

	ProgramPath string
	Argv        []string
	AttachPID   int
	DisableASLR bool
}

// Trace spawns or attaches the configured process, installs
// PTRACE_O_TRACEEXIT, builds its executable-segment map, and returns a
// Tracee controller bound to it.
func (t *Tracer) Trace() (*Tracee, error) {
	pt, err := t.acquire()
	if err != nil {
		return nil, err
	}

	if err := pt.SetTraceExit(); err != nil {
		return nil, err
	}

	execMap, err := procmaps.Parse(pt.PID, pt.ReadMemory)
	if err != nil {
		return nil, fmt.Errorf("tracer: building executable map for %d: %w", pt.PID, err)
	}

	log := diag.NewLog()
	log.SetStage("trace")

	return &Tracee{
		pt:            pt,
		executableMap: execMap,
		config:        t.Config,
		Diag:          log,
	}, nil
}

func (t *Tracer) acquire() (*ptrace.Tracee, error) {
	if t.ProgramPath != "" {
		return ptrace.Spawn(t.ProgramPath, t.Argv, t.DisableASLR)
	}
	return ptrace.Attach(t.AttachPID)
}

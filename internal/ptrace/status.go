package ptrace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies a wait4(2) status the way spec.md's per-step algorithm
// dispatches on it after each single-step.
type Kind int

const (
	KindExited Kind = iota
	KindSignaled
	KindStopped
	KindStillAlive
	KindTraceExit
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindExited:
		return "Exited"
	case KindSignaled:
		return "Signaled"
	case KindStopped:
		return "Stopped"
	case KindStillAlive:
		return "StillAlive"
	case KindTraceExit:
		return "TraceExit"
	default:
		return "Other"
	}
}

// Status is the classified result of one Wait call.
type Status struct {
	Kind       Kind
	ExitStatus int
	Signal     unix.Signal
}

func (s Status) String() string {
	switch s.Kind {
	case KindExited:
		return fmt.Sprintf("Exited(%d)", s.ExitStatus)
	case KindSignaled:
		return fmt.Sprintf("Signaled(%v)", s.Signal)
	case KindStopped, KindTraceExit:
		return fmt.Sprintf("%s(%v)", s.Kind, s.Signal)
	default:
		return s.Kind.String()
	}
}

// ptraceEventExit is the ptrace event code of a PTRACE_O_TRACEEXIT-induced
// stop, which unix.WaitStatus.TrapCause reports for a SIGTRAP event stop.
const ptraceEventExit = unix.PTRACE_EVENT_EXIT

func classify(ws unix.WaitStatus) Status {
	switch {
	case ws.Exited():
		return Status{Kind: KindExited, ExitStatus: ws.ExitStatus()}
	case ws.Signaled():
		return Status{Kind: KindSignaled, Signal: ws.Signal()}
	case ws.Stopped():
		if ws.TrapCause() == ptraceEventExit {
			return Status{Kind: KindTraceExit, Signal: ws.StopSignal()}
		}
		return Status{Kind: KindStopped, Signal: ws.StopSignal()}
	case ws.Continued():
		return Status{Kind: KindStillAlive}
	default:
		return Status{Kind: KindOther}
	}
}

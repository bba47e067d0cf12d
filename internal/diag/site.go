package diag

import "fmt"

// Site identifies the tracee and instruction pointer a diagnostic entry
// refers to. It is a value type — safe to copy and compare.
type Site struct {
	pid  int
	rip  uint64
}

// At creates a Site for the given pid and instruction pointer.
func At(pid int, rip uint64) Site {
	return Site{pid: pid, rip: rip}
}

// PID returns the traced process id.
func (s Site) PID() int { return s.pid }

// RIP returns the instruction pointer at the time of the entry.
func (s Site) RIP() uint64 { return s.rip }

// String returns a human-readable representation of the site.
// Format: "pid<N>@0x<rip>".
func (s Site) String() string {
	return fmt.Sprintf("pid%d@%#x", s.pid, s.rip)
}

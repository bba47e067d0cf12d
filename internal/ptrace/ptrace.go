// Package ptrace wraps golang.org/x/sys/unix's ptrace(2) and wait4(2)
// bindings into the debug-protocol oracle the tracer package builds on:
// spawn-and-stop, attach, set-option-trace-exit, read-registers,
// single-step, detach-with-signal, wait-for-status, and remote-memory
// reads via process_vm_readv(2).
package ptrace

import (
	"fmt"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/keurnel/mttn/architecture/x86_64"
)

// Tracee is a debug-attached process: either one this package spawned, or
// an existing process this package attached to.
type Tracee struct {
	PID int

	cmd      *exec.Cmd // nil when attached to an existing process
	attached bool
}

// Spawn starts program with argv under ptrace and leaves it stopped at its
// first instruction (the post-execve SIGTRAP every PTRACE_TRACEME child
// delivers). When disableASLR is set, the child's personality is changed to
// disable address-space layout randomization before the exec; Linux
// preserves personality flags across fork, so this affects the spawned
// program itself.
func Spawn(program string, argv []string, disableASLR bool) (*Tracee, error) {
	cmd := exec.Command(program, argv...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if disableASLR {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		old, err := unix.Personality(0xffffffff) // 0xffffffff (PER_QUERY) reads without changing
		if err != nil {
			return nil, fmt.Errorf("ptrace: reading personality: %w", err)
		}
		if _, err := unix.Personality(old | unix.ADDR_NO_RANDOMIZE); err != nil {
			return nil, fmt.Errorf("ptrace: disabling ASLR: %w", err)
		}
		defer unix.Personality(old)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ptrace: spawning %s: %w", program, err)
	}

	var status unix.WaitStatus
	pid := cmd.Process.Pid
	if _, err := unix.Wait4(pid, &status, 0, nil); err != nil {
		return nil, fmt.Errorf("ptrace: waiting for initial exec-stop: %w", err)
	}
	if !status.Stopped() {
		return nil, fmt.Errorf("ptrace: child %d did not stop after exec (status %v)", pid, status)
	}

	return &Tracee{PID: pid, cmd: cmd}, nil
}

// Attach attaches to an already-running process by PID.
func Attach(pid int) (*Tracee, error) {
	if err := unix.PtraceAttach(pid); err != nil {
		return nil, fmt.Errorf("ptrace: attaching to %d: %w", pid, err)
	}

	var status unix.WaitStatus
	if _, err := unix.Wait4(pid, &status, 0, nil); err != nil {
		return nil, fmt.Errorf("ptrace: waiting for attach-stop: %w", err)
	}

	return &Tracee{PID: pid, attached: true}, nil
}

// SetTraceExit installs PTRACE_O_TRACEEXIT, which stops the tracee once
// more right before it finally exits, giving the controller one last
// inspection opportunity.
func (t *Tracee) SetTraceExit() error {
	if err := unix.PtraceSetOptions(t.PID, unix.PTRACE_O_TRACEEXIT); err != nil {
		return fmt.Errorf("ptrace: setting PTRACE_O_TRACEEXIT on %d: %w", t.PID, err)
	}
	return nil
}

// Registers reads the tracee's current general-purpose register snapshot.
func (t *Tracee) Registers() (x86_64.RegisterFile, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.PID, &regs); err != nil {
		return x86_64.RegisterFile{}, fmt.Errorf("ptrace: reading registers of %d: %w", t.PID, err)
	}
	return fromPtraceRegs(regs), nil
}

func fromPtraceRegs(r unix.PtraceRegs) x86_64.RegisterFile {
	return x86_64.RegisterFile{
		Rax: r.Rax, Rbx: r.Rbx, Rcx: r.Rcx, Rdx: r.Rdx,
		Rsi: r.Rsi, Rdi: r.Rdi, Rsp: r.Rsp, Rbp: r.Rbp,
		R8: r.R8, R9: r.R9, R10: r.R10, R11: r.R11,
		R12: r.R12, R13: r.R13, R14: r.R14, R15: r.R15,
		Rip: r.Rip, Rflags: r.Eflags,
		FsBase: r.Fs_base, GsBase: r.Gs_base,
	}
}

// ReadMemory reads len(buf) bytes from the tracee's address space starting
// at addr, via process_vm_readv(2).
func (t *Tracee) ReadMemory(addr uint64, buf []byte) (int, error) {
	local := []unix.Iovec{{Base: &buf[0], Len: uint64(len(buf))}}
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}

	n, err := unix.ProcessVMReadv(t.PID, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("ptrace: reading %d bytes of %d @ %#x: %w", len(buf), t.PID, addr, err)
	}
	return n, nil
}

// SingleStep resumes the tracee for exactly one instruction.
func (t *Tracee) SingleStep() error {
	if err := unix.PtraceSingleStep(t.PID); err != nil {
		return fmt.Errorf("ptrace: single-stepping %d: %w", t.PID, err)
	}
	return nil
}

// Wait blocks until the tracee's status changes and classifies the result.
func (t *Tracee) Wait() (Status, error) {
	var ws unix.WaitStatus
	if _, err := unix.Wait4(t.PID, &ws, 0, nil); err != nil {
		return Status{}, fmt.Errorf("ptrace: waiting on %d: %w", t.PID, err)
	}
	return classify(ws), nil
}

// DetachWithSignal detaches from the tracee, optionally delivering sig as
// it resumes (PTRACE_DETACH's data argument). Used on the debug_on_fault
// path to stop the tracee in place (with unix.SIGSTOP) for inspection.
func (t *Tracee) DetachWithSignal(sig unix.Signal) error {
	if sig == 0 {
		if err := unix.PtraceDetach(t.PID); err != nil {
			return fmt.Errorf("ptrace: detaching from %d: %w", t.PID, err)
		}
		return nil
	}
	if err := ptraceDetachWithSignal(t.PID, int(sig)); err != nil {
		return fmt.Errorf("ptrace: detaching from %d with signal %d: %w", t.PID, sig, err)
	}
	return nil
}

// DetachStopped detaches the tracee leaving it stopped (SIGSTOP), for the
// debug_on_fault path: the tracee is left in place for inspection rather
// than resumed.
func (t *Tracee) DetachStopped() error {
	return t.DetachWithSignal(unix.SIGSTOP)
}

// ptraceDetachWithSignal issues PTRACE_DETACH directly, since
// unix.PtraceDetach always passes a zero signal.
func ptraceDetachWithSignal(pid int, sig int) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_DETACH, uintptr(pid), 0, uintptr(sig), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

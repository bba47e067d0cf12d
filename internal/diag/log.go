package diag

import "sync"

// Log is a passive, append-only accumulator of diagnostic entries gathered
// while a Tracee runs. It is thread-safe for concurrent writes, though the
// tracer core is single-threaded by design — the safety exists so a CLI
// layer can drain entries from a separate goroutine (e.g. a progress
// reporter) without coordinating with the trace loop.
//
// Create a Log exclusively through NewLog(). Pass it by reference — every
// stage of the controller records into the same log.
type Log struct {
	stage   string
	entries []*Entry
	mu      sync.Mutex
}

// NewLog is the sole constructor.
func NewLog() *Log {
	return &Log{entries: make([]*Entry, 0)}
}

// SetStage sets the current controller stage. Subsequent entries are tagged
// with this stage until it is changed again.
func (l *Log) SetStage(name string) {
	l.mu.Lock()
	l.stage = name
	l.mu.Unlock()
}

// Stage returns the current controller stage name.
func (l *Log) Stage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stage
}

func (l *Log) record(severity string, site Site, message string) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		severity: severity,
		stage:    l.stage,
		message:  message,
		site:     site,
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Error records an entry with severity "error".
func (l *Log) Error(site Site, message string) *Entry {
	return l.record(SeverityError, site, message)
}

// Warning records an entry with severity "warning".
func (l *Log) Warning(site Site, message string) *Entry {
	return l.record(SeverityWarning, site, message)
}

// Info records an entry with severity "info".
func (l *Log) Info(site Site, message string) *Entry {
	return l.record(SeverityInfo, site, message)
}

// Trace records an entry with severity "trace".
func (l *Log) Trace(site Site, message string) *Entry {
	return l.record(SeverityTrace, site, message)
}

// Entries returns all recorded entries in insertion order.
func (l *Log) Entries() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]*Entry, len(l.entries))
	copy(result, l.entries)
	return result
}

// Warnings returns only entries with severity "warning".
func (l *Log) Warnings() []*Entry {
	return l.filter(SeverityWarning)
}

// HasErrors returns true if at least one "error" entry exists.
func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the total number of entries.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) filter(severity string) []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []*Entry
	for _, e := range l.entries {
		if e.severity == severity {
			result = append(result, e)
		}
	}
	return result
}

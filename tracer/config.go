package tracer

// Config is the tracee controller's configuration: the scalars spec.md §4.2
// and §4.4 name. It is built directly from CLI flags by the command layer
// and never mutated once a Tracee is constructed.
type Config struct {
	Bitness                 int
	IgnoreUnsupportedMemops bool
	DebugOnFault            bool
}

// Package diag provides a passive, append-only data structure that
// accumulates diagnostic entries (errors, warnings, info, traces) as a trace
// session progresses. It does not perform I/O or formatting — the CLI layer
// consumes the entries to produce output.
package diag

// Package cmd implements mttn's command-line surface: a single command
// that spawns or attaches a tracee, runs it to completion (or a decode
// failure) under the tracer core, and emits the resulting trace as JSON or
// Tiny86.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/keurnel/mttn/internal/diag"
	"github.com/keurnel/mttn/internal/jsonout"
	"github.com/keurnel/mttn/internal/logging"
	"github.com/keurnel/mttn/internal/tiny86"
	"github.com/keurnel/mttn/tracer"
)

var (
	flagFormat      string
	flagMode        int
	flagIgnoreMemop bool
	flagDebugFault  bool
	flagDisableASLR bool
	flagAttach      int
)

var rootCmd = &cobra.Command{
	Use:   "mttn <program> [-- args...]",
	Short: "Deterministic instruction-granular x86 execution tracer",
	Long: `mttn single-steps a user-mode x86 process under ptrace, reconstructs
the concrete memory operations each instruction performs, and emits the
resulting trace as JSON or as a fixed-width Tiny86 binary stream.`,
	Args: cobra.ArbitraryArgs,
	RunE: runTrace,
	// Execute prints the one diagnostic line itself.
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits the process with the code
// spec.md §6 specifies: 0 on success, 1 on any error, with a single-line
// diagnostic on stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&flagFormat, "format", "F", "json", "output format: json or tiny86")
	flags.IntVarP(&flagMode, "mode", "m", 64, "tracee bitness: 32 or 64")
	flags.BoolVarP(&flagIgnoreMemop, "ignore-unsupported-memops", "I", false, "skip (with a warning) memory uses of an unsupported size instead of failing")
	flags.BoolVarP(&flagDebugFault, "debug-on-fault", "d", false, "on a memory-read fault, detach the tracee stopped instead of killing it")
	flags.BoolVarP(&flagDisableASLR, "disable-aslr", "A", false, "disable address-space layout randomization for a newly spawned tracee")
	flags.IntVarP(&flagAttach, "attach", "a", 0, "attach to an already-running PID instead of spawning a program")
}

func runTrace(cmd *cobra.Command, args []string) error {
	logger := logging.New()

	if flagMode != 32 && flagMode != 64 {
		return fmt.Errorf("mttn: --mode must be 32 or 64, got %d", flagMode)
	}
	if flagFormat != "json" && flagFormat != "tiny86" {
		return fmt.Errorf("mttn: --format must be json or tiny86, got %q", flagFormat)
	}
	if flagAttach != 0 && len(args) > 0 {
		return fmt.Errorf("mttn: --attach is mutually exclusive with a tracee program path")
	}
	if flagAttach == 0 && len(args) == 0 {
		return fmt.Errorf("mttn: a tracee program path or --attach PID is required")
	}

	t := &tracer.Tracer{
		Config: tracer.Config{
			Bitness:                 flagMode,
			IgnoreUnsupportedMemops: flagIgnoreMemop,
			DebugOnFault:            flagDebugFault,
		},
		AttachPID:   flagAttach,
		DisableASLR: flagDisableASLR,
	}
	if flagAttach == 0 {
		t.ProgramPath = args[0]
		t.Argv = args[1:]
	}

	logger.Debugf("starting trace: mode=%d format=%s attach=%d", flagMode, flagFormat, flagAttach)

	tc, err := t.Trace()
	if err != nil {
		return fmt.Errorf("mttn: %w", err)
	}

	err = emit(cmd.OutOrStdout(), tc, flagFormat, logger)
	drainDiagnostics(logger, tc.Diag)
	return err
}

func emit(w io.Writer, tc *tracer.Tracee, format string, logger *logrus.Logger) error {
	switch format {
	case "tiny86":
		return emitTiny86(w, tc)
	default:
		return emitJSON(w, tc)
	}
}

func emitJSON(w io.Writer, tc *tracer.Tracee) error {
	var steps []tracer.Step
	for {
		step, err := tc.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		steps = append(steps, *step)
	}
	return jsonout.Encode(w, steps)
}

func emitTiny86(w io.Writer, tc *tracer.Tracee) error {
	for {
		step, err := tc.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		enc, err := tiny86.EncodeStep(*step)
		if err != nil {
			return err
		}
		if _, err := w.Write(enc); err != nil {
			return err
		}
	}
}

func drainDiagnostics(logger *logrus.Logger, log *diag.Log) {
	for _, e := range log.Entries() {
		switch e.Severity() {
		case diag.SeverityError:
			logger.Error(e.String())
		case diag.SeverityWarning:
			logger.Warn(e.String())
		case diag.SeverityTrace:
			logger.Trace(e.String())
		default:
			logger.Info(e.String())
		}
	}
}

// Package logging configures the process-wide logrus sink spec.md §6
// delegates to "the logging collaborator": a single leveled, field-
// structured logger whose verbosity is controlled by the MTTN_LOG
// environment variable.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// EnvVar is the standard environment variable spec.md §6 refers to as
// controlling logging verbosity.
const EnvVar = "MTTN_LOG"

// New builds a logrus.Logger configured from MTTN_LOG. Recognized values
// are logrus's own level names (trace, debug, info, warning, error, fatal,
// panic); an unset or unrecognized value defaults to info.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stderr

	level, err := logrus.ParseLevel(os.Getenv(EnvVar))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

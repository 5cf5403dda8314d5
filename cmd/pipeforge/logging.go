package main

import (
	"os"

	"github.com/charmbracelet/log"
)

// newLogger builds the run's structured logger. DEBUG_MODE only gates
// whether settings.Context.Report emits SeverityDebug messages; the
// logger itself is always created at debug level so those calls are never
// silently dropped by the handler underneath the severity wrapper.
func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.DebugLevel,
		Prefix:          appName,
	})
}

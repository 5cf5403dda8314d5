package collab

import (
	"github.com/charmbracelet/log"

	"pipeforge/internal/settings"
)

// LoggingHostControl is the CLI-host implementation of settings.HostControl.
// Unlike a CI server plugin, a standalone CLI run has no build record to
// rename or terminate neutrally; it logs the intent and lets cmd/pipeforge
// translate ResultParametersUpdated into the process exit code instead.
type LoggingHostControl struct {
	Logger *log.Logger
}

func (h *LoggingHostControl) InstallParameters(schema []settings.Param) error {
	names := make([]string, len(schema))
	for i, p := range schema {
		names[i] = p.Name
	}
	h.Logger.Info("installing refreshed parameter declaration", "parameters", names)
	return nil
}

func (h *LoggingHostControl) RenameBuild(name string) error {
	h.Logger.Info("renaming build", "name", name)
	return nil
}

func (h *LoggingHostControl) TerminateNeutral(message string) error {
	h.Logger.Warn(message)
	return nil
}

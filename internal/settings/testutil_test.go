package settings

import (
	"io"

	"github.com/charmbracelet/log"
)

func strPtr(s string) *string { return &s }

// newTestContext returns a Context with a discard logger, suitable for
// tests that only care about Report's return value and side effects on
// env/built-ins, not the rendered log lines.
func newTestContext(env Environment, debugMode, dryRun bool) *Context {
	return NewContext(env, log.New(io.Discard), debugMode, dryRun)
}

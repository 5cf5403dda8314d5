package settings

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Severity is the three-level error classification. A single
// Context.Report call is the only place severity is translated into a log
// level and a pass/fail outcome; callers never branch on severity
// themselves.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityWarning
	SeverityError
)

// Context is the run-scoped mutable state shared across the whole walk:
// the environment map, the built-ins (report tables plus cross-cutting
// state), and the logger. Both maps share a single mutex. No two actions
// in a correctly-written pipeline target overlapping keys, so the
// guarantee needed is safe publication of each key's final value, not
// fine-grained locking.
type Context struct {
	mu          sync.Mutex
	env         Environment
	builtIns    BuiltIns
	logger      *log.Logger
	debugMode   bool
	dryRun      bool
	failReasons []string
}

// NewContext returns a Context seeded with env, normally the host
// environment plus the current build parameters.
func NewContext(env Environment, logger *log.Logger, debugMode, dryRun bool) *Context {
	if env == nil {
		env = Environment{}
	}
	return &Context{
		env:       env,
		logger:    logger,
		debugMode: debugMode,
		dryRun:    dryRun,
		builtIns:  BuiltIns{Extra: map[string]string{}},
	}
}

// DryRun reports whether the run is executing in dry-run mode.
func (c *Context) DryRun() bool { return c.dryRun }

// DebugMode reports whether DEBUG_MODE is set for this run.
func (c *Context) DebugMode() bool { return c.debugMode }

// Logger returns the run's structured logger.
func (c *Context) Logger() *log.Logger { return c.logger }

// GetEnv returns the current value of key and whether it is set.
func (c *Context) GetEnv(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.env[key]
	return v, ok
}

// SetEnv sets key in the environment.
func (c *Context) SetEnv(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env[key] = value
}

// MergeEnv copies every entry of m into the environment, overwriting any
// existing keys. Used by script actions' "as-part-of-pipeline" return map.
func (c *Context) MergeEnv(m map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		c.env[k] = v
	}
}

// EnvSnapshot returns an independent copy of the current environment,
// suitable for handing to the templater without holding the lock.
func (c *Context) EnvSnapshot() Environment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env.Clone()
}

// MergeExtra copies m into the built-ins' cross-cutting Extra map, the
// other half of a script action's "as-part-of-pipeline" return value.
func (c *Context) MergeExtra(m map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		c.builtIns.Extra[k] = v
	}
}

// AppendActionReport appends a row to the per-action status table.
func (c *Context) AppendActionReport(row ActionReportRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtIns.ActionReport = append(c.builtIns.ActionReport, row)
}

// AppendStageReport appends a row to the per-stage status table.
func (c *Context) AppendStageReport(row StageReportRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtIns.StageReport = append(c.builtIns.StageReport, row)
}

// SetRemoteRunnerInstallation records the currently-configured remote
// runner installation name, consulted by the playbook/collections
// dispatchers.
func (c *Context) SetRemoteRunnerInstallation(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtIns.RemoteRunnerInstallation = name
}

func (c *Context) remoteRunnerInstallation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builtIns.RemoteRunnerInstallation
}

// SetLastResult records the run's current overall result.
func (c *Context) SetLastResult(r BuildResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtIns.LastResult = r
}

// LastResult returns the run's current overall result.
func (c *Context) LastResult() BuildResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builtIns.LastResult
}

// BuiltInsSnapshot returns an independent copy of the built-ins, suitable
// for rendering the status report after the walk completes.
func (c *Context) BuiltInsSnapshot() BuiltIns {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := BuiltIns{
		RemoteRunnerInstallation: c.builtIns.RemoteRunnerInstallation,
		LastResult:               c.builtIns.LastResult,
		Extra:                    make(map[string]string, len(c.builtIns.Extra)),
	}
	out.ActionReport = append(out.ActionReport, c.builtIns.ActionReport...)
	out.StageReport = append(out.StageReport, c.builtIns.StageReport...)
	for k, v := range c.builtIns.Extra {
		out.Extra[k] = v
	}
	return out
}

// Report logs msg at the level implied by sev and returns whether the
// caller's pass/fail state should remain true: debug never changes it
// (and is suppressed entirely unless DebugMode), warning never changes
// it, error always returns false.
func (c *Context) Report(sev Severity, msg string, kvs ...any) bool {
	switch sev {
	case SeverityDebug:
		if c.debugMode {
			c.logger.Debug(msg, kvs...)
		}
		return true
	case SeverityWarning:
		c.logger.Warn(msg, kvs...)
		return true
	default:
		c.logger.Error(msg, kvs...)
		c.mu.Lock()
		c.failReasons = append(c.failReasons, msg)
		c.mu.Unlock()
		return false
	}
}

// FailReason joins every error-severity message reported so far into the
// accumulated reason text the final FAILED log line carries.
func (c *Context) FailReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.failReasons, "; ")
}

// Package settings implements the pipeline settings engine: schema
// validation, parameter injection and resolution, string templating, and
// the stage/action walk with its typed dispatcher.
package settings

import "regexp"

// IdentifierRe is the POSIX shell identifier pattern that every parameter
// name, and every $VAR reference resolved by the templater, must satisfy.
var IdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParamType is the declared or inferred type of a build parameter.
type ParamType string

const (
	ParamUnset    ParamType = ""
	ParamString   ParamType = "string"
	ParamText     ParamType = "text"
	ParamPassword ParamType = "password"
	ParamBoolean  ParamType = "boolean"
	ParamChoice   ParamType = "choice"
)

// RegexReplace rewrites a resolved parameter value by substituting matches
// of Regex with To. An empty To erases matches instead of replacing them.
type RegexReplace struct {
	Regex string
	To    string
}

// OnEmpty controls what happens to a required parameter left unset by the
// current build: Assign supplies a fallback (a literal, or a "$VAR"
// reference copied from another resolved value), Fail aborts resolution
// when no assignment is available (default true), and Warn logs regardless
// of the outcome.
type OnEmpty struct {
	Assign string
	Fail   bool
	Warn   bool
}

// Param is a single build parameter declaration, either required or
// optional. Regex is stored as an ordered sequence even when the YAML form
// was a single string, so resolution always concatenates uniformly.
type Param struct {
	Name         string
	Type         ParamType
	Default      *string
	Choices      []string
	Description  string
	Trim         bool
	Regex        []string
	RegexReplace *RegexReplace
	OnEmpty      *OnEmpty
}

// ParameterGroups is the `parameters.required` / `parameters.optional`
// split from the YAML document.
type ParameterGroups struct {
	Required []Param
	Optional []Param
}

// All returns required then optional parameters as a single slice, in that
// order, the order the validator and resolver both iterate in.
func (g ParameterGroups) All() []Param {
	out := make([]Param, 0, len(g.Required)+len(g.Optional))
	out = append(out, g.Required...)
	out = append(out, g.Optional...)
	return out
}

// NodeSpec selects the worker host an action runs on. Any is true for a
// bare YAML null (any available host). Exactly one of Name or Label is set
// otherwise; Pattern true means that value is a glob resolved against the
// live node registry at action-processing time.
type NodeSpec struct {
	Any     bool
	Name    string
	Label   string
	Pattern bool
}

// Action is one entry in a stage's action list. ActionRef names the
// action-link to dispatch; the rest are structural/behavioral modifiers
// applied by the walker before and after dispatch.
type Action struct {
	ActionRef      string
	Node           *NodeSpec
	Dir            string
	BuildName      string
	BeforeMessage  string
	AfterMessage   string
	SuccessMessage string
	FailMessage    string
	IgnoreFail     bool
	StopOnFail     bool
	SuccessOnly    bool
	FailOnly       bool
}

// Stage is an ordered, named group of actions, run sequentially or
// concurrently depending on Parallel.
type Stage struct {
	Name     string
	Parallel bool
	Actions  []Action
}

// ActionLinkKind is the discriminator key identifying which of the nine
// typed operations an ActionLink performs.
type ActionLinkKind string

const (
	LinkRepoURL     ActionLinkKind = "repo_url"
	LinkCollections ActionLinkKind = "collections"
	LinkPlaybook    ActionLinkKind = "playbook"
	LinkPipeline    ActionLinkKind = "pipeline"
	LinkStash       ActionLinkKind = "stash"
	LinkUnstash     ActionLinkKind = "unstash"
	LinkArtifacts   ActionLinkKind = "artifacts"
	LinkScript      ActionLinkKind = "script"
	LinkReport      ActionLinkKind = "report"
)

// ActionLinkOrder is the precedence order for resolving an ActionLink
// that (incorrectly) carries more than one discriminator key: the first
// kind present in this order is executed and a warning names the rest.
var ActionLinkOrder = []ActionLinkKind{
	LinkRepoURL, LinkCollections, LinkPlaybook, LinkPipeline,
	LinkStash, LinkUnstash, LinkArtifacts, LinkScript, LinkReport,
}

// CloneRepo is the `repo_url` action-link body.
type CloneRepo struct {
	RepoURL     string
	RepoBranch  string // default "main"
	Directory   string
	Credentials string
}

// InstallCollections is the `collections` action-link body.
type InstallCollections struct {
	Collections []string
}

// RunPlaybook is the `playbook` action-link body.
type RunPlaybook struct {
	Playbook  string // name into PipelineSettings.Playbooks
	Inventory string // name into PipelineSettings.Inventories, default "default"
}

// DownstreamParam is one entry of a `pipeline` action-link's Parameters list.
type DownstreamParam struct {
	Name  string
	Type  string
	Value string
}

// CopyArtifactsSpec is the optional post-dispatch artifact copy for a
// `pipeline` action-link.
type CopyArtifactsSpec struct {
	Filter          string
	Excludes        string
	TargetDirectory string
	Optional        bool
	Flatten         bool
	Fingerprint     bool
}

// RunDownstream is the `pipeline` action-link body.
type RunDownstream struct {
	Pipeline      string
	Parameters    []DownstreamParam
	Propagate     bool // default true
	Wait          bool // default true
	CopyArtifacts *CopyArtifactsSpec
}

// StashFiles is the `stash` action-link body.
type StashFiles struct {
	Stash           string
	Includes        string
	Excludes        string
	DefaultExcludes bool // default true
	AllowEmpty      bool
}

// UnstashFiles is the `unstash` action-link body.
type UnstashFiles struct {
	Unstash string
}

// PublishArtifacts is the `artifacts` action-link body.
type PublishArtifacts struct {
	Artifacts   string
	Excludes    string
	AllowEmpty  bool
	Fingerprint bool
}

// RunScript is the `script` action-link body. Exactly one execution mode is
// used: a non-empty Script is run through a shell and Jenkins is then not
// run; otherwise Jenkins gets the "as-part-of-pipeline" treatment whose
// returned map merges into env and built-ins. Pipeline is decoded but does
// not select the mode.
type RunScript struct {
	Script   string
	Jenkins  string
	Pipeline bool
}

// SendReport is the `report` action-link body; Report selects "email" or
// "mattermost" and determines which of the remaining fields are mandatory.
type SendReport struct {
	Report  string
	To      string
	URL     string
	Text    string
	ReplyTo string
	Subject string
	Body    string
}

// ActionLink is a tagged variant over the nine typed dispatch operations.
// Exactly the field named by Kind is non-nil.
type ActionLink struct {
	Kind ActionLinkKind

	RepoURL     *CloneRepo
	Collections *InstallCollections
	Playbook    *RunPlaybook
	Pipeline    *RunDownstream
	Stash       *StashFiles
	Unstash     *UnstashFiles
	Artifacts   *PublishArtifacts
	Script      *RunScript
	Report      *SendReport
}

// PipelineSettings is the full tree parsed from the settings YAML file.
type PipelineSettings struct {
	Parameters  ParameterGroups
	Stages      []Stage
	Actions     map[string]ActionLink
	Playbooks   map[string]string
	Inventories map[string]string
	Scripts     map[string]string

	// Warnings accumulates non-fatal parse-time diagnostics (e.g. an
	// action-link mapping naming more than one discriminator key) so the
	// caller can replay them through a Context once one exists.
	Warnings []string
}

// Environment is the mutable string→string map owned by a run: seeded from
// the host environment and build parameters, then mutated by the resolver
// and by script actions' returned values.
type Environment map[string]string

// Clone returns an independent copy of the environment.
func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// BuildResult is the terminal state of a run, reported at exit.
type BuildResult string

const (
	ResultParametersUpdated BuildResult = "PARAMETERS_UPDATED"
	ResultDryRunCompleted   BuildResult = "DRY_RUN_COMPLETED"
	ResultSucceeded         BuildResult = "SUCCEEDED"
	ResultFailed            BuildResult = "FAILED"
)

// ActionReportRow is one row of the per-action status table.
type ActionReportRow struct {
	StageName   string
	StageIndex  int
	ActionIndex int
	Pass        bool
	Detail      string // "<link>: <discriminator>"
}

// StageReportRow is one row of the per-stage status table.
type StageReportRow struct {
	Name   string
	Pass   bool
	Detail string // "<n> action(s)[ in parallel]"
}

// BuiltIns is the mutable map the spec calls the run's "built-ins": the two
// report tables plus cross-cutting run state. Guarded by Context's mutex,
// never accessed directly outside internal/settings.
type BuiltIns struct {
	ActionReport             []ActionReportRow
	StageReport              []StageReportRow
	RemoteRunnerInstallation string
	LastResult               BuildResult
	Extra                    map[string]string
}

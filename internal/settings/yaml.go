package settings

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Internal YAML parsing structs.
//
// These mirror the public settings types but carry yaml.v3 struct tags
// and handle the polymorphic fields of the schema: Param.regex (string or
// list), Param.default (any scalar), NodeSpec (string, null, or object),
// and the nine-way discriminated ActionLink. Polymorphic shapes decode
// via raw yaml.Node fields and a switch on .Kind rather than a chain of
// struct-tag tricks.
// ---------------------------------------------------------------------------

type yamlDoc struct {
	Parameters struct {
		Required []yamlParam `yaml:"required"`
		Optional []yamlParam `yaml:"optional"`
	} `yaml:"parameters"`
	Stages      []yamlStage          `yaml:"stages"`
	Actions     map[string]yaml.Node `yaml:"actions"`
	Playbooks   map[string]string    `yaml:"playbooks"`
	Inventories map[string]string    `yaml:"inventories"`
	Scripts     map[string]yaml.Node `yaml:"scripts"`
}

type yamlParam struct {
	Name         string        `yaml:"name"`
	Type         string        `yaml:"type"`
	Default      yaml.Node     `yaml:"default"`
	Choices      yaml.Node     `yaml:"choices"`
	Description  string        `yaml:"description"`
	Trim         bool          `yaml:"trim"`
	Regex        yaml.Node     `yaml:"regex"`
	RegexReplace *yamlRegexRep `yaml:"regex_replace"`
	OnEmpty      *yamlOnEmpty  `yaml:"on_empty"`
}

type yamlRegexRep struct {
	Regex string `yaml:"regex"`
	To    string `yaml:"to"`
}

type yamlOnEmpty struct {
	Assign string `yaml:"assign"`
	Fail   *bool  `yaml:"fail"`
	Warn   *bool  `yaml:"warn"`
}

type yamlStage struct {
	Name     string       `yaml:"name"`
	Parallel bool         `yaml:"parallel"`
	Actions  []yamlAction `yaml:"actions"`
}

type yamlAction struct {
	Action         string    `yaml:"action"`
	Node           yaml.Node `yaml:"node"`
	Dir            string    `yaml:"dir"`
	BuildName      string    `yaml:"build_name"`
	BeforeMessage  string    `yaml:"before_message"`
	AfterMessage   string    `yaml:"after_message"`
	SuccessMessage string    `yaml:"success_message"`
	FailMessage    string    `yaml:"fail_message"`
	IgnoreFail     bool      `yaml:"ignore_fail"`
	StopOnFail     bool      `yaml:"stop_on_fail"`
	SuccessOnly    bool      `yaml:"success_only"`
	FailOnly       bool      `yaml:"fail_only"`
}

// ParseSettings decodes the raw YAML bytes of a pipeline settings
// document into a PipelineSettings tree.
func ParseSettings(in []byte) (*PipelineSettings, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(in, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoaderFailed, err)
	}

	out := &PipelineSettings{
		Playbooks:   doc.Playbooks,
		Inventories: doc.Inventories,
		Actions:     map[string]ActionLink{},
		Scripts:     map[string]string{},
	}

	var err error
	if out.Parameters.Required, err = convertParams(doc.Parameters.Required); err != nil {
		return nil, err
	}
	if out.Parameters.Optional, err = convertParams(doc.Parameters.Optional); err != nil {
		return nil, err
	}

	if out.Stages, err = convertStages(doc.Stages); err != nil {
		return nil, err
	}

	for name, node := range doc.Actions {
		link, warning, err := convertActionLink(node)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", name, err)
		}
		if warning != "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("action %q: %s", name, warning))
		}
		if _, dup := out.Actions[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateActionLink, name)
		}
		out.Actions[name] = link
	}

	for name, node := range doc.Scripts {
		s, err := scalarString(node)
		if err != nil {
			return nil, fmt.Errorf("scripts[%s]: %w", name, err)
		}
		out.Scripts[name] = s
	}

	return out, nil
}

func convertParams(raw []yamlParam) ([]Param, error) {
	out := make([]Param, 0, len(raw))
	for _, yp := range raw {
		p := Param{
			Name:        yp.Name,
			Type:        ParamType(yp.Type),
			Description: yp.Description,
			Trim:        yp.Trim,
		}

		if yp.Default.Kind != 0 {
			s, err := scalarString(yp.Default)
			if err != nil {
				return nil, fmt.Errorf("param %q: default: %w", yp.Name, err)
			}
			p.Default = &s
		}

		if yp.Choices.Kind != 0 {
			choices, err := stringList(yp.Choices)
			if err != nil {
				return nil, fmt.Errorf("param %q: choices: %w", yp.Name, err)
			}
			p.Choices = choices
		}

		if yp.Regex.Kind != 0 {
			regexes, err := stringListOrScalar(yp.Regex)
			if err != nil {
				return nil, fmt.Errorf("param %q: regex: %w", yp.Name, err)
			}
			p.Regex = regexes
		}

		if yp.RegexReplace != nil {
			p.RegexReplace = &RegexReplace{Regex: yp.RegexReplace.Regex, To: yp.RegexReplace.To}
		}

		if yp.OnEmpty != nil {
			fail := true
			if yp.OnEmpty.Fail != nil {
				fail = *yp.OnEmpty.Fail
			}
			warn := false
			if yp.OnEmpty.Warn != nil {
				warn = *yp.OnEmpty.Warn
			}
			p.OnEmpty = &OnEmpty{Assign: yp.OnEmpty.Assign, Fail: fail, Warn: warn}
		}

		out = append(out, p)
	}
	return out, nil
}

func convertStages(raw []yamlStage) ([]Stage, error) {
	out := make([]Stage, 0, len(raw))
	for _, ys := range raw {
		actions := make([]Action, 0, len(ys.Actions))
		for _, ya := range ys.Actions {
			a := Action{
				ActionRef:      ya.Action,
				Dir:            ya.Dir,
				BuildName:      ya.BuildName,
				BeforeMessage:  ya.BeforeMessage,
				AfterMessage:   ya.AfterMessage,
				SuccessMessage: ya.SuccessMessage,
				FailMessage:    ya.FailMessage,
				IgnoreFail:     ya.IgnoreFail,
				StopOnFail:     ya.StopOnFail,
				SuccessOnly:    ya.SuccessOnly,
				FailOnly:       ya.FailOnly,
			}
			node, err := convertNodeSpec(ya.Node)
			if err != nil {
				return nil, fmt.Errorf("action %q: node: %w", ya.Action, err)
			}
			a.Node = node
			actions = append(actions, a)
		}
		out = append(out, Stage{Name: ys.Name, Parallel: ys.Parallel, Actions: actions})
	}
	return out, nil
}

// convertNodeSpec decodes the three NodeSpec forms: a bare string
// (literal node name), null (any available host), or a mapping with
// name/label/pattern.
func convertNodeSpec(node yaml.Node) (*NodeSpec, error) {
	switch node.Kind {
	case 0, yaml.AliasNode:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			return &NodeSpec{Any: true}, nil
		}
		return &NodeSpec{Name: node.Value}, nil
	case yaml.MappingNode:
		var m struct {
			Name    string `yaml:"name"`
			Label   string `yaml:"label"`
			Pattern bool   `yaml:"pattern"`
		}
		if err := node.Decode(&m); err != nil {
			return nil, err
		}
		if m.Name != "" && m.Label != "" {
			return nil, fmt.Errorf("node spec may set only one of name or label")
		}
		return &NodeSpec{Name: m.Name, Label: m.Label, Pattern: m.Pattern}, nil
	default:
		return nil, fmt.Errorf("unsupported node spec YAML kind %d", node.Kind)
	}
}

// convertActionLink decodes a map node into the single typed ActionLink
// discriminated by the first key present, in ActionLinkOrder precedence.
// When more than one discriminator key is
// present, the first in precedence order wins and a non-empty warning
// string is returned alongside the (still valid) link; this is a
// parse-time warning, not a parse failure.
func convertActionLink(node yaml.Node) (link ActionLink, warning string, err error) {
	if node.Kind != yaml.MappingNode {
		return ActionLink{}, "", fmt.Errorf("action-link must be a mapping")
	}
	present := map[string]*yaml.Node{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		present[key] = node.Content[i+1]
	}

	var chosen ActionLinkKind
	var extras []ActionLinkKind
	for _, kind := range ActionLinkOrder {
		if _, ok := present[string(kind)]; ok {
			if chosen == "" {
				chosen = kind
			} else {
				extras = append(extras, kind)
			}
		}
	}
	if chosen == "" {
		return ActionLink{}, "", ErrNoDiscriminator
	}

	link = ActionLink{Kind: chosen}
	switch chosen {
	case LinkRepoURL:
		c := CloneRepo{RepoBranch: "main"}
		c.RepoURL = valueOf(present, "repo_url")
		if v := valueOf(present, "repo_branch"); v != "" {
			c.RepoBranch = v
		}
		c.Directory = valueOf(present, "directory")
		c.Credentials = valueOf(present, "credentials")
		link.RepoURL = &c
	case LinkCollections:
		list, err := stringListOrScalar(*present["collections"])
		if err != nil {
			return ActionLink{}, "", fmt.Errorf("collections: %w", err)
		}
		link.Collections = &InstallCollections{Collections: list}
	case LinkPlaybook:
		p := RunPlaybook{Inventory: "default"}
		p.Playbook = valueOf(present, "playbook")
		if v := valueOf(present, "inventory"); v != "" {
			p.Inventory = v
		}
		link.Playbook = &p
	case LinkPipeline:
		rd, err := convertRunDownstream(present)
		if err != nil {
			return ActionLink{}, "", err
		}
		link.Pipeline = rd
	case LinkStash:
		s := StashFiles{DefaultExcludes: true}
		s.Stash = valueOf(present, "stash")
		s.Includes = valueOf(present, "includes")
		s.Excludes = valueOf(present, "excludes")
		if v, ok := present["default_excludes"]; ok {
			s.DefaultExcludes = boolOf(v)
		}
		if v, ok := present["allow_empty"]; ok {
			s.AllowEmpty = boolOf(v)
		}
		link.Stash = &s
	case LinkUnstash:
		link.Unstash = &UnstashFiles{Unstash: valueOf(present, "unstash")}
	case LinkArtifacts:
		a := PublishArtifacts{}
		a.Artifacts = valueOf(present, "artifacts")
		a.Excludes = valueOf(present, "excludes")
		if v, ok := present["allow_empty"]; ok {
			a.AllowEmpty = boolOf(v)
		}
		if v, ok := present["fingerprint"]; ok {
			a.Fingerprint = boolOf(v)
		}
		link.Artifacts = &a
	case LinkScript:
		s, err := convertRunScript(*present["script"])
		if err != nil {
			return ActionLink{}, "", fmt.Errorf("script: %w", err)
		}
		link.Script = s
	case LinkReport:
		r := SendReport{}
		r.Report = valueOf(present, "report")
		r.To = valueOf(present, "to")
		r.URL = valueOf(present, "url")
		r.Text = valueOf(present, "text")
		r.ReplyTo = valueOf(present, "reply_to")
		r.Subject = valueOf(present, "subject")
		r.Body = valueOf(present, "body")
		link.Report = &r
	}

	if len(extras) > 0 {
		warning = fmt.Sprintf("multiple discriminators %v present; using %q", extras, chosen)
	}
	return link, warning, nil
}

func convertRunDownstream(present map[string]*yaml.Node) (*RunDownstream, error) {
	rd := &RunDownstream{Propagate: true, Wait: true}
	rd.Pipeline = valueOf(present, "pipeline")
	if v, ok := present["propagate"]; ok {
		rd.Propagate = boolOf(v)
	}
	if v, ok := present["wait"]; ok {
		rd.Wait = boolOf(v)
	}
	if v, ok := present["parameters"]; ok {
		var params []struct {
			Name  string `yaml:"name"`
			Type  string `yaml:"type"`
			Value string `yaml:"value"`
		}
		if err := v.Decode(&params); err != nil {
			return nil, fmt.Errorf("pipeline parameters: %w", err)
		}
		for _, p := range params {
			rd.Parameters = append(rd.Parameters, DownstreamParam{Name: p.Name, Type: p.Type, Value: p.Value})
		}
	}
	if v, ok := present["copy_artifacts"]; ok {
		var ca struct {
			Filter          string `yaml:"filter"`
			Excludes        string `yaml:"excludes"`
			TargetDirectory string `yaml:"target_directory"`
			Optional        bool   `yaml:"optional"`
			Flatten         bool   `yaml:"flatten"`
			Fingerprint     bool   `yaml:"fingerprint"`
		}
		if err := v.Decode(&ca); err != nil {
			return nil, fmt.Errorf("copy_artifacts: %w", err)
		}
		rd.CopyArtifacts = &CopyArtifactsSpec{
			Filter: ca.Filter, Excludes: ca.Excludes, TargetDirectory: ca.TargetDirectory,
			Optional: ca.Optional, Flatten: ca.Flatten, Fingerprint: ca.Fingerprint,
		}
	}
	return rd, nil
}

func convertRunScript(node yaml.Node) (*RunScript, error) {
	if node.Kind == yaml.ScalarNode {
		return &RunScript{Script: node.Value}, nil
	}
	var m struct {
		Script   string `yaml:"script"`
		Jenkins  string `yaml:"jenkins"`
		Pipeline bool   `yaml:"pipeline"`
	}
	if err := node.Decode(&m); err != nil {
		return nil, err
	}
	return &RunScript{Script: m.Script, Jenkins: m.Jenkins, Pipeline: m.Pipeline}, nil
}

// ---- scalar/list coercion helpers ------------------------------------------
//
// Small helpers acting on the YAML node kind. Numeric scalars coerce to
// string; "true"/"false" coerce to boolean.

func valueOf(present map[string]*yaml.Node, key string) string {
	n, ok := present[key]
	if !ok {
		return ""
	}
	s, _ := scalarString(*n)
	return s
}

func boolOf(n *yaml.Node) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(n.Value))
	if err != nil {
		return false
	}
	return v
}

func scalarString(node yaml.Node) (string, error) {
	switch node.Kind {
	case 0:
		return "", nil
	case yaml.ScalarNode:
		return node.Value, nil
	default:
		return "", fmt.Errorf("expected a scalar, got YAML kind %d", node.Kind)
	}
}

func stringList(node yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a list, got YAML kind %d", node.Kind)
	}
	out := make([]string, 0, len(node.Content))
	for _, c := range node.Content {
		s, err := scalarString(*c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// stringListOrScalar accepts either a single scalar or a sequence of
// scalars, returning a one-element slice for the scalar case. Used for
// Param.regex and the `collections` action-link key, both of which may be
// a string or an ordered sequence of strings.
func stringListOrScalar(node yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		return stringList(node)
	default:
		return nil, fmt.Errorf("expected a scalar or list, got YAML kind %d", node.Kind)
	}
}

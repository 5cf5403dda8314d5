package settings

// gitBranchRegex is the validation pattern supplied with
// SETTINGS_GIT_BRANCH: a reasonably permissive git ref-name character
// class.
const gitBranchRegex = `^[A-Za-z0-9_./-]+$`

// BuiltinParams returns the six parameters the core always adds to a
// pipeline's schema. The caller may re-declare any of them in
// the YAML schema; a re-declaration replaces the built-in declaration as a
// whole (MergeBuiltins keeps the user's entry as written), it never removes
// the parameter.
func BuiltinParams() []Param {
	falseStr := "false"
	ansible := "ansible210"
	return []Param{
		{Name: "UPDATE_PARAMETERS", Type: ParamBoolean, Default: &falseStr,
			Description: "Force a parameter-declaration refresh even if the schema did not change."},
		{Name: "SETTINGS_GIT_BRANCH", Type: ParamString,
			Regex:       []string{gitBranchRegex},
			Description: "Branch of the settings repository to load the pipeline YAML from."},
		{Name: "NODE_NAME", Type: ParamString,
			Description: "Exact worker host name to run on."},
		{Name: "NODE_TAG", Type: ParamString, Default: &ansible,
			Description: "Worker host label to run on; takes precedence over NODE_NAME when set."},
		{Name: "DRY_RUN", Type: ParamBoolean, Default: &falseStr,
			Description: "Skip every side-effecting collaborator call; log intent and update reports only."},
		{Name: "DEBUG_MODE", Type: ParamBoolean, Default: &falseStr,
			Description: "Emit debug-severity diagnostics."},
	}
}

// MergeBuiltins prepends the built-in parameters to schema, skipping any
// name the schema (required or optional) already declares so a user
// re-declaration wins over the built-in default.
func MergeBuiltins(schema ParameterGroups) ParameterGroups {
	declared := map[string]bool{}
	for _, p := range schema.Required {
		declared[p.Name] = true
	}
	for _, p := range schema.Optional {
		declared[p.Name] = true
	}

	var merged ParameterGroups
	for _, b := range BuiltinParams() {
		if !declared[b.Name] {
			merged.Optional = append(merged.Optional, b)
		}
	}
	merged.Required = append(merged.Required, schema.Required...)
	merged.Optional = append(merged.Optional, schema.Optional...)
	return merged
}

// SelectNode resolves the NODE_TAG/NODE_NAME precedence: NODE_TAG wins
// when set, else NODE_NAME, else any available host.
func SelectNode(env Environment) NodeSpec {
	if tag, ok := env["NODE_TAG"]; ok && tag != "" {
		return NodeSpec{Label: tag}
	}
	if name, ok := env["NODE_NAME"]; ok && name != "" {
		return NodeSpec{Name: name}
	}
	return NodeSpec{Any: true}
}

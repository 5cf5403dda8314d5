package settings

import "strings"

// ValidateSchema walks every required and optional parameter, reporting
// errors (fatal) and warnings (non-fatal). It returns a copy of params
// with auto-typing applied, so the caller never needs a second pass and
// re-validating the returned schema changes nothing, plus ok, true iff no
// error-severity condition fired.
//
// "choices present but not a list" is enforced at YAML-decode time, since
// Param.Choices is already a typed []string by the time it reaches this
// function.
func ValidateSchema(ctx *Context, params []Param) ([]Param, bool) {
	ok := true
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = validateOne(ctx, p, &ok)
	}
	return out, ok
}

func validateOne(ctx *Context, p Param, ok *bool) Param {
	report := func(sev Severity, msg string, kvs ...any) {
		if !ctx.Report(sev, msg, kvs...) {
			*ok = false
		}
	}

	if p.Name == "" || !IdentifierRe.MatchString(p.Name) {
		report(SeverityError, "parameter name is missing or is not a valid identifier", "name", p.Name)
	}

	hasDefault := p.Default != nil
	hasChoices := len(p.Choices) > 0
	defaultIsBoolean := hasDefault && (*p.Default == "true" || *p.Default == "false")

	switch {
	case p.Type == ParamUnset && defaultIsBoolean:
		report(SeverityWarning, "'type' key is not defined, but was detected by 'default' key: boolean", "name", p.Name)
		p.Type = ParamBoolean
	case p.Type == ParamUnset && hasChoices:
		report(SeverityWarning, "'type' key is not defined, but was detected by 'choices' key: choice", "name", p.Name)
		p.Type = ParamChoice
	case p.Type == ParamUnset:
		report(SeverityError, "'type' key is missing and cannot be auto-typed from 'default' or 'choices'", "name", p.Name)
	}

	if p.Type == ParamChoice && !hasChoices {
		report(SeverityError, "type=choice requires a 'choices' list", "name", p.Name)
	}
	if p.Type == ParamBoolean && hasDefault && !defaultIsBoolean {
		report(SeverityError, "type=boolean requires a boolean-convertible default", "name", p.Name, "default", *p.Default)
	}
	if hasDefault && hasChoices {
		report(SeverityError, "'default' and 'choices' are mutually exclusive", "name", p.Name)
	}

	if p.OnEmpty != nil && strings.HasPrefix(p.OnEmpty.Assign, "$") {
		varName := strings.TrimPrefix(p.OnEmpty.Assign, "$")
		varName = strings.TrimSuffix(strings.TrimPrefix(varName, "{"), "}")
		if !IdentifierRe.MatchString(varName) {
			report(SeverityError, "on_empty.assign references an invalid identifier", "name", p.Name, "assign", p.OnEmpty.Assign)
		}
	}

	return p
}

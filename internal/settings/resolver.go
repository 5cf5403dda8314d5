package settings

import (
	"fmt"
	"regexp"
	"strings"
)

// Resolve runs the required-parameter pass and then the regex pass over
// the schema and returns the resulting environment. currentParams holds
// the build's declared values (possibly empty strings for unset
// parameters); env is the base environment (host environment plus current
// build parameters) that assignments and rewrites are applied on top of.
//
// OnEmpty.Fail defaults to true and OnEmpty.Warn defaults to false at
// YAML-decode time (internal/settings/yaml.go), so this function can treat
// the fields as already-defaulted booleans.
func Resolve(ctx *Context, schema ParameterGroups, currentParams map[string]string, env Environment) (ok bool, result Environment) {
	result = env.Clone()
	ok = true

	for _, p := range schema.Required {
		if !resolveRequired(ctx, p, currentParams, result) {
			ok = false
		}
	}

	for _, p := range schema.All() {
		if !applyRegexPass(ctx, p, result) {
			ok = false
		}
	}

	return ok, result
}

// resolveRequired checks one required parameter, applying its on_empty
// policy when the build left it unset.
func resolveRequired(ctx *Context, p Param, currentParams map[string]string, env Environment) bool {
	if v, present := currentParams[p.Name]; present && v != "" {
		return true
	}

	if p.OnEmpty == nil {
		ctx.Report(SeverityError, "required parameter is not set and has no on_empty fallback", "name", p.Name)
		return false
	}

	assigned, didAssign := resolveOnEmptyAssign(p.OnEmpty.Assign, env)
	if didAssign {
		env[p.Name] = assigned
	}

	if p.OnEmpty.Warn {
		ctx.Report(SeverityWarning, "required parameter was unset; on_empty policy applied", "name", p.Name, "assigned", didAssign)
	}

	if !didAssign {
		if p.OnEmpty.Fail {
			return ctx.Report(SeverityError, "required parameter is unset and on_empty produced no value", "name", p.Name)
		}
	}
	return true
}

// resolveOnEmptyAssign resolves an on_empty.assign value: a "$VAR" or
// "${VAR}" reference copies that variable's current value; anything else
// is used as a literal. An empty assign means no fallback was declared.
func resolveOnEmptyAssign(assign string, env Environment) (value string, ok bool) {
	if assign == "" {
		return "", false
	}
	if strings.HasPrefix(assign, "$") {
		name := strings.TrimPrefix(assign, "$")
		name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
		if v, present := env[name]; present {
			return v, true
		}
		return "", false
	}
	return assign, true
}

// applyRegexPass runs a fully anchored match check against the
// concatenated regex sequence, followed by an optional regex_replace
// rewrite.
func applyRegexPass(ctx *Context, p Param, env Environment) bool {
	value, defined := env[p.Name]
	if !defined {
		return true
	}

	if p.Trim {
		value = strings.TrimSpace(value)
		env[p.Name] = value
	}

	ok := true

	if len(p.Regex) > 0 {
		pattern := "^(?:" + strings.Join(p.Regex, "") + ")$"
		re, err := regexp.Compile(pattern)
		if err != nil {
			return ctx.Report(SeverityError, "parameter regex does not compile", "name", p.Name, "pattern", pattern, "error", err)
		}
		if !re.MatchString(value) {
			ok = ctx.Report(SeverityError, fmt.Sprintf("%s parameter is incorrect due to regex mismatch", p.Name), "name", p.Name, "value", value, "pattern", pattern)
		}
	}

	if p.RegexReplace != nil && defined {
		re, err := regexp.Compile(p.RegexReplace.Regex)
		if err != nil {
			return ctx.Report(SeverityError, "regex_replace pattern does not compile", "name", p.Name, "error", err) && ok
		}
		rewritten := re.ReplaceAllString(value, p.RegexReplace.To)
		env[p.Name] = rewritten
		// Plain info log, not an error-severity diagnostic: always emitted,
		// exactly once per parameter per run.
		ctx.Logger().Info("applied regex_replace", "name", p.Name, "from", value, "to", rewritten)
	}

	return ok
}

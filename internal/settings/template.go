package settings

import "regexp"

// varRefRe matches both $name and ${name} forms. Group 1 captures the raw
// content of a braced reference (which may be malformed); group 2 captures
// a bare identifier. A bare "$" not followed by "{" or an identifier-start
// character is not a reference at all and is left untouched.
var varRefRe = regexp.MustCompile(`\$(?:\{([^}]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Expand rewrites every $name / ${name} reference in s, looking each up
// first in extras (the built-ins map) and then in env. An undefined or
// malformed name substitutes the empty string, sets ok to false, and
// reports a diagnostic, but expansion continues so the caller sees every
// problem in one pass.
func Expand(ctx *Context, s string, env Environment, extras map[string]string) (hadVars bool, ok bool, expanded string) {
	ok = true
	expanded = varRefRe.ReplaceAllStringFunc(s, func(match string) string {
		hadVars = true
		sub := varRefRe.FindStringSubmatch(match)
		braced, bare := sub[1], sub[2]

		name := bare
		malformed := false
		if bare == "" {
			name = braced
			if name == "" || !IdentifierRe.MatchString(name) {
				malformed = true
			}
		}

		if !malformed {
			if v, present := extras[name]; present {
				return v
			}
			if v, present := env[name]; present {
				return v
			}
		}

		if malformed {
			if !ctx.Report(SeverityError, "malformed template variable reference", "ref", match) {
				ok = false
			}
		} else {
			if !ctx.Report(SeverityError, "undefined template variable", "name", name) {
				ok = false
			}
		}
		return ""
	})
	return hadVars, ok, expanded
}

// ExpandKeys applies Expand to the named subset of m's string-valued
// keys. Keys absent from m are skipped. prevOK
// lets callers thread a running ok status across several ExpandKeys/Expand
// calls without an extra branch at each call site.
func ExpandKeys(ctx *Context, m map[string]string, keys []string, env Environment, extras map[string]string, prevOK bool) (ok bool, out map[string]string) {
	ok = prevOK
	out = make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		v, present := m[k]
		if !present {
			continue
		}
		_, exOK, expanded := Expand(ctx, v, env, extras)
		if !exOK {
			ok = false
		}
		out[k] = expanded
	}
	return ok, out
}

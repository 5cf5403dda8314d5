package settings

import "testing"

func TestResolve_RequiredWithOnEmptyAssign(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Required: []Param{
		{Name: "BRANCH", OnEmpty: &OnEmpty{Assign: "$DEFAULT_BRANCH", Fail: true}},
	}}
	env := Environment{"DEFAULT_BRANCH": "main"}

	ok, result := Resolve(ctx, schema, map[string]string{"BRANCH": ""}, env)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if result["BRANCH"] != "main" {
		t.Fatalf("expected BRANCH to be assigned from $DEFAULT_BRANCH, got %q", result["BRANCH"])
	}
}

func TestResolve_RequiredMissingWithoutOnEmptyFails(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Required: []Param{{Name: "BRANCH"}}}

	ok, _ := Resolve(ctx, schema, map[string]string{}, Environment{})
	if ok {
		t.Fatalf("expected failure: required parameter unset with no on_empty fallback")
	}
}

func TestResolve_RequiredMissingOnEmptyFailFalsePasses(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Required: []Param{
		{Name: "BRANCH", OnEmpty: &OnEmpty{Assign: "", Fail: false}},
	}}

	ok, _ := Resolve(ctx, schema, map[string]string{}, Environment{})
	if !ok {
		t.Fatalf("expected ok=true: on_empty.fail is false")
	}
}

func TestResolve_RegexPassMismatchFails(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Optional: []Param{
		{Name: "ENV_NAME", Regex: []string{"dev|prod"}},
	}}
	env := Environment{"ENV_NAME": "staging"}

	ok, _ := Resolve(ctx, schema, map[string]string{"ENV_NAME": "staging"}, env)
	if ok {
		t.Fatalf("expected failure: value does not match anchored regex")
	}
}

func TestResolve_RegexPassAnchored(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Optional: []Param{
		{Name: "ENV_NAME", Regex: []string{"dev", "|prod"}},
	}}

	ok, result := Resolve(ctx, schema, map[string]string{"ENV_NAME": "prod"}, Environment{"ENV_NAME": "prod"})
	if !ok {
		t.Fatalf("expected ok=true for exact match against concatenated regex")
	}
	if result["ENV_NAME"] != "prod" {
		t.Fatalf("expected value to pass through unchanged, got %q", result["ENV_NAME"])
	}
}

func TestResolve_RegexReplaceRewritesValue(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Optional: []Param{
		{Name: "BRANCH", RegexReplace: &RegexReplace{Regex: `^feature/`, To: ""}},
	}}

	ok, result := Resolve(ctx, schema, map[string]string{"BRANCH": "feature/login"}, Environment{"BRANCH": "feature/login"})
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if result["BRANCH"] != "login" {
		t.Fatalf("expected regex_replace to rewrite value, got %q", result["BRANCH"])
	}
}

func TestResolve_TrimAppliesBeforeRegexCheck(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Optional: []Param{
		{Name: "TAG", Trim: true, Regex: []string{"[a-z]+"}},
	}}

	ok, result := Resolve(ctx, schema, map[string]string{"TAG": "  release  "}, Environment{"TAG": "  release  "})
	if !ok {
		t.Fatalf("expected the trimmed value to satisfy the regex")
	}
	if result["TAG"] != "release" {
		t.Fatalf("expected trim to rewrite the stored value, got %q", result["TAG"])
	}
}

func TestResolve_RegexMismatchReasonNamesTheParameter(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	schema := ParameterGroups{Required: []Param{
		{Name: "FOO", Type: ParamString, Regex: []string{"[0-9]+"}},
	}}

	ok, _ := Resolve(ctx, schema, map[string]string{"FOO": "12a"}, Environment{"FOO": "12a"})
	if ok {
		t.Fatalf("expected failure for a non-matching value")
	}
	if got := ctx.FailReason(); got != "FOO parameter is incorrect due to regex mismatch" {
		t.Fatalf("unexpected reason text: %q", got)
	}
}

func TestResolveOnEmptyAssign(t *testing.T) {
	env := Environment{"FOO": "bar"}

	cases := []struct {
		assign  string
		wantOK  bool
		wantVal string
	}{
		{"", false, ""},
		{"$FOO", true, "bar"},
		{"${FOO}", true, "bar"},
		{"$MISSING", false, ""},
		{"literal", true, "literal"},
	}
	for _, tc := range cases {
		v, ok := resolveOnEmptyAssign(tc.assign, env)
		if ok != tc.wantOK || v != tc.wantVal {
			t.Errorf("resolveOnEmptyAssign(%q) = (%q, %v), want (%q, %v)", tc.assign, v, ok, tc.wantVal, tc.wantOK)
		}
	}
}

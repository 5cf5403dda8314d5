package settings

import "testing"

func TestValidateSchema_AutoTypesFromDefault(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	params := []Param{{Name: "FLAG", Default: strPtr("true")}}

	out, ok := ValidateSchema(ctx, params)
	if !ok {
		t.Fatalf("expected ok=true, auto-typing from a boolean default is a warning not an error")
	}
	if out[0].Type != ParamBoolean {
		t.Fatalf("expected auto-typed boolean, got %q", out[0].Type)
	}
}

func TestValidateSchema_AutoTypesFromChoices(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	params := []Param{{Name: "ENV", Choices: []string{"dev", "prod"}}}

	out, ok := ValidateSchema(ctx, params)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if out[0].Type != ParamChoice {
		t.Fatalf("expected auto-typed choice, got %q", out[0].Type)
	}
}

func TestValidateSchema_Idempotent(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	params := []Param{{Name: "FLAG", Default: strPtr("true")}}

	first, ok := ValidateSchema(ctx, params)
	if !ok {
		t.Fatalf("unexpected failure on first pass")
	}
	second, ok := ValidateSchema(newTestContext(nil, false, false), first)
	if !ok {
		t.Fatalf("unexpected failure on second pass")
	}
	if second[0].Type != first[0].Type {
		t.Fatalf("validation is not idempotent: %q != %q", second[0].Type, first[0].Type)
	}
}

func TestValidateSchema_ErrorCases(t *testing.T) {
	cases := []struct {
		name  string
		param Param
	}{
		{"missing name", Param{Type: ParamString}},
		{"invalid identifier", Param{Name: "1bad", Type: ParamString}},
		{"choice without choices", Param{Name: "X", Type: ParamChoice}},
		{"boolean default not boolean", Param{Name: "X", Type: ParamBoolean, Default: strPtr("yes")}},
		{"default and choices both set", Param{Name: "X", Default: strPtr("a"), Choices: []string{"a", "b"}}},
		{"type missing, not inferrable", Param{Name: "X"}},
		{"on_empty.assign bad identifier", Param{Name: "X", Type: ParamString, OnEmpty: &OnEmpty{Assign: "$1bad"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newTestContext(nil, false, false)
			_, ok := ValidateSchema(ctx, []Param{tc.param})
			if ok {
				t.Fatalf("expected validation to fail for %+v", tc.param)
			}
		})
	}
}

func TestValidateSchema_ContinuesPastFirstError(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	params := []Param{
		{Name: "1bad", Type: ParamString},
		{Name: "ALSO_BAD", Type: ParamChoice},
	}
	out, ok := ValidateSchema(ctx, params)
	if ok {
		t.Fatalf("expected failure")
	}
	if len(out) != 2 {
		t.Fatalf("expected validation to still process every parameter, got %d results", len(out))
	}
}

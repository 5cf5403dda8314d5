package settings

import "testing"

func TestMergeBuiltins_PrependsBuiltinsButUserRedeclarationWins(t *testing.T) {
	userDefault := "true"
	schema := ParameterGroups{
		Optional: []Param{{Name: "DRY_RUN", Type: ParamBoolean, Default: &userDefault}},
	}
	merged := MergeBuiltins(schema)

	var sawBuiltinDryRun bool
	for _, p := range merged.Optional {
		if p.Name == "DRY_RUN" {
			sawBuiltinDryRun = true
			if p.Default == nil || *p.Default != "true" {
				t.Fatalf("expected the user's re-declared default to win, got %+v", p.Default)
			}
		}
	}
	if !sawBuiltinDryRun {
		t.Fatalf("expected DRY_RUN to still be present exactly once")
	}

	var count int
	for _, p := range merged.All() {
		if p.Name == "DRY_RUN" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one DRY_RUN entry, got %d", count)
	}
}

func TestMergeBuiltins_AddsAllSixWhenSchemaIsEmpty(t *testing.T) {
	merged := MergeBuiltins(ParameterGroups{})
	if len(merged.Optional) != len(BuiltinParams()) {
		t.Fatalf("expected all built-ins to be added, got %d", len(merged.Optional))
	}
}

func TestMergeBuiltins_PreservesRequiredAndOptionalOrder(t *testing.T) {
	schema := ParameterGroups{
		Required: []Param{{Name: "BRANCH", Type: ParamString}},
		Optional: []Param{{Name: "EXTRA", Type: ParamString}},
	}
	merged := MergeBuiltins(schema)
	if len(merged.Required) != 1 || merged.Required[0].Name != "BRANCH" {
		t.Fatalf("expected required parameters untouched, got %+v", merged.Required)
	}
	last := merged.Optional[len(merged.Optional)-1]
	if last.Name != "EXTRA" {
		t.Fatalf("expected user-declared optional parameters to be appended after built-ins, got last=%+v", last)
	}
}

func TestSelectNode_NodeTagWinsOverNodeName(t *testing.T) {
	node := SelectNode(Environment{"NODE_TAG": "gpu", "NODE_NAME": "host-1"})
	if node.Label != "gpu" || node.Name != "" {
		t.Fatalf("expected NODE_TAG to take precedence, got %+v", node)
	}
}

func TestSelectNode_NodeNameUsedWhenTagUnset(t *testing.T) {
	node := SelectNode(Environment{"NODE_NAME": "host-1"})
	if node.Name != "host-1" {
		t.Fatalf("expected NODE_NAME to be used, got %+v", node)
	}
}

func TestSelectNode_AnyWhenNeitherSet(t *testing.T) {
	node := SelectNode(Environment{})
	if !node.Any {
		t.Fatalf("expected Any=true when neither NODE_TAG nor NODE_NAME is set, got %+v", node)
	}
}

func TestSelectNode_EmptyStringTreatedAsUnset(t *testing.T) {
	node := SelectNode(Environment{"NODE_TAG": "", "NODE_NAME": "host-1"})
	if node.Name != "host-1" {
		t.Fatalf("expected empty NODE_TAG to fall through to NODE_NAME, got %+v", node)
	}
}

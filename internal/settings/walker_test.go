package settings

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// fakeEmptyNodeRegistry always resolves to no matches, simulating a
// pattern that has no live host in the registry.
type fakeEmptyNodeRegistry struct{}

func (fakeEmptyNodeRegistry) Resolve(ctx context.Context, nameOrLabel string, isLabel bool) ([]string, error) {
	return nil, nil
}

func TestWalk_EmptyStagesPasses(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	ok, aborted := Walk(ctx, Collaborators{}, &PipelineSettings{}, false)
	if !ok || aborted {
		t.Fatalf("expected ok=true, aborted=false for a pipeline with no stages")
	}
}

func TestWalk_EmptyStagesDebugModeLogsExactlyOnce(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(nil, log.New(&buf), true, false)

	ok, aborted := Walk(ctx, Collaborators{}, &PipelineSettings{}, false)
	if !ok || aborted {
		t.Fatalf("expected ok=true, aborted=false")
	}
	if n := strings.Count(buf.String(), "No stages to execute in pipeline config."); n != 1 {
		t.Fatalf("expected exactly one log line, got %d in %q", n, buf.String())
	}
}

func TestWalk_SequentialStagesRunInOrder(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	store := &fakeArtifactStore{}
	collab := Collaborators{Artifact: store}

	settings := &PipelineSettings{
		Stages: []Stage{
			{Name: "first", Actions: []Action{{ActionRef: "a"}}},
			{Name: "second", Actions: []Action{{ActionRef: "b"}}},
		},
		Actions: map[string]ActionLink{
			"a": {Kind: LinkStash, Stash: &StashFiles{Stash: "one"}},
			"b": {Kind: LinkStash, Stash: &StashFiles{Stash: "two"}},
		},
	}

	ok, aborted := Walk(ctx, collab, settings, false)
	if !ok || aborted {
		t.Fatalf("expected ok=true, aborted=false")
	}
	if len(store.stashed) != 2 || store.stashed[0] != "one" || store.stashed[1] != "two" {
		t.Fatalf("expected stages to run in declaration order, got %v", store.stashed)
	}

	b := ctx.BuiltInsSnapshot()
	if len(b.StageReport) != 2 || len(b.ActionReport) != 2 {
		t.Fatalf("expected one stage row and one action row per stage, got stages=%d actions=%d",
			len(b.StageReport), len(b.ActionReport))
	}
}

func TestWalk_UnknownActionLinkFailsStage(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	settings := &PipelineSettings{
		Stages: []Stage{{Name: "s", Actions: []Action{{ActionRef: "missing"}}}},
	}

	ok, _ := Walk(ctx, Collaborators{}, settings, false)
	if ok {
		t.Fatalf("expected failure for an action referencing an unknown action-link")
	}
}

func TestWalk_IgnoreFailDemotesActionButReportsIgnored(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	settings := &PipelineSettings{
		Stages: []Stage{{Name: "s", Actions: []Action{{ActionRef: "missing", IgnoreFail: true}}}},
	}

	ok, aborted := Walk(ctx, Collaborators{}, settings, false)
	if !ok || aborted {
		t.Fatalf("expected ignore_fail to keep the run passing, got ok=%v aborted=%v", ok, aborted)
	}
	b := ctx.BuiltInsSnapshot()
	if len(b.ActionReport) != 1 || !b.ActionReport[0].Pass {
		t.Fatalf("expected the action report row itself to read Pass=true once ignored")
	}
}

func TestWalk_StopOnFailAborts(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	settings := &PipelineSettings{
		Stages: []Stage{
			{Name: "s", Actions: []Action{
				{ActionRef: "missing", StopOnFail: true},
				{ActionRef: "missing"},
			}},
			{Name: "never-runs", Actions: []Action{{ActionRef: "missing"}}},
		},
	}

	ok, aborted := Walk(ctx, Collaborators{}, settings, false)
	if ok {
		t.Fatalf("expected ok=false")
	}
	if !aborted {
		t.Fatalf("expected stop_on_fail to set aborted=true")
	}
	b := ctx.BuiltInsSnapshot()
	if len(b.StageReport) != 1 {
		t.Fatalf("expected only the first stage to be reported, got %d rows", len(b.StageReport))
	}
	if !strings.Contains(ctx.FailReason(), "Terminating current pipeline run due to an error in") {
		t.Fatalf("expected the terminating reason to be recorded, got %q", ctx.FailReason())
	}
}

func TestWalk_NodePatternNoMatchSkipsDispatchAndFails(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	store := &fakeArtifactStore{}
	collab := Collaborators{Artifact: store, Nodes: fakeEmptyNodeRegistry{}}
	settings := &PipelineSettings{
		Stages: []Stage{{Name: "s", Actions: []Action{
			{ActionRef: "a", Node: &NodeSpec{Name: "build-*", Pattern: true}},
		}}},
		Actions: map[string]ActionLink{"a": {Kind: LinkStash, Stash: &StashFiles{Stash: "x"}}},
	}

	ok, _ := Walk(ctx, collab, settings, false)
	if ok {
		t.Fatalf("expected failure when a node pattern matches no hosts")
	}
	if len(store.stashed) != 0 {
		t.Fatalf("expected the action to be skipped rather than dispatched, got %v", store.stashed)
	}
	b := ctx.BuiltInsSnapshot()
	if len(b.ActionReport) != 1 || b.ActionReport[0].Pass {
		t.Fatalf("expected a single failing action report row, got %+v", b.ActionReport)
	}
}

func TestWalk_SuccessOnlySkipsAfterFailure(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	ctx.SetLastResult(ResultFailed)
	store := &fakeArtifactStore{}
	collab := Collaborators{Artifact: store}
	settings := &PipelineSettings{
		Stages: []Stage{{Name: "s", Actions: []Action{{ActionRef: "a", SuccessOnly: true}}}},
		Actions: map[string]ActionLink{"a": {Kind: LinkStash, Stash: &StashFiles{Stash: "x"}}},
	}

	ok, _ := Walk(ctx, collab, settings, false)
	if !ok {
		t.Fatalf("expected a skipped success_only action to count as passing")
	}
	if len(store.stashed) != 0 {
		t.Fatalf("expected the action to be skipped, not dispatched")
	}
}

func TestWalk_ParallelStageProducesSameRowsAsSequential(t *testing.T) {
	run := func(parallel bool) []ActionReportRow {
		ctx := newTestContext(nil, false, false)
		collab := Collaborators{Artifact: &fakeArtifactStore{}}
		settings := &PipelineSettings{
			Stages: []Stage{{Name: "s", Parallel: parallel, Actions: []Action{
				{ActionRef: "a"}, {ActionRef: "b"}, {ActionRef: "c"},
			}}},
			Actions: map[string]ActionLink{
				"a": {Kind: LinkStash, Stash: &StashFiles{Stash: "one"}},
				"b": {Kind: LinkStash, Stash: &StashFiles{Stash: "two"}},
				"c": {Kind: LinkStash, Stash: &StashFiles{Stash: "three"}},
			},
		}
		if ok, _ := Walk(ctx, collab, settings, false); !ok {
			t.Fatalf("expected the stage to pass")
		}
		return ctx.BuiltInsSnapshot().ActionReport
	}

	sequential := run(false)
	parallel := run(true)
	if len(sequential) != len(parallel) {
		t.Fatalf("row counts differ: %d vs %d", len(sequential), len(parallel))
	}
	byDetail := func(rows []ActionReportRow) map[string]ActionReportRow {
		m := make(map[string]ActionReportRow, len(rows))
		for _, r := range rows {
			r.ActionIndex = 0 // compare as a set, modulo ordering
			m[r.Detail] = r
		}
		return m
	}
	seq, par := byDetail(sequential), byDetail(parallel)
	for detail, row := range seq {
		got, ok := par[detail]
		if !ok || got.Pass != row.Pass || got.StageName != row.StageName {
			t.Fatalf("parallel rows diverge from sequential for %q: %+v vs %+v", detail, got, row)
		}
	}
}

package settings

import "testing"

func TestReport_DebugSuppressedUnlessDebugMode(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	if ok := ctx.Report(SeverityDebug, "quiet"); !ok {
		t.Fatalf("expected debug severity to never fail the caller")
	}

	ctx = newTestContext(nil, true, false)
	if ok := ctx.Report(SeverityDebug, "loud"); !ok {
		t.Fatalf("expected debug severity to never fail the caller even with DebugMode on")
	}
}

func TestReport_WarningNeverFails(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	if ok := ctx.Report(SeverityWarning, "heads up"); !ok {
		t.Fatalf("expected warning severity to return true")
	}
}

func TestReport_ErrorAlwaysFails(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	if ok := ctx.Report(SeverityError, "broken"); ok {
		t.Fatalf("expected error severity to return false")
	}
}

func TestContext_EnvSnapshotIsIndependentCopy(t *testing.T) {
	ctx := newTestContext(Environment{"A": "1"}, false, false)
	snap := ctx.EnvSnapshot()
	snap["A"] = "mutated"

	v, _ := ctx.GetEnv("A")
	if v != "1" {
		t.Fatalf("expected mutating the snapshot to leave the context's env untouched, got %q", v)
	}
}

func TestContext_MergeEnvAndMergeExtra(t *testing.T) {
	ctx := newTestContext(Environment{}, false, false)
	ctx.MergeEnv(map[string]string{"FOO": "bar"})
	ctx.MergeExtra(map[string]string{"BAZ": "qux"})

	if v, ok := ctx.GetEnv("FOO"); !ok || v != "bar" {
		t.Fatalf("expected MergeEnv to set FOO=bar, got %q ok=%v", v, ok)
	}
	snap := ctx.BuiltInsSnapshot()
	if snap.Extra["BAZ"] != "qux" {
		t.Fatalf("expected MergeExtra to set Extra[BAZ]=qux, got %+v", snap.Extra)
	}
}

func TestContext_BuiltInsSnapshotIsIndependentCopy(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	ctx.AppendActionReport(ActionReportRow{StageName: "s", Pass: true})

	snap := ctx.BuiltInsSnapshot()
	snap.ActionReport[0].StageName = "mutated"

	fresh := ctx.BuiltInsSnapshot()
	if fresh.ActionReport[0].StageName != "s" {
		t.Fatalf("expected mutating a snapshot to leave the context's built-ins untouched")
	}
}

func TestContext_LastResultRoundTrips(t *testing.T) {
	ctx := newTestContext(nil, false, false)
	if ctx.LastResult() != "" {
		t.Fatalf("expected zero-value LastResult to start empty")
	}
	ctx.SetLastResult(ResultFailed)
	if ctx.LastResult() != ResultFailed {
		t.Fatalf("expected LastResult to round-trip, got %q", ctx.LastResult())
	}
}

package settings

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
)

// extrasFromBuiltIns exposes the run's built-ins as the "extras" map the
// templater consults before env: the cross-cutting Extra values a script
// action merged in, plus REMOTE_RUNNER_INSTALLATION. The report tables are
// not exposed to the templater.
func extrasFromBuiltIns(ctx *Context) map[string]string {
	b := ctx.BuiltInsSnapshot()
	extras := make(map[string]string, len(b.Extra)+1)
	for k, v := range b.Extra {
		extras[k] = v
	}
	extras["REMOTE_RUNNER_INSTALLATION"] = b.RemoteRunnerInstallation
	return extras
}

// Walk iterates settings.Stages in declaration order. aborted is true
// when a stop_on_fail action terminated the run before all stages ran.
func Walk(ctx *Context, collab Collaborators, settings *PipelineSettings, check bool) (ok bool, aborted bool) {
	if len(settings.Stages) == 0 {
		if ctx.DebugMode() {
			ctx.Logger().Info("No stages to execute in pipeline config.")
		}
		return true, false
	}

	ok = true
	for stageIndex, stage := range settings.Stages {
		pass, stageAborted, detail := walkStage(ctx, collab, settings, stageIndex, stage, check)
		ctx.AppendStageReport(StageReportRow{Name: stage.Name, Pass: pass, Detail: detail})
		if !pass {
			ok = false
		}
		if stageAborted {
			return ok, true
		}
	}
	return ok, false
}

func walkStage(ctx *Context, collab Collaborators, settings *PipelineSettings, stageIndex int, stage Stage, check bool) (pass bool, aborted bool, detail string) {
	env := ctx.EnvSnapshot()
	extras := extrasFromBuiltIns(ctx)
	_, _, name := Expand(ctx, stage.Name, env, extras)

	n := len(stage.Actions)
	detail = fmt.Sprintf("%d action(s)", n)
	if stage.Parallel {
		detail += " in parallel"
	}

	if n == 0 {
		return true, false, detail
	}

	results := make([]bool, n)
	aborts := make([]bool, n)

	run := func(i int) {
		results[i], aborts[i] = processAction(ctx, collab, settings, stageIndex, name, i, stage.Actions[i], check)
	}

	if stage.Parallel {
		// One task per action, awaiting all before the stage reports.
		p := pool.New()
		for i := 0; i < n; i++ {
			i := i
			p.Go(func() { run(i) })
		}
		p.Wait()
	} else {
		for i := 0; i < n; i++ {
			run(i)
			if aborts[i] {
				break
			}
		}
	}

	pass = true
	for i, r := range results {
		if !stage.Parallel && i > 0 && aborts[i-1] {
			break // actions after an abort never ran; don't count their zero value
		}
		if !r {
			pass = false
		}
		if aborts[i] {
			aborted = true
		}
	}
	return pass, aborted, detail
}

// processAction runs a single action through validation, templating,
// node resolution, conditional gating, dispatch, messaging, and
// reporting. It returns the action's final (post ignore_fail) pass/fail
// and whether the run should abort (stop_on_fail on an underlying
// failure).
func processAction(ctx *Context, collab Collaborators, settings *PipelineSettings, stageIndex int, stageName string, actionIndex int, a Action, check bool) (finalPass bool, abort bool) {
	env := ctx.EnvSnapshot()
	extras := extrasFromBuiltIns(ctx)
	ok := true

	// 1. Structural validation.
	if a.SuccessOnly && a.FailOnly {
		ok = ctx.Report(SeverityError, "success_only and fail_only are mutually exclusive", "stage", stageName, "index", actionIndex)
	}

	// 2. Templating of string keys plus action and node.
	expand := func(s string) string {
		_, exOK, out := Expand(ctx, s, env, extras)
		if !exOK {
			ok = false
		}
		return out
	}
	a.BeforeMessage = expand(a.BeforeMessage)
	a.AfterMessage = expand(a.AfterMessage)
	a.SuccessMessage = expand(a.SuccessMessage)
	a.FailMessage = expand(a.FailMessage)
	a.Dir = expand(a.Dir)
	a.BuildName = expand(a.BuildName)
	a.ActionRef = expand(a.ActionRef)
	if a.Node != nil {
		node := *a.Node
		node.Name = expand(node.Name)
		node.Label = expand(node.Label)
		a.Node = &node
	}

	if a.BeforeMessage != "" {
		ctx.Logger().Info(a.BeforeMessage)
	}

	// 3. Node resolution.
	node, nodeOK := resolveNode(ctx, collab, a.Node)
	if !nodeOK {
		ok = false
	}

	// 4. Conditional gating.
	result := ctx.LastResult()
	if a.SuccessOnly && result == ResultFailed {
		ctx.Logger().Info("skipping action: success_only and last result was FAILED", "action", a.ActionRef)
		ctx.AppendActionReport(ActionReportRow{StageName: stageName, StageIndex: stageIndex, ActionIndex: actionIndex, Pass: true, Detail: fmt.Sprintf("%s: skipped (success_only)", a.ActionRef)})
		return true, false
	}
	if a.FailOnly && result != ResultFailed && result != "" {
		ctx.Logger().Info("skipping action: fail_only and last result was not FAILED", "action", a.ActionRef)
		ctx.AppendActionReport(ActionReportRow{StageName: stageName, StageIndex: stageIndex, ActionIndex: actionIndex, Pass: true, Detail: fmt.Sprintf("%s: skipped (fail_only)", a.ActionRef)})
		return true, false
	}

	// 5. Execution scope.
	if a.BuildName != "" && collab.Host != nil && !check {
		if err := collab.Host.RenameBuild(a.BuildName); err != nil {
			ctx.Report(SeverityWarning, "failed to rename build", "build_name", a.BuildName, "error", err)
		}
	}
	if node.Name != "" || node.Label != "" {
		ctx.Report(SeverityDebug, "action targets node", "action", a.ActionRef, "node", node)
	}

	// 6. Dispatch.
	link, known := settings.Actions[a.ActionRef]
	if !known {
		ok = ctx.Report(SeverityError, "unknown action-link", "name", a.ActionRef)
	}

	var rawPass bool
	var kind ActionLinkKind
	if ok {
		var expandedLink ActionLink
		linkOK, el := ExpandActionLink(ctx, link, env, extras)
		expandedLink = el
		kind = expandedLink.Kind
		if !linkOK {
			ok = false
		}
		rawPass = ok && Dispatch(ctx, collab, settings, expandedLink, a.Dir, check)
	} else {
		rawPass = false
	}

	// 7. Post-messages.
	if a.AfterMessage != "" {
		ctx.Logger().Info(a.AfterMessage)
	}

	// 8. Failure handling.
	finalPass = rawPass
	if !rawPass && a.IgnoreFail {
		finalPass = true
	}

	if finalPass && a.SuccessMessage != "" {
		ctx.Logger().Info(a.SuccessMessage)
	}
	if !finalPass && a.FailMessage != "" {
		ctx.Logger().Info(a.FailMessage)
	}

	// 9. Report.
	detail := fmt.Sprintf("%s: %s", a.ActionRef, kind)
	if !rawPass && a.IgnoreFail {
		detail += " (ignored)"
	}
	ctx.AppendActionReport(ActionReportRow{StageName: stageName, StageIndex: stageIndex, ActionIndex: actionIndex, Pass: finalPass, Detail: detail})

	if !finalPass {
		ctx.SetLastResult(ResultFailed)
	}

	if !rawPass && a.StopOnFail {
		ctx.Report(SeverityError, fmt.Sprintf("Terminating current pipeline run due to an error in %s[%d]", stageName, actionIndex))
		return false, true
	}
	return finalPass, false
}

// resolveNode canonicalises an action's NodeSpec: nil/Any means any
// available host; Pattern:true resolves the name or label as a glob
// against the live node registry, first match wins. ok is false when a
// pattern was set but the registry had no matching host; the caller must
// not dispatch the action in that case.
func resolveNode(ctx *Context, collab Collaborators, spec *NodeSpec) (resolved NodeSpec, ok bool) {
	if spec == nil {
		return NodeSpec{Any: true}, true
	}
	if spec.Name != "" && spec.Label != "" {
		ctx.Report(SeverityWarning, "node spec has both name and label; name wins", "name", spec.Name, "label", spec.Label)
	}
	if !spec.Pattern {
		return *spec, true
	}

	nameOrLabel, isLabel := spec.Name, false
	if nameOrLabel == "" {
		nameOrLabel, isLabel = spec.Label, true
	}
	if collab.Nodes == nil {
		ok = ctx.Report(SeverityError, "node pattern set but no node registry configured", "pattern", nameOrLabel)
		return *spec, ok
	}
	matches, err := collab.Nodes.Resolve(context.Background(), nameOrLabel, isLabel)
	if err != nil || len(matches) == 0 {
		ok = ctx.Report(SeverityError, "node pattern matched no hosts in the registry", "pattern", nameOrLabel, "error", err)
		return *spec, ok
	}
	if isLabel {
		return NodeSpec{Label: matches[0]}, true
	}
	return NodeSpec{Name: matches[0]}, true
}

package settings

// HostControl is the CI-host primitive the Injector needs: installing a
// refreshed parameter declaration, renaming the in-progress build, and
// terminating it with a neutral result. Concrete implementations live in
// internal/collab; the engine only ever sees this interface.
type HostControl interface {
	InstallParameters(schema []Param) error
	RenameBuild(name string) error
	TerminateNeutral(message string) error
}

// Reconcile compares the validated schema against the build's currently
// declared parameters. needsUpdate is true when any schema
// name is absent from currentParams. When needsUpdate, or when the
// UPDATE_PARAMETERS build flag is set, the schema is installed as the
// host's parameter declaration and the build is terminated with a neutral
// result so the operator re-builds with the new form. In dry-run the
// installation step is skipped but the termination message is still
// emitted.
func Reconcile(ctx *Context, host HostControl, schema ParameterGroups, currentParams map[string]string, updateParametersFlag bool) (needsUpdate bool, ok bool) {
	all := schema.All()
	for _, p := range all {
		if _, present := currentParams[p.Name]; !present {
			needsUpdate = true
			break
		}
	}

	if !needsUpdate && !updateParametersFlag {
		return false, true
	}

	if !ctx.DryRun() {
		if err := host.InstallParameters(all); err != nil {
			ctx.Report(SeverityError, "failed to install updated parameter declaration", "error", err)
			return needsUpdate, false
		}
	}

	if err := host.RenameBuild("parameters updated"); err != nil {
		ctx.Report(SeverityWarning, "failed to rename build after parameter update", "error", err)
	}
	if err := host.TerminateNeutral("Parameters were updated; the build was terminated so you can re-run with the new form."); err != nil {
		ctx.Report(SeverityWarning, "failed to terminate build neutrally", "error", err)
	}

	ctx.SetLastResult(ResultParametersUpdated)
	return needsUpdate, true
}

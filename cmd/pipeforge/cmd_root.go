package main

import (
	"fmt"

	"pipeforge/internal/settings"
)

// runRoot implements the full Loader -> Validator -> Injector -> Resolver
// -> Walker pipeline, the root command's RunE.
func runRoot() error {
	run, shouldWalk, err := prepare(flagJobName)
	if err != nil {
		lastResult = string(settings.ResultFailed)
		return err
	}

	if shouldWalk {
		ok, _ := settings.Walk(run.ctx, run.collab, run.settings, false)
		if run.ctx.LastResult() == "" {
			if ok {
				run.ctx.SetLastResult(settings.ResultSucceeded)
			} else {
				run.ctx.SetLastResult(settings.ResultFailed)
			}
		}
		if run.ctx.DryRun() && ok {
			run.ctx.SetLastResult(settings.ResultDryRunCompleted)
		}
	}

	renderAndLog(run.ctx)
	lastResult = string(run.ctx.LastResult())

	if lastResult == string(settings.ResultFailed) {
		run.ctx.Logger().Error(run.ctx.FailReason() + " Please fix then re-build.")
		return fmt.Errorf("pipeline failed")
	}
	return nil
}

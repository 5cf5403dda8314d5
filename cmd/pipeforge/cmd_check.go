package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pipeforge/internal/settings"
)

// newCheckCommand builds the `check` subcommand: it runs the full
// Loader->Validator->Injector->Resolver pipeline, then a check-mode-only
// walk that validates every action-link's mandatory keys without
// dispatching anything.
func newCheckCommand() *cobra.Command {
	var jobName string
	cmd := &cobra.Command{
		Use:   "check <job-name>",
		Short: "Validate a pipeline's settings and action-links without running anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobName = args[0]
			return runCheck(jobName)
		},
	}
	return cmd
}

func runCheck(jobName string) error {
	run, shouldWalk, err := prepare(jobName)
	if err != nil {
		lastResult = string(settings.ResultFailed)
		return err
	}

	if shouldWalk {
		settings.Walk(run.ctx, run.collab, run.settings, true)
	}

	renderAndLog(run.ctx)
	lastResult = string(run.ctx.LastResult())

	if lastResult == string(settings.ResultFailed) {
		run.ctx.Logger().Error(run.ctx.FailReason() + " Please fix then re-build.")
		return fmt.Errorf("check failed")
	}
	return nil
}

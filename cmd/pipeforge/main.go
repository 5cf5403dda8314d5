package main

import (
	"os"

	"github.com/spf13/cobra"

	"pipeforge/pkg/lib"
)

var (
	flagDryRun    bool
	flagDebugMode bool
	flagVerbose   bool
	flagBranch    string
	flagJobName   string
)

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   appName + " <job-name>",
		Short: "Run a declarative CI pipeline described by a settings repository",
		Long: appName + " loads a pipeline's YAML settings from a git repository, " +
			"validates and resolves its parameters, then walks its stages " +
			"dispatching each action to the configured collaborators.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagJobName = args[0]
			return runRoot()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "log the actions that would run without executing them")
	rootCmd.PersistentFlags().BoolVar(&flagDebugMode, "debug", false, "emit debug-severity diagnostics")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log the raw settings YAML after loading")
	rootCmd.PersistentFlags().StringVar(&flagBranch, "branch", "", "settings repository branch (overrides SETTINGS_GIT_BRANCH)")
	rootCmd.PersistentFlags().StringArrayVar(&flagParams, "param", nil, "build parameter as NAME=value (repeatable)")

	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// lastResult is unset when Execute failed before a RunE ever ran
		// (e.g. a bad flag/argument) rather than after a completed walk;
		// that case always exits 1.
		code := 1
		if lastResult != "" {
			code = exitCodeFor(lastResult)
		}
		lib.Exit(err, code)
	}
	os.Exit(exitCodeFor(lastResult))
}

// exitCodeFor translates the run's terminal settings.BuildResult into a
// process exit code: SUCCEEDED and
// DRY_RUN_COMPLETED are a clean exit; PARAMETERS_UPDATED is kept distinct
// from FAILED so calling scripts can tell "re-run with the updated
// parameters" apart from "the pipeline actually failed".
func exitCodeFor(result string) int {
	switch result {
	case "SUCCEEDED", "DRY_RUN_COMPLETED", "":
		return 0
	case "PARAMETERS_UPDATED":
		return 2
	default:
		return 1
	}
}

// lastResult is set by runRoot/runCheck once the walk completes, for
// exitCodeFor to translate after cobra returns.
var lastResult string

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"pipeforge/internal/collab"
	"pipeforge/internal/loader"
	"pipeforge/internal/settings"
)

var flagParams []string

// parseParams turns a list of "NAME=value" flags into the build's current
// parameter values, the same shape a CI host would hand the Injector.
func parseParams(raw []string) map[string]string {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		out[name] = value
	}
	return out
}

// hostEnvironment seeds the run's base environment from the process
// environment.
func hostEnvironment() settings.Environment {
	env := settings.Environment{}
	for _, kv := range os.Environ() {
		name, value, found := strings.Cut(kv, "=")
		if found {
			env[name] = value
		}
	}
	return env
}

// buildCollaborators assembles the concrete internal/collab adapters
// behind the engine's Collaborators interface bundle.
func buildCollaborators(logger *log.Logger, workspace string, nodes []nodeConfigEntry) settings.Collaborators {
	entries := make([]collab.NodeEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, collab.NodeEntry{Name: n.Name, Labels: n.Labels})
	}

	return settings.Collaborators{
		Git:      &collab.GitCloner{Logger: logger},
		Runner:   &collab.AnsibleRunner{Logger: logger, InstallationPaths: map[string]string{}},
		Jobs:     &collab.HTTPJobDispatcher{Logger: logger},
		Artifact: &collab.FileArtifactStore{Logger: logger, Workspace: workspace, StashDir: workspace + "/.stash"},
		Notify:   &collab.SMTPMattermostNotifier{Logger: logger, From: "pipeforge@localhost"},
		Nodes:    &collab.StaticNodeRegistry{Nodes: entries},
		Host:     &collab.LoggingHostControl{Logger: logger},
	}
}

// pipelineRun holds everything produced while loading and preparing a
// pipeline, shared by the root and check commands.
type pipelineRun struct {
	ctx       *settings.Context
	settings  *settings.PipelineSettings
	collab    settings.Collaborators
	workspace string
}

// prepare runs the Loader, schema merge/validate, Injector, and Resolver
// stages, common to both a full run and a check-only
// run. shouldWalk is false when the run is already terminal, either a
// validation/resolve failure (ctx.LastResult == FAILED) or a parameter
// update (ctx.LastResult == PARAMETERS_UPDATED), and the caller should
// render the report and stop without walking any stages.
func prepare(jobName string) (*pipelineRun, bool, error) {
	logger := newLogger()

	loaderCfg, nodeEntries, err := loadLoaderConfig()
	if err != nil {
		return nil, false, err
	}

	l := &loader.Loader{Config: loaderCfg, Logger: logger}
	relPath, err := l.RelativePath(jobName)
	if err != nil {
		return nil, false, err
	}

	branch := flagBranch
	if branch == "" {
		branch = firstNonEmpty(parseParams(flagParams)["SETTINGS_GIT_BRANCH"], os.Getenv("SETTINGS_GIT_BRANCH"), loaderCfg.DefaultBranch)
	}

	workspace, parsed, err := l.Load(context.Background(), branch, relPath, flagVerbose)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", settings.ErrLoaderFailed, err)
	}
	for _, w := range parsed.Warnings {
		logger.Warn(w)
	}

	env := hostEnvironment()
	currentParams := parseParams(flagParams)
	for name, value := range currentParams {
		env[name] = value
	}

	debugMode := flagDebugMode || env["DEBUG_MODE"] == "true"
	dryRun := flagDryRun || env["DRY_RUN"] == "true"

	ctx := settings.NewContext(env, logger, debugMode, dryRun)

	merged := settings.MergeBuiltins(parsed.Parameters)
	validated, validOK := settings.ValidateSchema(ctx, merged.All())
	parsed.Parameters = splitValidated(validated, merged)
	if !validOK {
		ctx.SetLastResult(settings.ResultFailed)
		return &pipelineRun{ctx: ctx, settings: parsed, workspace: workspace}, false, nil
	}

	_, reconcileOK := settings.Reconcile(ctx, &collab.LoggingHostControl{Logger: logger}, parsed.Parameters, currentParams, env["UPDATE_PARAMETERS"] == "true")
	if !reconcileOK {
		ctx.SetLastResult(settings.ResultFailed)
		return &pipelineRun{ctx: ctx, settings: parsed, workspace: workspace}, false, nil
	}
	if ctx.LastResult() == settings.ResultParametersUpdated {
		// The declaration was refreshed and the build terminated neutrally;
		// the operator re-runs with the new parameter form.
		return &pipelineRun{ctx: ctx, settings: parsed, workspace: workspace}, false, nil
	}

	resolveOK, resolvedEnv := settings.Resolve(ctx, parsed.Parameters, currentParams, env)
	if !resolveOK {
		ctx.SetLastResult(settings.ResultFailed)
		return &pipelineRun{ctx: ctx, settings: parsed, workspace: workspace}, false, nil
	}
	for k, v := range resolvedEnv {
		ctx.SetEnv(k, v)
	}

	node := settings.SelectNode(resolvedEnv)
	ctx.Report(settings.SeverityDebug, "resolved node selection", "node", node)

	collaborators := buildCollaborators(logger, workspace, nodeEntries)
	return &pipelineRun{ctx: ctx, settings: parsed, collab: collaborators, workspace: workspace}, true, nil
}

// splitValidated re-splits ValidateSchema's flattened output back into
// required/optional groups, preserving the lengths MergeBuiltins produced.
func splitValidated(flat []settings.Param, merged settings.ParameterGroups) settings.ParameterGroups {
	n := len(merged.Required)
	return settings.ParameterGroups{
		Required: flat[:n],
		Optional: flat[n:],
	}
}

func renderAndLog(ctx *settings.Context) {
	b := ctx.BuiltInsSnapshot()
	actions, stages := settings.Render(b)
	fmt.Println(actions)
	fmt.Println(stages)
	if err := persistReport(b); err != nil {
		ctx.Logger().Warn("could not persist report for later `report` command", "error", err)
	}
}

// reportCachePath is where the last run's BuiltIns are persisted so the
// `report` subcommand can re-render them without re-running the pipeline.
func reportCachePath() (string, error) {
	dir, err := resolveConfigDir()
	if err != nil {
		return "", err
	}
	return dir + "/lastreport.json", nil
}

func persistReport(b settings.BuiltIns) error {
	path, err := reportCachePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadPersistedReport() (settings.BuiltIns, error) {
	path, err := reportCachePath()
	if err != nil {
		return settings.BuiltIns{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return settings.BuiltIns{}, err
	}
	var b settings.BuiltIns
	if err := json.Unmarshal(data, &b); err != nil {
		return settings.BuiltIns{}, err
	}
	return b, nil
}

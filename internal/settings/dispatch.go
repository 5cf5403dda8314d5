package settings

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// JobResult is the outcome of a dispatched downstream job.
type JobResult struct {
	Result string
	Number int
	URL    string
}

// GitCloner is the repository-clone collaborator contract.
type GitCloner interface {
	Clone(ctx context.Context, url, branch, dir, credentials string) error
}

// RemoteRunner is the remote-command collaborator contract, covering
// playbook runs and collection installation.
type RemoteRunner interface {
	RunPlaybook(ctx context.Context, playbookText, inventoryText, installationName string) error
	InstallCollections(ctx context.Context, names []string, installationName string) error
}

// JobDispatcher is the downstream-job collaborator contract.
type JobDispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]DownstreamParam, dryRun, propagate, wait bool) (JobResult, error)
}

// ArtifactStore bundles Copy-artifacts, Stash/Unstash, and Publish-artifacts.
type ArtifactStore interface {
	CopyArtifacts(ctx context.Context, project string, buildNumber int, spec CopyArtifactsSpec) error
	Stash(ctx context.Context, spec StashFiles) error
	Unstash(ctx context.Context, name string) error
	Publish(ctx context.Context, spec PublishArtifacts) error
}

// Notifier bundles Send-email and Send-mattermost.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body, replyTo string) error
	SendMattermost(ctx context.Context, url, text string) error
}

// NodeRegistry is the live worker-host registry contract. Callers take
// result[0] and ignore the rest: pattern resolution is first-match, so
// implementations should return a deterministic ordering.
type NodeRegistry interface {
	Resolve(ctx context.Context, nameOrLabel string, isLabel bool) ([]string, error)
}

// Collaborators bundles every external collaborator the dispatcher needs.
// A field may be nil only when no action in the pipeline ever dispatches
// the operation that needs it; Dispatch reports a clear error rather than
// panicking when a required collaborator is missing.
type Collaborators struct {
	Git      GitCloner
	Runner   RemoteRunner
	Jobs     JobDispatcher
	Artifact ArtifactStore
	Notify   Notifier
	Nodes    NodeRegistry
	Host     HostControl
}

// ExpandActionLink templates every string field relevant to link's
// discriminator. It returns a copy; the original link is never mutated.
func ExpandActionLink(ctx *Context, link ActionLink, env Environment, extras map[string]string) (ok bool, expanded ActionLink) {
	ok = true
	one := func(s string) string {
		if s == "" {
			return s
		}
		_, exOK, out := Expand(ctx, s, env, extras)
		if !exOK {
			ok = false
		}
		return out
	}
	expanded = link
	switch link.Kind {
	case LinkRepoURL:
		r := *link.RepoURL
		r.RepoURL, r.RepoBranch, r.Directory, r.Credentials = one(r.RepoURL), one(r.RepoBranch), one(r.Directory), one(r.Credentials)
		expanded.RepoURL = &r
	case LinkCollections:
		c := *link.Collections
		out := make([]string, len(c.Collections))
		for i, s := range c.Collections {
			out[i] = one(s)
		}
		c.Collections = out
		expanded.Collections = &c
	case LinkPlaybook:
		p := *link.Playbook
		p.Playbook, p.Inventory = one(p.Playbook), one(p.Inventory)
		expanded.Playbook = &p
	case LinkPipeline:
		p := *link.Pipeline
		p.Pipeline = one(p.Pipeline)
		expanded.Pipeline = &p
	case LinkStash:
		s := *link.Stash
		s.Stash, s.Includes, s.Excludes = one(s.Stash), one(s.Includes), one(s.Excludes)
		expanded.Stash = &s
	case LinkUnstash:
		u := *link.Unstash
		u.Unstash = one(u.Unstash)
		expanded.Unstash = &u
	case LinkArtifacts:
		a := *link.Artifacts
		a.Artifacts, a.Excludes = one(a.Artifacts), one(a.Excludes)
		expanded.Artifacts = &a
	case LinkScript:
		s := *link.Script
		s.Script, s.Jenkins = one(s.Script), one(s.Jenkins)
		expanded.Script = &s
	case LinkReport:
		r := *link.Report
		r.To, r.URL, r.Text, r.ReplyTo, r.Subject, r.Body = one(r.To), one(r.URL), one(r.Text), one(r.ReplyTo), one(r.Subject), one(r.Body)
		expanded.Report = &r
	}
	return ok, expanded
}

// validateLink checks each discriminator's mandatory keys without
// performing any side effect, the check-mode half of the dispatch
// wrapper.
func validateLink(link ActionLink) error {
	switch link.Kind {
	case LinkRepoURL:
		if link.RepoURL.RepoURL == "" {
			return fmt.Errorf("repo_url: repo_url is required")
		}
	case LinkCollections:
		if len(link.Collections.Collections) == 0 {
			return fmt.Errorf("collections: collections is required")
		}
	case LinkPlaybook:
		if link.Playbook.Playbook == "" {
			return fmt.Errorf("playbook: playbook is required")
		}
	case LinkPipeline:
		if link.Pipeline.Pipeline == "" {
			return fmt.Errorf("pipeline: pipeline is required")
		}
	case LinkStash:
		if link.Stash.Stash == "" {
			return fmt.Errorf("stash: stash is required")
		}
	case LinkUnstash:
		if link.Unstash.Unstash == "" {
			return fmt.Errorf("unstash: unstash is required")
		}
	case LinkArtifacts:
		if link.Artifacts.Artifacts == "" {
			return fmt.Errorf("artifacts: artifacts is required")
		}
	case LinkScript:
		if link.Script.Script == "" && link.Script.Jenkins == "" {
			return fmt.Errorf("script: one of script or jenkins is required")
		}
	case LinkReport:
		switch link.Report.Report {
		case "email":
			if link.Report.To == "" {
				return fmt.Errorf("report: email requires 'to'")
			}
		case "mattermost":
			if link.Report.URL == "" || link.Report.Text == "" {
				return fmt.Errorf("report: mattermost requires 'url' and 'text'")
			}
		default:
			return fmt.Errorf("report: unknown report sink %q", link.Report.Report)
		}
	default:
		return ErrNoDiscriminator
	}
	return nil
}

// Dispatch is the single match over the tagged ActionLink variant: in
// check mode it only validates; in execute mode under dry-run it logs the
// intent and returns pass; otherwise it invokes the operation and
// converts any error into a fail + diagnostic. dir, when non-empty,
// scopes the operation's working directory (an action's `dir` key):
// relative clone targets resolve under it and scripts run inside it.
func Dispatch(ctx *Context, collab Collaborators, settings *PipelineSettings, link ActionLink, dir string, check bool) bool {
	if err := validateLink(link); err != nil {
		return ctx.Report(SeverityError, "action-link failed validation", "kind", link.Kind, "error", err)
	}
	if check {
		return true
	}
	if ctx.DryRun() {
		ctx.Logger().Info("dry-run: action would execute", "kind", link.Kind)
		return true
	}

	gctx := context.Background()
	var err error

	switch link.Kind {
	case LinkRepoURL:
		r := link.RepoURL
		branch := r.RepoBranch
		if branch == "" {
			branch = "main"
		}
		creds := r.Credentials
		if creds == "" {
			creds = "default"
		}
		if collab.Git == nil {
			return ctx.Report(SeverityError, "no git cloner configured", "kind", link.Kind)
		}
		target := r.Directory
		if dir != "" && !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		err = collab.Git.Clone(gctx, r.RepoURL, branch, target, creds)

	case LinkCollections:
		if collab.Runner == nil {
			return ctx.Report(SeverityError, "no remote runner configured", "kind", link.Kind)
		}
		err = collab.Runner.InstallCollections(gctx, link.Collections.Collections, ctx.remoteRunnerInstallation())

	case LinkPlaybook:
		p := link.Playbook
		inv := p.Inventory
		if inv == "" {
			inv = "default"
		}
		playbookText, known := settings.Playbooks[p.Playbook]
		if !known {
			return ctx.Report(SeverityError, "unknown playbook", "name", p.Playbook)
		}
		inventoryText, known := settings.Inventories[inv]
		if !known {
			return ctx.Report(SeverityError, "unknown inventory", "name", inv)
		}
		if collab.Runner == nil {
			return ctx.Report(SeverityError, "no remote runner configured", "kind", link.Kind)
		}
		err = collab.Runner.RunPlaybook(gctx, playbookText, inventoryText, ctx.remoteRunnerInstallation())

	case LinkPipeline:
		err = dispatchDownstream(ctx, collab, link.Pipeline)

	case LinkStash:
		if collab.Artifact == nil {
			return ctx.Report(SeverityError, "no artifact store configured", "kind", link.Kind)
		}
		err = collab.Artifact.Stash(gctx, *link.Stash)

	case LinkUnstash:
		if collab.Artifact == nil {
			return ctx.Report(SeverityError, "no artifact store configured", "kind", link.Kind)
		}
		err = collab.Artifact.Unstash(gctx, link.Unstash.Unstash)

	case LinkArtifacts:
		if collab.Artifact == nil {
			return ctx.Report(SeverityError, "no artifact store configured", "kind", link.Kind)
		}
		err = collab.Artifact.Publish(gctx, *link.Artifacts)

	case LinkScript:
		s := *link.Script
		// The script/jenkins value may name an entry in the settings'
		// scripts lookup table; otherwise it is the body itself.
		if body, named := settings.Scripts[s.Script]; named && s.Script != "" {
			s.Script = body
		}
		if body, named := settings.Scripts[s.Jenkins]; named && s.Jenkins != "" {
			s.Jenkins = body
		}
		err = runScript(ctx, &s, dir)

	case LinkReport:
		err = sendReport(gctx, collab, link.Report)

	default:
		return ctx.Report(SeverityError, "unrecognised action-link discriminator", "kind", link.Kind)
	}

	if err != nil {
		return ctx.Report(SeverityError, "action execution failed", "kind", link.Kind, "error", err)
	}
	return true
}

func dispatchDownstream(ctx *Context, collab Collaborators, p *RunDownstream) error {
	if collab.Jobs == nil {
		return fmt.Errorf("no job dispatcher configured")
	}
	params := make(map[string]DownstreamParam, len(p.Parameters))
	for _, dp := range p.Parameters {
		params[dp.Name] = dp
	}
	propagate, wait := p.Propagate, p.Wait
	result, err := collab.Jobs.Dispatch(context.Background(), p.Pipeline, params, ctx.DryRun(), propagate, wait)
	if err != nil {
		return err
	}
	if result.Result == "FAILURE" && propagate {
		return fmt.Errorf("downstream pipeline %q returned FAILURE", p.Pipeline)
	}
	if p.CopyArtifacts != nil {
		if collab.Artifact == nil {
			return fmt.Errorf("no artifact store configured for copy_artifacts")
		}
		return collab.Artifact.CopyArtifacts(context.Background(), p.Pipeline, result.Number, *p.CopyArtifacts)
	}
	return nil
}

// runScript implements the `script` discriminator. A non-empty Script is
// executed through the shell and nothing else runs. Otherwise a non-empty
// Jenkins field is run through the shell, and any "KEY=VALUE" line it
// prints to stdout is merged into env and built-ins, standing in for the
// "as-part-of-pipeline" return-map semantics.
func runScript(ctx *Context, s *RunScript, dir string) error {
	if s.Script != "" {
		cmd := exec.Command("sh", "-c", s.Script)
		cmd.Dir = dir
		cmd.Env = envSliceFrom(ctx.EnvSnapshot())
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("script failed: %w: %s", err, string(out))
		}
		return nil
	}
	if s.Jenkins != "" {
		cmd := exec.Command("sh", "-c", s.Jenkins)
		cmd.Dir = dir
		cmd.Env = envSliceFrom(ctx.EnvSnapshot())
		out, err := cmd.Output()
		if err != nil {
			return fmt.Errorf("jenkins script failed: %w", err)
		}
		returned := parseKeyValueLines(string(out))
		ctx.MergeEnv(returned)
		ctx.MergeExtra(returned)
	}
	return nil
}

func parseKeyValueLines(s string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func envSliceFrom(env Environment) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func sendReport(ctx context.Context, collab Collaborators, r *SendReport) error {
	if collab.Notify == nil {
		return fmt.Errorf("no notifier configured")
	}
	switch r.Report {
	case "email":
		return collab.Notify.SendEmail(ctx, r.To, r.Subject, r.Body, r.ReplyTo)
	case "mattermost":
		return collab.Notify.SendMattermost(ctx, r.URL, r.Text)
	default:
		return fmt.Errorf("unknown report sink %q", r.Report)
	}
}

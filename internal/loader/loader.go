// Package loader fetches pipeline settings: it clones the settings
// repository at a named branch, reads the pipeline's YAML file, and
// parses it into a settings.PipelineSettings tree.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/log"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"pipeforge/internal/settings"
)

// Config holds the settings-loading tunables, plus the ordered regex
// replacements used to derive the pipeline's relative YAML path from the
// job name.
type Config struct {
	RepoURL            string
	DefaultBranch      string
	RelativePathPrefix string
	NameRegexReplace   []string
}

// Loader clones Config.RepoURL once per run and reads the YAML document
// for a given job name.
type Loader struct {
	Config Config
	Logger *log.Logger
}

// RelativePath derives "<prefix>/<stripped-job-name>.yaml" by stripping
// every configured regex from jobName in order.
func (l *Loader) RelativePath(jobName string) (string, error) {
	name := jobName
	for _, pattern := range l.Config.NameRegexReplace {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return "", fmt.Errorf("compiling pipeline_name_regex_replace pattern %q: %w", pattern, err)
		}
		name = re.ReplaceAllString(name, "")
	}
	return filepath.Join(l.Config.RelativePathPrefix, name+".yaml"), nil
}

// Load clones the repository at branch into a fresh temp workspace, reads
// relativePath, and parses it. verbose logs the raw file contents before
// parsing. Returns the workspace directory alongside the
// parsed settings so the caller can scope later stash/artifact operations
// to it.
func (l *Loader) Load(ctx context.Context, branch, relativePath string, verbose bool) (workspace string, parsed *settings.PipelineSettings, err error) {
	workspace, err = os.MkdirTemp("", "pipeforge-settings-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: creating workspace: %v", settings.ErrLoaderFailed, err)
	}

	l.Logger.Info("cloning settings repository", "url", l.Config.RepoURL, "branch", branch)
	_, err = git.PlainCloneContext(ctx, workspace, false, &git.CloneOptions{
		URL:           l.Config.RepoURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		os.RemoveAll(workspace)
		return "", nil, fmt.Errorf("%w: cloning %s@%s: %v", settings.ErrLoaderFailed, l.Config.RepoURL, branch, err)
	}

	fullPath := filepath.Join(workspace, relativePath)
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return workspace, nil, fmt.Errorf("%w: reading %s: %v", settings.ErrLoaderFailed, relativePath, err)
	}

	if verbose {
		l.Logger.Debug("raw settings file", "path", relativePath, "contents", string(raw))
	}

	parsed, err = settings.ParseSettings(raw)
	if err != nil {
		return workspace, nil, fmt.Errorf("%w: parsing %s: %v", settings.ErrLoaderFailed, relativePath, err)
	}
	return workspace, parsed, nil
}

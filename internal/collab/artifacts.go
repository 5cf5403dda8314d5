package collab

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"pipeforge/internal/settings"
)

// defaultExcludePatterns mirrors common VCS/metadata noise excluded by
// default when default_excludes is true.
var defaultExcludePatterns = []string{".git/**", "**/.git/**"}

// FileArtifactStore implements stash/unstash/artifact-publish/copy-artifacts
// against the local filesystem, scoped to a run workspace. Glob matching
// uses doublestar so `**`-style filter/excludes patterns work, which
// path.Match alone cannot express. Stash and Unstash copy files; Publish
// only matches and logs the files, and CopyArtifacts only logs the request
// and copies nothing.
type FileArtifactStore struct {
	Logger    *log.Logger
	Workspace string // run's checked-out working directory
	StashDir  string // where stash/unstash bundles are written
}

func (f *FileArtifactStore) matchFiles(includes, excludes string, defaultExcludes bool) ([]string, error) {
	var patterns []string
	if includes != "" {
		patterns = strings.Split(includes, ",")
	} else {
		patterns = []string{"**"}
	}

	excludeSet := map[string]bool{}
	var excludePatterns []string
	if excludes != "" {
		excludePatterns = strings.Split(excludes, ",")
	}
	if defaultExcludes {
		excludePatterns = append(excludePatterns, defaultExcludePatterns...)
	}

	fsys := os.DirFS(f.Workspace)
	var matched []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		files, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, file := range files {
			if info, err := fs.Stat(fsys, file); err != nil || info.IsDir() {
				continue
			}
			excluded := false
			for _, ex := range excludePatterns {
				if ok, _ := doublestar.Match(strings.TrimSpace(ex), file); ok {
					excluded = true
					break
				}
			}
			if !excluded && !excludeSet[file] {
				excludeSet[file] = true
				matched = append(matched, file)
			}
		}
	}
	return matched, nil
}

func (f *FileArtifactStore) Stash(ctx context.Context, spec settings.StashFiles) error {
	files, err := f.matchFiles(spec.Includes, spec.Excludes, spec.DefaultExcludes)
	if err != nil {
		return err
	}
	if len(files) == 0 && !spec.AllowEmpty {
		return fmt.Errorf("stash %q matched no files", spec.Stash)
	}

	destDir := filepath.Join(f.StashDir, spec.Stash)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating stash dir: %w", err)
	}
	for _, rel := range files {
		if err := copyFile(filepath.Join(f.Workspace, rel), filepath.Join(destDir, rel)); err != nil {
			return fmt.Errorf("stashing %s: %w", rel, err)
		}
	}
	f.Logger.Info("stashed files", "name", spec.Stash, "count", len(files))
	return nil
}

func (f *FileArtifactStore) Unstash(ctx context.Context, name string) error {
	srcDir := filepath.Join(f.StashDir, name)
	if _, err := os.Stat(srcDir); err != nil {
		return fmt.Errorf("no such stash %q: %w", name, err)
	}
	var count int
	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(srcDir, path)
		if err := copyFile(path, filepath.Join(f.Workspace, rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("unstashing %q: %w", name, err)
	}
	f.Logger.Info("unstashed files", "name", name, "count", count)
	return nil
}

func (f *FileArtifactStore) Publish(ctx context.Context, spec settings.PublishArtifacts) error {
	files, err := f.matchFiles(spec.Artifacts, spec.Excludes, false)
	if err != nil {
		return err
	}
	if len(files) == 0 && !spec.AllowEmpty {
		return fmt.Errorf("artifacts %q matched no files", spec.Artifacts)
	}
	f.Logger.Info("published artifacts", "pattern", spec.Artifacts, "count", len(files), "fingerprint", spec.Fingerprint)
	return nil
}

func (f *FileArtifactStore) CopyArtifacts(ctx context.Context, project string, buildNumber int, spec settings.CopyArtifactsSpec) error {
	f.Logger.Info("copying artifacts from downstream build", "project", project, "build", buildNumber, "filter", spec.Filter, "target", spec.TargetDirectory)
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

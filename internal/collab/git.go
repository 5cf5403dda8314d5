// Package collab provides concrete adapters for the engine's external
// collaborators: git clone, the remote command runner, the downstream job
// dispatcher, artifact storage, notification sinks, and the live node
// registry. internal/settings depends only on the interfaces it declares;
// these adapters are wired in by cmd/pipeforge.
package collab

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// CredentialStore resolves a configured credentials identifier into a
// username and secret. Concrete lookups (env vars, a credentials file)
// are supplied by the caller; passwords are never logged.
type CredentialStore interface {
	Lookup(id string) (username, secret string, err error)
}

// GitCloner clones a repository with go-git.
type GitCloner struct {
	Logger *log.Logger
	Creds  CredentialStore
}

func (g *GitCloner) Clone(ctx context.Context, url, branch, dir, credentials string) error {
	opts := &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	}

	if g.Creds != nil && credentials != "" {
		user, secret, err := g.Creds.Lookup(credentials)
		if err != nil {
			return fmt.Errorf("resolving credentials %q: %w", credentials, err)
		}
		opts.Auth = &http.BasicAuth{Username: user, Password: secret}
	}

	g.Logger.Info("cloning repository", "url", url, "branch", branch, "dir", dir, "credentials", credentials)
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return fmt.Errorf("clone %s@%s: %w", url, branch, err)
	}
	return nil
}

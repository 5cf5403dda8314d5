package collab

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// AnsibleRunner shells out to a named ansible installation for the
// `playbook` and `collections` action-links. The playbook language itself
// is opaque to the core; this adapter's job is strictly process plumbing.
type AnsibleRunner struct {
	Logger *log.Logger
	// InstallationPaths maps an installation name to the ansible-playbook /
	// ansible-galaxy binary directory; an empty name resolves to PATH.
	InstallationPaths map[string]string
}

func (r *AnsibleRunner) binary(installationName, name string) string {
	if dir, ok := r.InstallationPaths[installationName]; ok && dir != "" {
		return filepath.Join(dir, name)
	}
	return name
}

func (r *AnsibleRunner) RunPlaybook(ctx context.Context, playbookText, inventoryText, installationName string) error {
	workDir, err := os.MkdirTemp("", "pipeforge-playbook-*")
	if err != nil {
		return fmt.Errorf("creating playbook workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	playbookFile := filepath.Join(workDir, "playbook.yml")
	inventoryFile := filepath.Join(workDir, "inventory")
	if err := os.WriteFile(playbookFile, []byte(playbookText), 0o600); err != nil {
		return fmt.Errorf("writing playbook: %w", err)
	}
	if err := os.WriteFile(inventoryFile, []byte(inventoryText), 0o600); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}

	r.Logger.Info("invoking remote runner", "installation", installationName, "playbook", playbookFile)
	cmd := exec.CommandContext(ctx, r.binary(installationName, "ansible-playbook"), "-i", inventoryFile, playbookFile)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ansible-playbook: %w", err)
	}
	return nil
}

func (r *AnsibleRunner) InstallCollections(ctx context.Context, names []string, installationName string) error {
	for _, name := range names {
		r.Logger.Info("installing collection", "name", name, "installation", installationName)
		cmd := exec.CommandContext(ctx, r.binary(installationName, "ansible-galaxy"), "collection", "install", name)
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("ansible-galaxy collection install %s: %w", name, err)
		}
	}
	return nil
}

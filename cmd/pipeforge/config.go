package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pipeforge/internal/loader"
)

// appName is the single source of truth for the application name; derived
// env var names and config paths are computed from it.
const appName = "pipeforge"

// envPrefix namespaces the settings-loader tunables.
const envPrefix = "JUWP_SETTINGS_"

var (
	envGitURL           = envPrefix + "GIT_URL"
	envDefaultBranch    = envPrefix + "DEFAULT_BRANCH"
	envRelativePathPre  = envPrefix + "RELATIVE_PATH_PREFIX"
	envNameRegexReplace = envPrefix + "NAME_REGEX_REPLACE"
)

// fileConfig mirrors the on-disk config.yml shape: the same four tunables,
// plus the static node registry consumed by internal/collab.StaticNodeRegistry.
type fileConfig struct {
	SettingsGitURL           string            `yaml:"settings_repo_url"`
	SettingsDefaultBranch    string            `yaml:"settings_default_branch"`
	SettingsRelativePathPre  string            `yaml:"settings_relative_path_prefix"`
	PipelineNameRegexReplace []string          `yaml:"pipeline_name_regex_replace"`
	Nodes                    []nodeConfigEntry `yaml:"nodes"`
}

type nodeConfigEntry struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

// resolveConfigDir returns the base config directory for the application.
// Priority: $XDG_CONFIG_HOME/<appName> > ~/.config/<appName>.
func resolveConfigDir() (string, error) {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// readFileConfig loads config.yml from the resolved config directory. A
// missing file is not an error: every field simply stays at its zero value
// and loadLoaderConfig falls back to built-in defaults.
func readFileConfig() (fileConfig, error) {
	dir, err := resolveConfigDir()
	if err != nil {
		return fileConfig{}, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, "config.yml"))
	if os.IsNotExist(err) {
		return fileConfig{}, nil
	}
	if err != nil {
		return fileConfig{}, fmt.Errorf("reading config.yml: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parsing config.yml: %w", err)
	}
	return fc, nil
}

// loadLoaderConfig resolves the four settings-loader tunables in priority
// order: environment variable override, else config.yml, else a built-in
// default.
func loadLoaderConfig() (loader.Config, []nodeConfigEntry, error) {
	fc, err := readFileConfig()
	if err != nil {
		return loader.Config{}, nil, err
	}

	cfg := loader.Config{
		RepoURL:            firstNonEmpty(os.Getenv(envGitURL), fc.SettingsGitURL),
		DefaultBranch:      firstNonEmpty(os.Getenv(envDefaultBranch), fc.SettingsDefaultBranch, "main"),
		RelativePathPrefix: firstNonEmpty(os.Getenv(envRelativePathPre), fc.SettingsRelativePathPre, "settings"),
		NameRegexReplace:   fc.PipelineNameRegexReplace,
	}
	if v := os.Getenv(envNameRegexReplace); v != "" {
		cfg.NameRegexReplace = splitColon(v)
	}
	if cfg.RepoURL == "" {
		return loader.Config{}, nil, fmt.Errorf("%s (or settings_repo_url in config.yml) is required", envGitURL)
	}
	return cfg, fc.Nodes, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitColon(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

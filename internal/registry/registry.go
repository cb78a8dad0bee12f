// Package registry persists the project registry described in spec
// §6: a YAML map of project name to root directory, target
// directories, watch mode, and enablement, shared by the CLI, the
// watcher daemon, and the MCP/HTTP adapters.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// WatchMode is one of the three modes C9 supports.
type WatchMode string

const (
	WatchRealtime WatchMode = "realtime"
	WatchPolling  WatchMode = "polling"
	WatchGitOnly  WatchMode = "git_only"
)

// Project is one entry in the registry file.
type Project struct {
	RootDir         string    `yaml:"root_dir"`
	TargetDirs      []string  `yaml:"target_dirs,omitempty"`
	WatchMode       WatchMode `yaml:"watch_mode"`
	DebounceSeconds float64   `yaml:"debounce"`
	Enabled         bool      `yaml:"enabled"`
	FilePatterns    []string  `yaml:"file_patterns,omitempty"`
}

// ErrNotRegistered is returned by Get when the project name is absent.
var ErrNotRegistered = fmt.Errorf("project not registered")

// DefaultPath returns the well-known registry path for a developer
// machine, ~/.veracity/projects.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "projects.yaml"
	}
	return filepath.Join(home, ".veracity", "projects.yaml")
}

// Load reads the registry file at path, returning an empty map if it
// does not yet exist.
func Load(path string) (map[string]Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Project{}, nil
		}
		return nil, err
	}
	projects := map[string]Project{}
	if err := yaml.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return projects, nil
}

// Get looks up a single project, returning ErrNotRegistered if absent.
func Get(path, name string) (Project, error) {
	projects, err := Load(path)
	if err != nil {
		return Project{}, err
	}
	p, ok := projects[name]
	if !ok {
		return Project{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return p, nil
}

// Names returns the sorted list of registered project names.
func Names(path string) ([]string, error) {
	projects, err := Load(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Put writes or replaces a single project entry, taking an exclusive
// file lock so concurrent CLI/watcher writers never interleave.
func Put(path, name string, p Project) error {
	return withLock(path, func() error {
		projects, err := Load(path)
		if err != nil {
			return err
		}
		projects[name] = p
		return save(path, projects)
	})
}

// Remove deletes a project entry if present.
func Remove(path, name string) error {
	return withLock(path, func() error {
		projects, err := Load(path)
		if err != nil {
			return err
		}
		delete(projects, name)
		return save(path, projects)
	})
}

func save(path string, projects map[string]Project) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(projects)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func withLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	defer lock.Unlock()
	return fn()
}

// Package manifest handles rubric.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the project file looked up by Load and FindAndLoad.
const FileName = "rubric.toml"

// Manifest represents a rubric.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Load         LoadConfig            `toml:"load"`
	Run          RunConfig             `toml:"run"`
	Log          LogConfig             `toml:"log"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the rubric.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// LoadConfig configures the load manager.
type LoadConfig struct {
	Paths     []string `toml:"paths"`
	Extension string   `toml:"extension"`

	// Prelude is nil when the key is absent; the prelude is on by default.
	Prelude *bool `toml:"prelude"`
}

// RunConfig names the file `rubric run` evaluates when given no arguments.
type RunConfig struct {
	Entry string `toml:"entry"`
}

// LogConfig configures logging for the CLI.
type LogConfig struct {
	Level int    `toml:"level"`
	File  string `toml:"file"`
}

// Dependency is another rubric project whose load paths are added to ours.
type Dependency struct {
	Git  string `toml:"git"`
	Tag  string `toml:"tag"`
	Path string `toml:"path"`
}

// Load parses a rubric.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Load.Paths) == 0 {
		m.Load.Paths = []string{"lib"}
	}
	switch {
	case m.Load.Extension == "":
		m.Load.Extension = ".rb"
	case !strings.HasPrefix(m.Load.Extension, "."):
		m.Load.Extension = "." + m.Load.Extension
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a rubric.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// LoadPaths returns absolute paths for the configured load directories.
func (m *Manifest) LoadPaths() []string {
	var paths []string
	for _, d := range m.Load.Paths {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// EntryPath returns the absolute path of the run entry, or "" if unset.
func (m *Manifest) EntryPath() string {
	if m.Run.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Run.Entry) {
		return m.Run.Entry
	}
	return filepath.Join(m.Dir, m.Run.Entry)
}

// PreludeEnabled reports whether the prelude should be loaded.
func (m *Manifest) PreludeEnabled() bool {
	return m.Load.Prelude == nil || *m.Load.Prelude
}

// DepsDir returns the path to the .rubric/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".rubric", "deps")
}

// LockFilePath returns the path to .rubric/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".rubric", "lock.toml")
}

// Package manifest handles tessera.toml project configuration and maps
// dotted import paths to source files.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/tessera/vm"
)

// FileName is the project file looked up by Load and FindAndLoad.
const FileName = "tessera.toml"

// Manifest represents a tessera.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Source       Source                `toml:"source"`
	Runtime      Runtime               `toml:"runtime"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the tessera.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures module roots and the entry module.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Runtime configures interpreter limits.
type Runtime struct {
	StepLimit int    `toml:"step-limit"`
	MaxDepth  int    `toml:"max-depth"`
	Timeout   string `toml:"timeout"`
}

// Dependency is another directory of modules, imported under Prefix.
type Dependency struct {
	Path   string `toml:"path"`
	Prefix string `toml:"prefix"`
}

// Load parses a tessera.toml file from the given directory.
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

	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Entry != "" && !ValidModuleName(m.Source.Entry) {
		return nil, fmt.Errorf("%s: invalid entry module name %q", path, m.Source.Entry)
	}
	if m.Runtime.StepLimit < 0 {
		return nil, fmt.Errorf("%s: step-limit must not be negative", path)
	}
	if _, err := m.Runtime.TimeoutDuration(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a tessera.toml file,
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
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// TimeoutDuration parses Timeout. An empty timeout is zero.
func (r Runtime) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", r.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: negative", r.Timeout)
	}
	return d, nil
}

// Options returns the interpreter options for the runtime section.
func (r Runtime) Options() []vm.Option {
	var opts []vm.Option
	if r.StepLimit > 0 {
		opts = append(opts, vm.WithStepLimit(r.StepLimit))
	}
	if r.MaxDepth > 0 {
		opts = append(opts, vm.WithMaxDepth(r.MaxDepth))
	}
	return opts
}

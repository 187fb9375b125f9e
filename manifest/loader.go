package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tessera/vm"
)

var log = commonlog.GetLogger("tessera.manifest")

// Root is a set of directories holding modules. Modules under a root with
// a prefix are imported as prefix.rest; the project's own roots have no
// prefix.
type Root struct {
	Prefix string
	Dirs   []string
}

// Loader maps dotted module names to .tess files. It implements
// vm.Resolver.
type Loader struct {
	roots []Root
}

var _ vm.Resolver = (*Loader)(nil)

// NewDirLoader creates a loader over plain directories, for scripts run
// outside a project.
func NewDirLoader(dirs ...string) *Loader {
	return &Loader{roots: []Root{{Dirs: dirs}}}
}

// NewLoader creates a loader for the project's source directories and
// its dependencies, including dependencies declared by dependencies.
func NewLoader(m *Manifest) (*Loader, error) {
	l := &Loader{roots: []Root{{Dirs: m.SourceDirPaths()}}}
	seen := make(map[string]string) // prefix -> dependency path
	if err := l.addDependencies(m, seen); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) addDependencies(m *Manifest, seen map[string]string) error {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dep := m.Dependencies[name]
		if dep.Path == "" {
			return fmt.Errorf("dependency %q has no path specified", name)
		}
		path := dep.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.Dir, path)
		}
		path, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("dependency %q: invalid path %q: %w", name, dep.Path, err)
		}
		if info, err := os.Stat(path); err != nil {
			return fmt.Errorf("local dependency %q not found at %s: %w", name, path, err)
		} else if !info.IsDir() {
			return fmt.Errorf("local dependency %q at %s is not a directory", name, path)
		}

		// The dependency's own manifest is optional.
		var depManifest *Manifest
		if _, err := os.Stat(filepath.Join(path, FileName)); err == nil {
			if depManifest, err = Load(path); err != nil {
				return fmt.Errorf("dependency %q: %w", name, err)
			}
		}

		prefix, err := resolvePrefix(name, dep, depManifest)
		if err != nil {
			return err
		}
		if prev, ok := seen[prefix]; ok {
			if prev == path {
				continue
			}
			return fmt.Errorf("dependency %q: prefix %q is already used by %s", name, prefix, prev)
		}
		seen[prefix] = path

		root := Root{Prefix: prefix, Dirs: []string{path}}
		if depManifest != nil {
			root.Dirs = depManifest.SourceDirPaths()
		}
		l.roots = append(l.roots, root)
		log.Debugf("dependency %s: prefix %s, dirs %s", name, prefix, strings.Join(root.Dirs, ", "))

		if depManifest != nil {
			if err := l.addDependencies(depManifest, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolvePrefix determines the import prefix of a dependency:
//  1. Consumer override (dep.Prefix from TOML)
//  2. Producer manifest (project name)
//  3. The dependency's key in [dependencies]
func resolvePrefix(name string, dep Dependency, depManifest *Manifest) (string, error) {
	var prefix string
	switch {
	case dep.Prefix != "":
		prefix = dep.Prefix
	case depManifest != nil && depManifest.Project.Name != "":
		prefix = ToIdentifier(depManifest.Project.Name)
	default:
		prefix = ToIdentifier(name)
	}

	if !ValidSegment(prefix) {
		return "", fmt.Errorf("dependency %q resolves to invalid import prefix %q; add prefix = \"...\" in [dependencies]", name, prefix)
	}
	return prefix, nil
}

// Roots returns the module roots in search order.
func (l *Loader) Roots() []Root {
	return append([]Root(nil), l.roots...)
}

// Locate returns the file that defines module name. Project roots are
// searched before dependencies.
func (l *Loader) Locate(name string) (string, error) {
	if !ValidModuleName(name) {
		return "", fmt.Errorf("invalid module name %q", name)
	}
	var searched []string
	for _, root := range l.roots {
		rel := name
		if root.Prefix != "" {
			if !strings.HasPrefix(name, root.Prefix+".") {
				continue
			}
			rel = strings.TrimPrefix(name, root.Prefix+".")
		}
		for _, dir := range root.Dirs {
			path := filepath.Join(dir, ModulePath(rel))
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
			searched = append(searched, dir)
		}
	}
	if len(searched) == 0 {
		return "", fmt.Errorf("module %q not found", name)
	}
	return "", fmt.Errorf("module %q not found (searched %s)", name, strings.Join(searched, ", "))
}

// Resolve reads and parses module name.
func (l *Loader) Resolve(name string) (*vm.Module, error) {
	path, err := l.Locate(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	log.Debugf("loading module %s from %s", name, path)
	m, err := vm.ParseModule(name, path, string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ModuleNames lists every module reachable through the loader, sorted.
// A name defined in more than one root is listed once.
func (l *Loader) ModuleNames() ([]string, error) {
	seen := make(map[string]bool)
	for _, root := range l.roots {
		for _, dir := range root.Dirs {
			err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					if path == dir && os.IsNotExist(err) {
						return filepath.SkipDir
					}
					return err
				}
				if d.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(dir, path)
				if err != nil {
					return err
				}
				name, ok := ModuleName(rel)
				if !ok {
					return nil
				}
				if root.Prefix != "" {
					name = root.Prefix + "." + name
				}
				seen[name] = true
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

package vm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/tessera/compiler"
)

// ---------------------------------------------------------------------------
// Module: a parsed unit with its export surface
// ---------------------------------------------------------------------------

type moduleState int

const (
	moduleUnlinked moduleState = iota
	moduleLinking
	moduleDone
	moduleFailed
)

// Module is a parsed source file. Its exports are filled in when the
// module runs; importers see them after the module has finished.
type Module struct {
	Name   string // dotted import name, e.g. "layouts.grid"
	Path   string // file path, for diagnostics
	Source string
	Stmts  []compiler.Stmt

	scope       *Scope
	state       moduleState
	exportNames []string
	exports     map[string]Value
	result      Value
	err         error
}

// NewModule wraps already parsed statements.
func NewModule(name, path string, stmts []compiler.Stmt) *Module {
	return &Module{
		Name:    name,
		Path:    path,
		Stmts:   stmts,
		exports: make(map[string]Value),
	}
}

// ParseModule parses src into a module. Parse failures are returned as
// *compiler.LexError or *compiler.ParseError.
func ParseModule(name, path, src string) (*Module, error) {
	stmts, err := compiler.Parse(src)
	if err != nil {
		return nil, err
	}
	m := NewModule(name, path, stmts)
	m.Source = src
	return m, nil
}

// markExport records name as exported. Exporting a name twice is a no-op.
func (m *Module) markExport(name string) {
	for _, n := range m.exportNames {
		if n == name {
			return
		}
	}
	m.exportNames = append(m.exportNames, name)
}

// snapshotExports copies the final value of each exported binding.
func (m *Module) snapshotExports() {
	for _, name := range m.exportNames {
		if v, ok := m.scope.Lookup(name); ok {
			m.exports[name] = v
		}
	}
}

// ExportNames returns the exported names in export order.
func (m *Module) ExportNames() []string {
	return append([]string(nil), m.exportNames...)
}

// Exports returns a copy of the export table.
func (m *Module) Exports() map[string]Value {
	out := make(map[string]Value, len(m.exports))
	for k, v := range m.exports {
		out[k] = v
	}
	return out
}

// Export returns one exported value.
func (m *Module) Export(name string) (Value, bool) {
	v, ok := m.exports[name]
	return v, ok
}

// Scope returns the module's top-level scope, or nil before it has run.
func (m *Module) Scope() *Scope {
	return m.scope
}

// Done reports whether the module has run to completion.
func (m *Module) Done() bool {
	return m.state == moduleDone
}

// namespace builds the object bound under the last segment of an import
// path, holding every export.
func (m *Module) namespace() *Object {
	obj := NewObject()
	for k, v := range m.exports {
		obj.Fields[k] = v
	}
	return obj
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Resolver locates modules that were not registered with AddModule. The
// manifest package provides a file system resolver.
type Resolver interface {
	Resolve(name string) (*Module, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (*Module, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(name string) (*Module, error) { return f(name) }

// MapResolver resolves module names from in-memory sources, parsing each
// on first use.
type MapResolver map[string]string

// Resolve parses the source registered under name.
func (r MapResolver) Resolve(name string) (*Module, error) {
	src, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("no module named %q", name)
	}
	return ParseModule(name, name+".tess", src)
}

// ModuleNames returns the registered module names, sorted.
func (in *Interpreter) ModuleNames() []string {
	names := make([]string, 0, len(in.modules))
	for name := range in.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddModule registers m so it can be imported by name. A module that has
// already run cannot be replaced.
func (in *Interpreter) AddModule(m *Module) error {
	if old, ok := in.modules[m.Name]; ok && old != m && old.state != moduleUnlinked {
		return &LinkError{Module: m.Name, Msg: "module already loaded"}
	}
	in.modules[m.Name] = m
	return nil
}

// Module returns a registered module.
func (in *Interpreter) Module(name string) (*Module, bool) {
	m, ok := in.modules[name]
	return m, ok
}

// resolve finds a module by name in the registry, then through the
// resolver. Resolved modules are registered.
func (in *Interpreter) resolve(importer, name string) (*Module, error) {
	if m, ok := in.modules[name]; ok {
		return m, nil
	}
	if in.resolver == nil {
		return nil, &LinkError{Module: importer, Msg: fmt.Sprintf("cannot resolve import %q", name)}
	}
	m, err := in.resolver.Resolve(name)
	if err != nil {
		return nil, &LinkError{Module: importer, Msg: fmt.Sprintf("cannot resolve import %q: %v", name, err), Err: err}
	}
	m.Name = name
	in.modules[name] = m
	return m, nil
}

// link makes dep's exports available, running dep first if needed. Cycles
// are detected through the linking state.
func (in *Interpreter) link(importer, name string) (*Module, error) {
	dep, err := in.resolve(importer, name)
	if err != nil {
		return nil, err
	}

	switch dep.state {
	case moduleDone:
		return dep, nil
	case moduleFailed:
		return nil, &LinkError{Module: importer, Msg: fmt.Sprintf("import %q failed", name), Err: dep.err}
	case moduleLinking:
		return nil, &LinkError{Module: importer, Msg: "import cycle: " + in.cyclePath(name)}
	}

	if _, err := in.runModule(dep); err != nil {
		var le *LinkError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LinkError{Module: importer, Msg: fmt.Sprintf("import %q failed: %v", name, err), Err: err}
	}
	return dep, nil
}

// cyclePath renders the active import chain from name back to name.
func (in *Interpreter) cyclePath(name string) string {
	path := ""
	start := -1
	for i, m := range in.linkStack {
		if m == name {
			start = i
			break
		}
	}
	if start < 0 {
		return name + " -> " + name
	}
	for _, m := range in.linkStack[start:] {
		path += m + " -> "
	}
	return path + name
}

// importInto links the module at path and merges its exports into scope.
// The last path segment is also bound to a namespace object unless that
// name is already taken.
func (in *Interpreter) importInto(path string, scope *Scope) error {
	importer := ""
	if in.current != nil {
		importer = in.current.Name
	}
	dep, err := in.link(importer, path)
	if err != nil {
		return err
	}

	for _, name := range dep.exportNames {
		if v, ok := dep.exports[name]; ok {
			scope.Define(name, v)
		}
	}
	ns := lastSegment(path)
	if !scope.HasLocal(ns) {
		scope.Define(ns, dep.namespace())
	}
	return nil
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}

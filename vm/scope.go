package vm

import "sort"

// ---------------------------------------------------------------------------
// Scope: lexical environments
// ---------------------------------------------------------------------------

// Scope maps names to values. The parent link is used only for lookup.
// Closures hold a pointer to the scope they were defined in, which keeps
// the whole chain reachable for as long as the closure is.
type Scope struct {
	vars   map[string]Value
	parent *Scope
}

// NewScope creates a root scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]Value)}
}

// Child creates a scope whose parent is s.
func (s *Scope) Child() *Scope {
	return &Scope{vars: make(map[string]Value), parent: s}
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Define binds name in s, shadowing any outer binding.
func (s *Scope) Define(name string, v Value) {
	s.vars[name] = v
}

// Assign rebinds name in the nearest scope that defines it. It reports
// false, and changes nothing, if no scope in the chain defines name.
func (s *Scope) Assign(name string, v Value) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return true
		}
	}
	return false
}

// Lookup walks outward from s and returns the first binding of name.
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// HasLocal reports whether name is bound in s itself.
func (s *Scope) HasLocal(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Names returns every name visible from s, sorted.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.vars {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LocalNames returns the names bound in s itself, sorted.
func (s *Scope) LocalNames() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
